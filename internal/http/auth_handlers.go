package http

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"github.com/tazhibayda/smartfarm-api/internal/identity"
	"github.com/tazhibayda/smartfarm-api/internal/queue"
	"github.com/tazhibayda/smartfarm-api/internal/security"
	"go.uber.org/zap"
)

const stateCookie = "oauth_state"

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResp struct {
	User *domain.User `json:"user"`
}

// Login godoc
// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginReq true "credentials"
// @Success 200 {object} Envelope
// @Failure 401 {object} Envelope
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.auth.Authenticate(c.Request.Context(), "local", func(ctx context.Context) (*domain.User, error) {
		return h.resolver.AuthenticateLocal(ctx, in.Email, in.Password)
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.setCookie(c, t.Token)
	queue.Emit(c.Request.Context(), h.events, queue.KeyUserLoggedIn, queue.UserLoggedIn{
		UserID: t.User.ID.Hex(), PublicID: t.User.PublicID, Method: "local", At: time.Now().UTC(),
	}, h.reqID(c))
	ok(c, http.StatusOK, "logged in", userResp{User: t.User})
}

type registerReq struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,password"`
	Username string `json:"username" binding:"required,username"`
	FullName string `json:"fullName" binding:"max=100"`
}

// Register godoc
// @Summary Register a local account and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body registerReq true "new account"
// @Success 201 {object} Envelope
// @Failure 400 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var in registerReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.auth.Authenticate(c.Request.Context(), "register", func(ctx context.Context) (*domain.User, error) {
		return h.resolver.RegisterLocal(ctx, identity.RegisterInput{
			Email:    in.Email,
			Password: in.Password,
			Username: in.Username,
			FullName: in.FullName,
		})
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.setCookie(c, t.Token)
	queue.Emit(c.Request.Context(), h.events, queue.KeyUserRegistered, queue.UserRegistered{
		UserID: t.User.ID.Hex(), PublicID: t.User.PublicID, Email: t.User.Email,
		Username: t.User.Username, At: time.Now().UTC(),
	}, h.reqID(c))
	ok(c, http.StatusCreated, "registered", userResp{User: t.User})
}

// OAuthStart godoc
// @Summary Redirect to the provider consent screen
// @Tags auth
// @Param provider path string true "github or google"
// @Success 302
// @Failure 404 {object} Envelope
// @Router /auth/{provider} [get]
func (h *Handler) OAuthStart(c *gin.Context) {
	p, found := h.providers.Get(c.Param("provider"))
	if !found {
		fail(c, domain.NotFound("provider"))
		return
	}
	state, err := h.state.Issue(string(p.Name()))
	if err != nil {
		fail(c, err)
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(security.StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Redirect(http.StatusFound, p.AuthURL(state))
}

// OAuthCallback godoc
// @Summary Provider callback; starts a session and redirects to the app
// @Tags auth
// @Param provider path string true "github or google"
// @Param code query string true "authorization code"
// @Param state query string true "state issued by /auth/{provider}"
// @Success 302
// @Router /auth/{provider}/callback [get]
func (h *Handler) OAuthCallback(c *gin.Context) {
	name := c.Param("provider")
	l := logFor(c).With(zap.String("provider", name))

	p, found := h.providers.Get(name)
	if !found {
		h.failRedirect(c, "unknown_provider")
		return
	}
	cookieState, _ := c.Cookie(stateCookie)
	http.SetCookie(c.Writer, &http.Cookie{Name: stateCookie, Path: "/auth", MaxAge: -1, HttpOnly: true, Secure: h.cookie.Secure})

	if e := c.Query("error"); e != "" {
		l.Info("provider denied consent", zap.String("error", e))
		h.failRedirect(c, "access_denied")
		return
	}
	state := c.Query("state")
	if state == "" || state != cookieState {
		l.Warn("oauth state mismatch")
		h.failRedirect(c, "invalid_state")
		return
	}
	if err := h.state.Verify(state, name); err != nil {
		l.Warn("oauth state rejected", zap.Error(err))
		h.failRedirect(c, "invalid_state")
		return
	}
	code := c.Query("code")
	if code == "" {
		h.failRedirect(c, "missing_code")
		return
	}

	var outcome identity.Outcome
	ctx := c.Request.Context()
	t, err := h.auth.Authenticate(ctx, "oauth_"+name, func(ctx context.Context) (*domain.User, error) {
		prof, err := p.Exchange(ctx, code)
		if err != nil {
			return nil, err
		}
		var u *domain.User
		err = WithSpan(ctx, "identity.resolve_oauth", func(ctx context.Context) error {
			var err error
			u, outcome, err = h.resolver.ResolveOAuth(ctx, *prof)
			return err
		})
		return u, err
	})
	if err != nil {
		k := domain.KindOf(err)
		if k == domain.KindInternal || k == domain.KindExhausted {
			l.Error("oauth login failed", zap.Error(err))
		} else {
			l.Info("oauth login rejected", zap.String("kind", k.String()), zap.Error(err))
		}
		h.failRedirect(c, k.String())
		return
	}
	h.setCookie(c, t.Token)
	h.emitOAuth(c, t.User, outcome, name)
	c.Redirect(http.StatusFound, h.successURL)
}

func (h *Handler) emitOAuth(c *gin.Context, u *domain.User, o identity.Outcome, provider string) {
	ctx, now, rid := c.Request.Context(), time.Now().UTC(), h.reqID(c)
	switch o {
	case identity.Created:
		queue.Emit(ctx, h.events, queue.KeyUserRegistered, queue.UserRegistered{
			UserID: u.ID.Hex(), PublicID: u.PublicID, Email: u.Email, Username: u.Username, Provider: provider, At: now,
		}, rid)
	case identity.Linked:
		queue.Emit(ctx, h.events, queue.KeyUserLinked, queue.UserLinked{
			UserID: u.ID.Hex(), PublicID: u.PublicID, Email: u.Email, Username: u.Username, Provider: provider, At: now,
		}, rid)
	}
	queue.Emit(ctx, h.events, queue.KeyUserLoggedIn, queue.UserLoggedIn{
		UserID: u.ID.Hex(), PublicID: u.PublicID, Method: provider, At: now,
	}, rid)
}

func (h *Handler) failRedirect(c *gin.Context, reason string) {
	target := h.failureURL
	if u, err := url.Parse(target); err == nil {
		q := u.Query()
		q.Set("error", reason)
		u.RawQuery = q.Encode()
		target = u.String()
	}
	c.Redirect(http.StatusFound, target)
}

// Logout godoc
// @Summary End the current session
// @Tags auth
// @Produce json
// @Success 200 {object} Envelope
// @Router /auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	tok, _ := c.Cookie(h.cookie.Name)
	if err := h.auth.Logout(c.Request.Context(), tok); err != nil {
		fail(c, err)
		return
	}
	h.clearCookie(c)
	if u, found := CurrentUser(c); found {
		queue.Emit(c.Request.Context(), h.events, queue.KeyUserLoggedOut, queue.UserLoggedOut{
			UserID: u.ID.Hex(), PublicID: u.PublicID, At: time.Now().UTC(),
		}, h.reqID(c))
	}
	ok(c, http.StatusOK, "logged out", nil)
}
