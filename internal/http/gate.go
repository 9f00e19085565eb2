package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"github.com/tazhibayda/smartfarm-api/internal/session"
)

const (
	currentUserKey  = "currentUser"
	sessionStateKey = "sessionState"
)

// LoadSession resolves the session cookie, if any, into the current user.
// It never rejects; AuthGate does.
func (h *Handler) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, err := c.Cookie(h.cookie.Name)
		if err != nil || tok == "" {
			c.Set(sessionStateKey, session.Anonymous)
			c.Next()
			return
		}
		u, err := h.auth.Resume(c.Request.Context(), tok)
		switch {
		case err == nil:
			c.Set(currentUserKey, u)
			c.Set(sessionStateKey, session.Authenticated)
		case domain.KindOf(err) == domain.KindAuthRequired:
			// expired or dangling: drop the stale cookie
			h.clearCookie(c)
			c.Set(sessionStateKey, session.Anonymous)
		default:
			fail(c, err)
			return
		}
		c.Next()
	}
}

// AuthGate short-circuits with AuthenticationRequired unless LoadSession
// attached a user.
func AuthGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			fail(c, domain.AuthRequired())
			return
		}
		c.Next()
	}
}

// RequireRole must run after AuthGate.
func RequireRole(min domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			fail(c, domain.AuthRequired())
			return
		}
		if !u.Role.AtLeast(min) {
			fail(c, domain.Forbidden("insufficient role"))
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok && u != nil
}

func SessionState(c *gin.Context) session.State {
	if s, ok := c.Get(sessionStateKey); ok {
		return s.(session.State)
	}
	return session.Anonymous
}

func (h *Handler) setCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.auth.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
}

func (h *Handler) clearCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
}
