package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
	api "github.com/tazhibayda/smartfarm-api/internal/http"
	"github.com/tazhibayda/smartfarm-api/internal/identity"
	"github.com/tazhibayda/smartfarm-api/internal/oauth"
	"github.com/tazhibayda/smartfarm-api/internal/repo/memory"
	"github.com/tazhibayda/smartfarm-api/internal/security"
	"github.com/tazhibayda/smartfarm-api/internal/session"
	"golang.org/x/crypto/bcrypt"
)

const cookieName = "sessionId"

type fakeProvider struct {
	name    domain.Provider
	mu      sync.Mutex
	profile domain.OAuthProfile
	err     error
}

func (f *fakeProvider) Name() domain.Provider { return f.name }

func (f *fakeProvider) AuthURL(state string) string {
	return "https://provider.test/authorize?state=" + state
}

func (f *fakeProvider) Exchange(_ context.Context, code string) (*domain.OAuthProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, domain.Upstream(string(f.name), f.err)
	}
	p := f.profile
	p.Provider = f.name
	p.AccessToken = "at-" + code
	return &p, nil
}

func (f *fakeProvider) set(p domain.OAuthProfile, err error) {
	f.mu.Lock()
	f.profile, f.err = p, err
	f.mu.Unlock()
}

type recordingPub struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingPub) Publish(_ context.Context, key string, _ any, _ string) error {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
	return nil
}

func (r *recordingPub) Close() error { return nil }

func (r *recordingPub) seen(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k == key {
			return true
		}
	}
	return false
}

type pinger struct{ err error }

func (p *pinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	T        *testing.T
	Router   *gin.Engine
	Users    *memory.Users
	Sessions *memory.Sessions
	GitHub   *fakeProvider
	Google   *fakeProvider
	Events   *recordingPub
	Health   *pinger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := memory.NewUsers()
	sessions := memory.NewSessions()
	gh := &fakeProvider{name: domain.ProviderGitHub}
	gg := &fakeProvider{name: domain.ProviderGoogle}
	pub := &recordingPub{}
	health := &pinger{}

	resolver := identity.NewResolver(users, security.NewHasher(bcrypt.MinCost), identity.NewPublicIDs("SM-", 5, 5))
	h := api.NewHandler(api.Deps{
		Resolver:        resolver,
		Directory:       identity.NewDirectory(users),
		Auth:            session.NewAuthenticator(sessions, users, 24*time.Hour),
		Sensors:         memory.NewSensors(),
		Providers:       oauth.NewRegistry(gh, gg),
		State:           security.NewStateSigner("test-secret"),
		Events:          pub,
		Health:          []api.Pinger{health},
		Cookie:          api.CookieConfig{Name: cookieName},
		SuccessRedirect: "/app",
		FailureRedirect: "/login",
	})
	return &testEnv{
		T:        t,
		Router:   api.NewRouter(h, api.RouterOptions{}),
		Users:    users,
		Sessions: sessions,
		GitHub:   gh,
		Google:   gg,
		Events:   pub,
		Health:   health,
	}
}

func (e *testEnv) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()
	var rd *bytes.Buffer
	if body != "" {
		rd = bytes.NewBufferString(body)
	} else {
		rd = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func cookieFrom(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code  string `json:"code"`
		Field string `json:"field"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeUser(t *testing.T, w *httptest.ResponseRecorder) domain.User {
	t.Helper()
	var d struct {
		User domain.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &d))
	return d.User
}

// register creates an account over HTTP and returns its session cookie.
func (e *testEnv) register(email, username string) *http.Cookie {
	e.T.Helper()
	w := e.do("POST", "/auth/register",
		`{"email":"`+email+`","password":"Secret123!","username":"`+username+`","fullName":"Test User"}`)
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())
	c := cookieFrom(w, cookieName)
	require.NotNil(e.T, c)
	return c
}

func (e *testEnv) setRole(email string, role domain.Role) {
	e.T.Helper()
	ctx := context.Background()
	u, err := e.Users.FindByEmail(ctx, email)
	require.NoError(e.T, err)
	require.NotNil(e.T, u)
	u.Role = role
	require.NoError(e.T, e.Users.Update(ctx, u))
}

// oauthLogin walks the redirect dance for provider and returns the final response.
func (e *testEnv) oauthLogin(provider string) *httptest.ResponseRecorder {
	e.T.Helper()
	w := e.do("GET", "/auth/"+provider, "")
	require.Equal(e.T, http.StatusFound, w.Code, w.Body.String())
	st := cookieFrom(w, "oauth_state")
	require.NotNil(e.T, st)
	require.True(e.T, strings.Contains(w.Header().Get("Location"), "state="+st.Value))
	return e.do("GET", "/auth/"+provider+"/callback?code=c0de&state="+st.Value, "", st)
}

var errProviderDown = errors.New("connection refused")
