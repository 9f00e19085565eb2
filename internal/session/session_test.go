package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"github.com/tazhibayda/smartfarm-api/internal/repo/memory"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fixture struct {
	auth     *Authenticator
	users    *memory.Users
	sessions *memory.Sessions
	user     *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := memory.NewUsers()
	sessions := memory.NewSessions()
	u := &domain.User{PublicID: "SM-00001", Email: "alice@example.com", Username: "alice", PasswordHash: "x", Role: domain.RoleUser}
	require.NoError(t, users.Insert(context.Background(), u))
	return &fixture{
		auth:     NewAuthenticator(sessions, users, time.Hour),
		users:    users,
		sessions: sessions,
		user:     u,
	}
}

func (f *fixture) ok(context.Context) (*domain.User, error) { return f.user, nil }

func TestLoginResumeLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tk, err := f.auth.Authenticate(ctx, "local", f.ok)
	require.NoError(t, err)
	assert.NotEmpty(t, tk.Token)
	assert.Empty(t, tk.User.PasswordHash)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tk.ExpiresAt, 5*time.Second)
	assert.Equal(t, 1, f.sessions.Len())

	u, err := f.auth.Resume(ctx, tk.Token)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, u.ID)
	assert.Empty(t, u.PasswordHash)

	require.NoError(t, f.auth.Logout(ctx, tk.Token))
	require.NoError(t, f.auth.Logout(ctx, tk.Token), "logout is idempotent")
	require.NoError(t, f.auth.Logout(ctx, ""))

	_, err = f.auth.Resume(ctx, tk.Token)
	assert.Equal(t, domain.KindAuthRequired, domain.KindOf(err))
}

func TestFailedCheckCreatesNoSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Authenticate(context.Background(), "local", func(context.Context) (*domain.User, error) {
		return nil, domain.InvalidCredentials()
	})
	assert.Equal(t, domain.KindInvalidCredentials, domain.KindOf(err))
	assert.Equal(t, 0, f.sessions.Len())
}

func TestResumeRejectsMissingAndUnknownTokens(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Resume(context.Background(), "")
	assert.Equal(t, domain.KindAuthRequired, domain.KindOf(err))
	_, err = f.auth.Resume(context.Background(), "not-a-session")
	assert.Equal(t, domain.KindAuthRequired, domain.KindOf(err))
}

func TestResumeExpiredSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk, err := f.auth.Authenticate(ctx, "local", f.ok)
	require.NoError(t, err)

	f.auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = f.auth.Resume(ctx, tk.Token)
	assert.Equal(t, domain.KindAuthRequired, domain.KindOf(err))
	assert.Equal(t, 0, f.sessions.Len(), "expired session is removed")
}

func TestResumeDanglingSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk, err := f.auth.Authenticate(ctx, "local", f.ok)
	require.NoError(t, err)

	n, err := f.users.DeleteMany(ctx, []primitive.ObjectID{f.user.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = f.auth.Resume(ctx, tk.Token)
	assert.Equal(t, domain.KindAuthRequired, domain.KindOf(err))
	assert.Equal(t, 0, f.sessions.Len())
}

type brokenStore struct{ memory.Sessions }

func (*brokenStore) Get(context.Context, string) (*domain.Session, error) {
	return nil, errors.New("connection reset")
}

func TestResumeStoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	a := NewAuthenticator(&brokenStore{}, f.users, time.Hour)
	_, err := a.Resume(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "anonymous", State(99).String())
}
