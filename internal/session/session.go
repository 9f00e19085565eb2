package session

import (
	"context"
	"fmt"
	"time"

	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"github.com/tazhibayda/smartfarm-api/internal/log"
	"github.com/tazhibayda/smartfarm-api/internal/metrics"
	"github.com/tazhibayda/smartfarm-api/internal/security"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Store persists sessions keyed by token hash. Get returns (nil, nil) when absent.
type Store interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, tokenHash string) (*domain.Session, error)
	Delete(ctx context.Context, tokenHash string) error
}

type UserLoader interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	LoggedOut
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case LoggedOut:
		return "logged_out"
	}
	return "anonymous"
}

// Ticket is what a successful login hands to the transport: the cookie value and its expiry.
type Ticket struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

type Authenticator struct {
	sessions Store
	users    UserLoader
	ttl      time.Duration
	now      func() time.Time
}

func NewAuthenticator(sessions Store, users UserLoader, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{sessions: sessions, users: users, ttl: ttl, now: time.Now}
}

func (a *Authenticator) TTL() time.Duration { return a.ttl }

// Authenticate runs check and, if it yields a user, opens a session for it.
// A failed check creates nothing and its error is returned unchanged.
func (a *Authenticator) Authenticate(ctx context.Context, method string, check func(context.Context) (*domain.User, error)) (*Ticket, error) {
	u, err := check(ctx)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(method, domain.KindOf(err).String()).Inc()
		return nil, err
	}
	t, err := a.Open(ctx, u)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(method, "session_error").Inc()
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues(method, "ok").Inc()
	return t, nil
}

func (a *Authenticator) Open(ctx context.Context, u *domain.User) (*Ticket, error) {
	tok, err := security.NewSessionToken()
	if err != nil {
		return nil, fmt.Errorf("session token: %w", err)
	}
	now := a.now().UTC()
	s := &domain.Session{
		TokenHash: security.HashToken(tok),
		UserID:    u.ID,
		ExpiresAt: now.Add(a.ttl),
		CreatedAt: now,
	}
	if err := a.sessions.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Ticket{Token: tok, ExpiresAt: s.ExpiresAt, User: u.Public()}, nil
}

// Resume maps a cookie token back to the current user record. Missing, expired
// and dangling sessions all come back as AuthenticationRequired; the latter two
// are removed on the way.
func (a *Authenticator) Resume(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.AuthRequired()
	}
	hash := security.HashToken(token)
	s, err := a.sessions.Get(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		return nil, domain.AuthRequired()
	}
	if s.Expired(a.now()) {
		a.drop(ctx, hash)
		return nil, domain.AuthRequired()
	}
	u, err := a.users.FindByID(ctx, s.UserID)
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	if u == nil {
		metrics.SessionsDangling.Inc()
		log.From(ctx).Info("session user gone", zap.String("user_id", s.UserID.Hex()))
		a.drop(ctx, hash)
		return nil, domain.AuthRequired()
	}
	return u.Public(), nil
}

// Logout destroys the session behind token. Unknown or empty tokens are not an error.
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := a.sessions.Delete(ctx, security.HashToken(token)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (a *Authenticator) drop(ctx context.Context, hash string) {
	if err := a.sessions.Delete(ctx, hash); err != nil {
		log.From(ctx).Warn("drop session failed", zap.Error(err))
	}
}
