package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const StateTTL = 10 * time.Minute

var ErrBadState = errors.New("invalid oauth state")

type stateClaims struct {
	Provider string `json:"prv"`
	jwt.RegisteredClaims
}

// StateSigner issues and checks the CSRF state carried through an OAuth round trip.
type StateSigner struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{key: []byte(secret), ttl: StateTTL, now: time.Now}
}

func (s *StateSigner) Issue(provider string) (string, error) {
	now := s.now()
	c := stateClaims{
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.key)
}

// Verify checks signature, expiry and that the state was issued for provider.
func (s *StateSigner) Verify(state, provider string) error {
	c := &stateClaims{}
	_, err := jwt.ParseWithClaims(state, c, func(*jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadState, err)
	}
	if c.Provider != provider {
		return fmt.Errorf("%w: issued for %q", ErrBadState, c.Provider)
	}
	return nil
}
