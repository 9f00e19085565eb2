package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("Secret123!")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123!", hash)

	ok, err := h.Verify("Secret123!", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("Secret124!", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasherSalts(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	a, err := h.Hash("Secret123!")
	require.NoError(t, err)
	b, err := h.Hash("Secret123!")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHasherRejectsEmptyAndMalformed(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	_, err := h.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)

	_, err = h.Verify("", "whatever")
	assert.ErrorIs(t, err, ErrEmptyPassword)

	ok, err := h.Verify("Secret123!", "not-a-bcrypt-hash")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewHasherClampsCost(t *testing.T) {
	assert.Equal(t, DefaultCost, NewHasher(0).cost)
	assert.Equal(t, DefaultCost, NewHasher(99).cost)
}

func TestSessionToken(t *testing.T) {
	a, err := NewSessionToken()
	require.NoError(t, err)
	b, err := NewSessionToken()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
	assert.Equal(t, HashToken(a), HashToken(a))
	assert.NotEqual(t, a, HashToken(a))
}

func TestStateSigner(t *testing.T) {
	s := NewStateSigner("k1")

	st, err := s.Issue("github")
	require.NoError(t, err)
	assert.NoError(t, s.Verify(st, "github"))

	assert.ErrorIs(t, s.Verify(st, "google"), ErrBadState)
	assert.ErrorIs(t, NewStateSigner("k2").Verify(st, "github"), ErrBadState)
	assert.ErrorIs(t, s.Verify("garbage", "github"), ErrBadState)
}

func TestStateSignerExpiry(t *testing.T) {
	s := NewStateSigner("k1")
	base := time.Now()
	s.now = func() time.Time { return base }

	st, err := s.Issue("google")
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(StateTTL + time.Minute) }
	assert.ErrorIs(t, s.Verify(st, "google"), ErrBadState)
}
