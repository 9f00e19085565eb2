package identity_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"github.com/tazhibayda/smartfarm-api/internal/identity"
	"github.com/tazhibayda/smartfarm-api/internal/repo/memory"
)

func TestPublicIDFormatParse(t *testing.T) {
	g := identity.NewPublicIDs("SM-", 5, 5)

	assert.Equal(t, "SM-00001", g.Format(1))
	assert.Equal(t, "SM-12345", g.Format(12345))

	n, ok := g.Parse("SM-00042")
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	for _, bad := range []string{"SM-42", "XX-00042", "SM-0004a", ""} {
		_, ok := g.Parse(bad)
		assert.False(t, ok, bad)
	}
}

func TestPublicIDAfter(t *testing.T) {
	g := identity.NewPublicIDs("SM-", 5, 5)

	id, err := g.After("")
	require.NoError(t, err)
	assert.Equal(t, "SM-00001", id)

	id, err = g.After("SM-00009")
	require.NoError(t, err)
	assert.Equal(t, "SM-00010", id)

	_, err = g.After("SM-99999")
	assert.Equal(t, domain.KindExhausted, domain.KindOf(err))

	_, err = g.After("garbage")
	assert.Error(t, err)
}

// staleUsers reports an outdated maximum for the first n reads, the way a
// replica lagging behind a concurrent insert would.
type staleUsers struct {
	*memory.Users
	mu    sync.Mutex
	stale int
	reads int
}

func (s *staleUsers) MaxPublicID(ctx context.Context, prefix string) (string, error) {
	s.mu.Lock()
	s.reads++
	lag := s.reads <= s.stale
	s.mu.Unlock()
	if lag {
		return "", nil
	}
	return s.Users.MaxPublicID(ctx, prefix)
}

func newUser(email string) func(string) *domain.User {
	return func(pid string) *domain.User {
		local, _, _ := strings.Cut(email, "@")
		return &domain.User{PublicID: pid, Email: email, Username: local, Role: domain.RoleUser}
	}
}

func TestPublicIDRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	users := &staleUsers{Users: memory.NewUsers()}
	g := identity.NewPublicIDs("SM-", 5, 5)

	_, err := g.Create(ctx, users, newUser("first@example.com"))
	require.NoError(t, err)

	users.stale, users.reads = 2, 0
	u, err := g.Create(ctx, users, newUser("second@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "SM-00002", u.PublicID)
	assert.Equal(t, 3, users.reads)
}

func TestPublicIDGivesUpAfterAttempts(t *testing.T) {
	ctx := context.Background()
	users := &staleUsers{Users: memory.NewUsers()}
	g := identity.NewPublicIDs("SM-", 5, 3)

	_, err := g.Create(ctx, users, newUser("first@example.com"))
	require.NoError(t, err)

	users.stale, users.reads = 100, 0
	_, err = g.Create(ctx, users, newUser("second@example.com"))
	assert.Equal(t, domain.KindExhausted, domain.KindOf(err))
	assert.Equal(t, 3, users.reads)

	all, err := users.List(ctx, domain.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1, "a failed allocation leaves nothing behind")
}

func TestPublicIDOtherDuplicateIsNotRetried(t *testing.T) {
	ctx := context.Background()
	users := &staleUsers{Users: memory.NewUsers()}
	g := identity.NewPublicIDs("SM-", 5, 5)

	_, err := g.Create(ctx, users, newUser("first@example.com"))
	require.NoError(t, err)
	_, err = g.Create(ctx, users, newUser("first@example.com"))
	f, ok := domain.DuplicateField(err)
	require.True(t, ok)
	assert.Equal(t, "email", f)
	assert.Equal(t, 2, users.reads)
}

func TestPublicIDConcurrentRegistrationsAreDistinct(t *testing.T) {
	const n = 10
	ctx := context.Background()
	users := memory.NewUsers()
	// a writer can lose at most n-1 rounds, one per competing winner
	g := identity.NewPublicIDs("SM-", 5, n)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ids  = map[string]bool{}
		errs []error
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			u, err := g.Create(ctx, users, newUser(fmt.Sprintf("user%02d@example.com", i)))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			ids[u.PublicID] = true
		}(i)
	}
	close(start)
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, ids, n)
	for i := 1; i <= n; i++ {
		assert.True(t, ids[g.Format(i)], g.Format(i))
	}
}
