package repo_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"github.com/tazhibayda/smartfarm-api/internal/identity"
	"github.com/tazhibayda/smartfarm-api/internal/repo"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newMongoStore(t *testing.T) *repo.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	mc, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mc.Terminate(context.Background()) })

	uri, err := mc.ConnectionString(ctx)
	require.NoError(t, err)

	store, err := repo.NewStore(ctx, uri, "smartfarm_test", 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}

func user(pid, email, username string, links ...domain.ProviderLink) *domain.User {
	return &domain.User{PublicID: pid, Email: email, Username: username, Role: domain.RoleUser, Links: links}
}

func TestMongoUsers(t *testing.T) {
	store := newMongoStore(t)
	users := store.Users()
	ctx := context.Background()

	gh := domain.ProviderLink{Provider: domain.ProviderGitHub, ProviderUserID: "1"}
	a := user("SM-00001", "a@example.com", "alice", gh)
	require.NoError(t, users.Insert(ctx, a))
	require.False(t, a.ID.IsZero())
	require.NoError(t, users.Insert(ctx, user("SM-00002", "b@example.com", "bob")))
	require.NoError(t, users.Insert(ctx, user("SM-00003", "c@example.com", "carol")), "users without links do not collide")

	dups := []struct {
		u     *domain.User
		field string
	}{
		{user("SM-00009", "a@example.com", "zed"), "email"},
		{user("SM-00009", "z@example.com", "alice"), "username"},
		{user("SM-00002", "z@example.com", "zed"), "public_id"},
		{user("SM-00009", "z@example.com", "zed", gh), "provider_link"},
	}
	for _, d := range dups {
		err := users.Insert(ctx, d.u)
		f, ok := domain.DuplicateField(err)
		require.True(t, ok, "%v", err)
		assert.Equal(t, d.field, f)
	}

	got, err := users.FindByLink(ctx, domain.ProviderGitHub, "1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)

	none, err := users.FindByLink(ctx, domain.ProviderGoogle, "1")
	require.NoError(t, err)
	assert.Nil(t, none)

	top, err := users.MaxPublicID(ctx, "SM-")
	require.NoError(t, err)
	assert.Equal(t, "SM-00003", top)

	got.Links = append(got.Links, domain.ProviderLink{Provider: domain.ProviderGoogle, ProviderUserID: "g1"})
	got.Verified = true
	require.NoError(t, users.Update(ctx, got))
	again, err := users.FindByLink(ctx, domain.ProviderGoogle, "g1")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.True(t, again.Verified)
	assert.Len(t, again.Links, 2)

	list, err := users.List(ctx, domain.UserFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "SM-00001", list[0].PublicID)

	n, err := users.DeleteMany(ctx, []primitive.ObjectID{a.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMongoPublicIDsUnderConcurrency(t *testing.T) {
	store := newMongoStore(t)
	users := store.Users()
	const n = 8
	g := identity.NewPublicIDs("SM-", 5, n)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := g.Create(context.Background(), users, func(pid string) *domain.User {
				return user(pid, fmt.Sprintf("u%d@example.com", i), fmt.Sprintf("user_%d", i))
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	list, err := users.List(context.Background(), domain.UserFilter{})
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, u := range list {
		assert.False(t, seen[u.PublicID], u.PublicID)
		seen[u.PublicID] = true
	}
	assert.Len(t, seen, n)
}

func TestMongoSessionsAndSensors(t *testing.T) {
	store := newMongoStore(t)
	ctx := context.Background()

	sessions := store.Sessions()
	s := &domain.Session{TokenHash: "h1", UserID: primitive.NewObjectID(), ExpiresAt: time.Now().Add(time.Hour), CreatedAt: time.Now()}
	require.NoError(t, sessions.Create(ctx, s))
	_, dup := domain.DuplicateField(sessions.Create(ctx, s))
	assert.True(t, dup)
	got, err := sessions.Get(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.UserID, got.UserID)
	require.NoError(t, sessions.Delete(ctx, "h1"))
	got, err = sessions.Get(ctx, "h1")
	require.NoError(t, err)
	assert.Nil(t, got)

	sensors := store.Sensors()
	owner, other := primitive.NewObjectID(), primitive.NewObjectID()
	sn := &domain.Sensor{SensorID: "sen_0001", Name: "T", Type: domain.SensorTemperature, OwnerID: owner}
	require.NoError(t, sensors.Create(ctx, sn))
	_, dup = domain.DuplicateField(sensors.Create(ctx, &domain.Sensor{SensorID: "sen_0001", OwnerID: other}))
	assert.True(t, dup)

	found, err := sensors.Find(ctx, other, "sen_0001")
	require.NoError(t, err)
	assert.Nil(t, found)

	list, err := sensors.List(ctx, owner, domain.SensorTemperature)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	deleted, err := sensors.Delete(ctx, other, "sen_0001")
	require.NoError(t, err)
	assert.False(t, deleted)
	deleted, err = sensors.Delete(ctx, owner, "sen_0001")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestRedisSessions(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	rc, err := tcredis.Run(ctx, "redis:7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Terminate(context.Background()) })
	uri, err := rc.ConnectionString(ctx)
	require.NoError(t, err)

	r := repo.NewRedis(strings.TrimPrefix(uri, "redis://"))
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.Ping(ctx))
	sessions := repo.NewRedisSessions(r, time.Second)

	s := &domain.Session{TokenHash: "h1", UserID: primitive.NewObjectID(), ExpiresAt: time.Now().Add(time.Hour), CreatedAt: time.Now()}
	require.NoError(t, sessions.Create(ctx, s))
	_, dup := domain.DuplicateField(sessions.Create(ctx, s))
	assert.True(t, dup)

	got, err := sessions.Get(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.UserID, got.UserID)

	ttl, err := r.C.TTL(ctx, "session:h1").Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5)

	require.NoError(t, sessions.Delete(ctx, "h1"))
	got, err = sessions.Get(ctx, "h1")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, sessions.Create(ctx, &domain.Session{TokenHash: "old", ExpiresAt: time.Now().Add(-time.Minute)}))
}
