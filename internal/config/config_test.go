package config_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhibayda/smartfarm-api/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	c, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "sessionId", c.SessionCookie)
	assert.Equal(t, 24*time.Hour, c.SessionTTL)
	assert.Equal(t, 3*time.Second, c.StoreTimeout)
	assert.Equal(t, "SM-", c.PublicIDPrefix)
	assert.Equal(t, 5, c.PublicIDWidth)
	assert.Equal(t, 5, c.PublicIDAttempts)
	assert.False(t, c.Production())
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite())
	assert.False(t, c.GitHub.Enabled())
}

func TestLoadProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")

	c, err := config.Load()
	require.NoError(t, err)

	assert.True(t, c.Production())
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite())
	assert.Equal(t, 2*time.Hour, c.SessionTTL)
	assert.True(t, c.GitHub.Enabled())
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoadNotifier(t *testing.T) {
	t.Setenv("RABBIT_BIND_KEYS", "user.registered")
	c, err := config.LoadNotifier()
	require.NoError(t, err)
	assert.Equal(t, []string{"user.registered"}, c.BindKeys)
	assert.Equal(t, 4, c.Concurrency)
}
