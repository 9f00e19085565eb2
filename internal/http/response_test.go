package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
)

func TestFailMapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   string
		msg    string
	}{
		{domain.Validation("email", "a valid email is required"), http.StatusBadRequest, "validation_error", "a valid email is required"},
		{domain.InvalidCredentials(), http.StatusUnauthorized, "invalid_credentials", "invalid email or password"},
		{domain.AuthRequired(), http.StatusUnauthorized, "authentication_required", "authentication required"},
		{domain.Forbidden("insufficient role"), http.StatusForbidden, "forbidden", "insufficient role"},
		{fmt.Errorf("register: %w", domain.Duplicate("email")), http.StatusConflict, "duplicate_identity", "email already in use"},
		{domain.NotFound("user"), http.StatusNotFound, "not_found", "user not found"},
		{domain.Upstream("github", errors.New("eof")), http.StatusBadGateway, "upstream_provider_error", "github sign-in failed"},
		{fmt.Errorf("allocate: %w", domain.ErrExhausted), http.StatusInternalServerError, "resource_exhausted", "internal server error"},
		{errors.New("mongo: connection reset by peer"), http.StatusInternalServerError, "internal_error", "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/x", nil)
			fail(c, tc.err)

			require.Equal(t, tc.status, w.Code)
			var env Envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.False(t, env.Success)
			assert.Equal(t, tc.msg, env.Message)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
			assert.NotContains(t, w.Body.String(), "mongo")
		})
	}
}

func TestRequireRoleWithoutUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireRole(domain.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
