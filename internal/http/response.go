package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"github.com/tazhibayda/smartfarm-api/internal/log"
	"go.uber.org/zap"
)

// Envelope wraps every JSON response.
type Envelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

func ok(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, Envelope{Success: true, Message: msg, Data: data})
}

func statusOf(k domain.Kind) int {
	switch k {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindInvalidCredentials, domain.KindAuthRequired:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindDuplicate:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail writes the error envelope. Internal failures are logged and answered
// with a generic message.
func fail(c *gin.Context, err error) {
	k := domain.KindOf(err)
	status := statusOf(k)
	body := &ErrorBody{Code: k.String()}
	msg := "internal server error"

	var de *domain.Error
	if errors.As(err, &de) {
		body.Field = de.Field
	}
	switch {
	case k == domain.KindUpstream:
		msg = "sign-in provider unavailable"
		if de != nil {
			msg = de.Message
		}
		logFor(c).Warn("upstream provider failed", zap.Error(err))
	case status >= http.StatusInternalServerError:
		logFor(c).Error("request failed", zap.Error(err))
	case de != nil:
		msg = de.Message
	default:
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: msg, Error: body})
}

// badRequest reports a body that could not be bound.
func badRequest(c *gin.Context, err error) {
	fail(c, bindError(err))
}

func logFor(c *gin.Context) *zap.Logger {
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.String("request_id", c.GetString(requestIDKey)),
	}
	if u, ok := CurrentUser(c); ok {
		fields = append(fields, zap.String("user", u.PublicID))
	}
	return log.From(c.Request.Context(), fields...)
}
