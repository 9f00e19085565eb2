package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tazhibayda/smartfarm-api/internal/log"
	"github.com/tazhibayda/smartfarm-api/internal/metrics"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "X-Request-ID"
	requestIDHeader = "X-Request-ID"
)

// RequestID keeps an incoming X-Request-ID or mints one, and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route(c)),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("ip", c.ClientIP()),
			zap.Stringer("session", SessionState(c)),
		}
		if u, ok := CurrentUser(c); ok {
			fields = append(fields, zap.String("user", u.PublicID))
		}
		l := log.From(c.Request.Context())
		if c.Writer.Status() >= 500 {
			l.Warn("http", fields...)
			return
		}
		l.Info("http", fields...)
	}
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.InFlight.Inc()
		start := time.Now()
		c.Next()
		metrics.InFlight.Dec()

		r := route(c)
		metrics.ReqDuration.WithLabelValues(r, c.Request.Method).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(r, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// route is the matched pattern; unmatched paths share one label.
func route(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}
