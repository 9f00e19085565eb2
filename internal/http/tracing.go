package http

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/ext"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// Trace opens one server span per request and puts it on the request context
// so store and provider spans nest under it.
func Trace(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts := []tracer.StartSpanOption{
			tracer.ServiceName(service),
			tracer.SpanType(ext.SpanTypeWeb),
			tracer.Tag(ext.HTTPMethod, c.Request.Method),
			tracer.Tag(ext.HTTPURL, c.Request.URL.Path),
		}
		if sctx, err := tracer.Extract(tracer.HTTPHeadersCarrier(c.Request.Header)); err == nil {
			opts = append(opts, tracer.ChildOf(sctx))
		}
		sp, ctx := tracer.StartSpanFromContext(c.Request.Context(), "http.request", opts...)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		sp.SetTag(ext.ResourceName, c.Request.Method+" "+route(c))
		sp.SetTag(ext.HTTPCode, strconv.Itoa(c.Writer.Status()))
		if c.Writer.Status() >= 500 {
			sp.SetTag(ext.Error, true)
		}
		sp.Finish()
	}
}

func WithSpan(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	sp, ctx2 := tracer.StartSpanFromContext(ctx, name)
	err := fn(ctx2)
	sp.Finish(tracer.WithError(err))
	return err
}
