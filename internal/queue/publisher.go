package queue

import (
	"context"
	"time"

	"github.com/tazhibayda/smartfarm-api/internal/log"
	"go.uber.org/zap"
)

// Publisher sends one event under a routing key. Implementations own the
// destination (exchange or subject prefix).
type Publisher interface {
	Publish(ctx context.Context, key string, event any, reqID string) error
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(context.Context, string, any, string) error { return nil }
func (NoopPub) Close() error                                       { return nil }

const publishTimeout = 3 * time.Second

// Emit publishes in the background. A broker outage never fails the request
// that produced the event, it is only logged.
func Emit(ctx context.Context, p Publisher, key string, event any, reqID string) {
	if p == nil {
		return
	}
	l := log.From(ctx, zap.String("routing_key", key))
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := p.Publish(ctx, key, event, reqID); err != nil {
			l.Warn("publish event failed", zap.Error(err))
		}
	}()
}
