package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// NATSPublisher maps a routing key onto the subject <prefix>.<key>.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

func NewNATS(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("smartfarm-api"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

func (p *NATSPublisher) Subject(key string) string {
	if p.prefix == "" {
		return key
	}
	return p.prefix + "." + key
}

func (p *NATSPublisher) Publish(ctx context.Context, key string, event any, reqID string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(p.Subject(key))
	msg.Data = body
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())
	msg.Header.Set("X-Request-ID", reqID)
	if err := p.nc.PublishMsg(msg); err != nil {
		return err
	}
	return p.nc.FlushWithContext(ctx)
}

func (p *NATSPublisher) Close() error {
	if p == nil || p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
