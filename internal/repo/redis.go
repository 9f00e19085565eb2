package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
)

type Redis struct{ C *redis.Client }

func NewRedis(addr string) *Redis {
	return &Redis{C: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Ping(ctx context.Context) error { return r.C.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.C.Close() }

const sessionKeyPrefix = "session:"

// RedisSessions keeps sessions as JSON values whose redis TTL matches ExpiresAt.
type RedisSessions struct {
	r       *Redis
	timeout time.Duration
}

func NewRedisSessions(r *Redis, timeout time.Duration) *RedisSessions {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &RedisSessions{r: r, timeout: timeout}
}

func (s *RedisSessions) Create(ctx context.Context, sess *domain.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ok, err := s.r.C.SetNX(ctx, sessionKeyPrefix+sess.TokenHash, b, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	if !ok {
		return &domain.DuplicateKeyError{Field: "session"}
	}
	return nil
}

func (s *RedisSessions) Get(ctx context.Context, tokenHash string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	b, err := s.r.C.Get(ctx, sessionKeyPrefix+tokenHash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisSessions) Delete(ctx context.Context, tokenHash string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.r.C.Del(ctx, sessionKeyPrefix+tokenHash).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}
