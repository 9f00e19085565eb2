package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

const defaultTimeout = 3 * time.Second

type Store struct {
	Client *mongo.Client
	DB     *mongo.Database

	timeout     time.Duration
	colUsers    *mongo.Collection
	colSensors  *mongo.Collection
	colSessions *mongo.Collection
}

func NewStore(ctx context.Context, uri, dbname string, timeout time.Duration) (*Store, error) {
	cli, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetRetryWrites(true).
		SetMaxPoolSize(50),
	)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	db := cli.Database(dbname)
	return &Store{
		Client:      cli,
		DB:          db,
		timeout:     timeout,
		colUsers:    db.Collection("users"),
		colSensors:  db.Collection("sensors"),
		colSessions: db.Collection("sessions"),
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error { return s.Client.Disconnect(ctx) }

// Index names double as the field reported in a DuplicateKeyError.
const (
	idxEmail        = "uniq_email"
	idxUsername     = "uniq_username"
	idxPublicID     = "uniq_public_id"
	idxProviderLink = "uniq_provider_link"
	idxSensorID     = "uniq_sensor_id"
	idxSessionToken = "uniq_token_hash"
)

var dupFields = map[string]string{
	idxEmail:        "email",
	idxUsername:     "username",
	idxPublicID:     "public_id",
	idxProviderLink: "provider_link",
	idxSensorID:     "sensor_id",
	idxSessionToken: "session",
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.colUsers.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(idxEmail)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName(idxUsername)},
		{Keys: bson.D{{Key: "public_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName(idxPublicID)},
		{
			// one entry per "provider:id"; local-only accounts carry no link_keys
			Keys: bson.D{{Key: "link_keys", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(idxProviderLink).
				SetPartialFilterExpression(bson.M{"link_keys": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "role", Value: 1}}, Options: options.Index().SetName("role")},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err = s.colSensors.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sensor_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName(idxSensorID)},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "sensor_type", Value: 1}},
			Options: options.Index().SetName("owner_type"),
		},
	})
	if err != nil {
		return fmt.Errorf("sensors indexes: %w", err)
	}

	_, err = s.colSessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token_hash", Value: 1}}, Options: options.Index().SetUnique(true).SetName(idxSessionToken)},
		{
			// expired sessions are reaped by mongo
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expire"),
		},
	})
	if err != nil {
		return fmt.Errorf("sessions indexes: %w", err)
	}
	return nil
}

func IsDup(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return false
}

// dupError turns a duplicate-key failure into *domain.DuplicateKeyError naming the field.
func dupError(err error) error {
	msg := err.Error()
	for idx, field := range dupFields {
		if strings.Contains(msg, idx) {
			return &domain.DuplicateKeyError{Field: field}
		}
	}
	return &domain.DuplicateKeyError{Field: "unknown"}
}

func (s *Store) op(ctx context.Context, name string) (context.Context, context.CancelFunc, ddtrace.Span) {
	sp, ctx := tracer.StartSpanFromContext(ctx, name, tracer.SpanType("mongodb"))
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return ctx, cancel, sp
}

// done finishes sp and normalizes err.
func done(sp ddtrace.Span, err error) error {
	switch {
	case err == nil:
	case IsDup(err):
		err = dupError(err)
	case errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err):
		err = fmt.Errorf("store timeout: %w", err)
	}
	sp.Finish(tracer.WithError(err))
	return err
}
