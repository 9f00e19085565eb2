package repo

import (
	"context"
	"errors"

	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Sessions persists sessions in mongo; a TTL index reaps expired ones.
type Sessions struct{ s *Store }

func (s *Store) Sessions() *Sessions { return &Sessions{s: s} }

func (r *Sessions) Create(ctx context.Context, sess *domain.Session) error {
	ctx, cancel, sp := r.s.op(ctx, "mongo.sessions.insert")
	defer cancel()
	_, err := r.s.colSessions.InsertOne(ctx, sess)
	return done(sp, err)
}

func (r *Sessions) Get(ctx context.Context, tokenHash string) (*domain.Session, error) {
	ctx, cancel, sp := r.s.op(ctx, "mongo.sessions.find")
	defer cancel()
	var sess domain.Session
	err := r.s.colSessions.FindOne(ctx, bson.M{"token_hash": tokenHash}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, done(sp, nil)
	}
	if err != nil {
		return nil, done(sp, err)
	}
	return &sess, done(sp, nil)
}

func (r *Sessions) Delete(ctx context.Context, tokenHash string) error {
	ctx, cancel, sp := r.s.op(ctx, "mongo.sessions.delete")
	defer cancel()
	_, err := r.s.colSessions.DeleteOne(ctx, bson.M{"token_hash": tokenHash})
	return done(sp, err)
}
