package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session binds the hash of an opaque cookie token to a user.
type Session struct {
	TokenHash string             `bson:"token_hash"`
	UserID    primitive.ObjectID `bson:"user_id"`
	ExpiresAt time.Time          `bson:"expires_at"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (s *Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }
