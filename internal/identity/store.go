package identity

import (
	"context"

	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Users is the credential store. Finders return (nil, nil) when nothing matches.
// Insert and Update report unique index violations as *domain.DuplicateKeyError.
type Users interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByPublicID(ctx context.Context, publicID string) (*domain.User, error)
	FindByLink(ctx context.Context, p domain.Provider, providerUserID string) (*domain.User, error)
	MaxPublicID(ctx context.Context, prefix string) (string, error)
	Insert(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	List(ctx context.Context, f domain.UserFilter) ([]domain.User, error)
	DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error)
}

type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(pw, hash string) (bool, error)
}
