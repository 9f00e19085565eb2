package identity

import (
	"context"
	"fmt"

	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Directory is the read side used by the profile and admin endpoints.
type Directory struct {
	users Users
}

func NewDirectory(users Users) *Directory { return &Directory{users: users} }

func (d *Directory) ByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return d.one(d.users.FindByID(ctx, id))
}

func (d *Directory) ByPublicID(ctx context.Context, publicID string) (*domain.User, error) {
	return d.one(d.users.FindByPublicID(ctx, publicID))
}

func (d *Directory) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	return d.one(d.users.FindByUsername(ctx, domain.NormalizeUsername(username)))
}

func (d *Directory) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	return d.one(d.users.FindByEmail(ctx, domain.NormalizeEmail(email)))
}

func (d *Directory) one(u *domain.User, err error) (*domain.User, error) {
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, domain.NotFound("user")
	}
	return u.Public(), nil
}

func (d *Directory) List(ctx context.Context, f domain.UserFilter) ([]domain.User, error) {
	if f.Role != "" && !f.Role.Valid() {
		return nil, domain.Validation("role", "unknown role")
	}
	users, err := d.users.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for i := range users {
		users[i] = *users[i].Public()
	}
	return users, nil
}

// DeleteMany removes the accounts named by publicIDs. Unknown ids are skipped;
// the acting account cannot remove itself.
func (d *Directory) DeleteMany(ctx context.Context, actor primitive.ObjectID, publicIDs []string) (int64, error) {
	if len(publicIDs) == 0 {
		return 0, domain.Validation("publicIds", "at least one public id is required")
	}
	ids := make([]primitive.ObjectID, 0, len(publicIDs))
	for _, pid := range publicIDs {
		u, err := d.users.FindByPublicID(ctx, pid)
		if err != nil {
			return 0, fmt.Errorf("find by public id: %w", err)
		}
		if u == nil {
			continue
		}
		if u.ID == actor {
			return 0, domain.Validation("publicIds", "cannot delete your own account")
		}
		ids = append(ids, u.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := d.users.DeleteMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete users: %w", err)
	}
	return n, nil
}
