package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileChanges is a partial update; empty fields are left untouched.
type ProfileChanges struct {
	Username    string
	Email       string
	FullName    string
	AvatarURL   string
	Bio         string
	Website     string
	Location    string
	PhoneNumber string
	Preferences map[string]string
	Role        domain.Role // honoured only by AdminUpdate
}

func (r *Resolver) UpdateProfile(ctx context.Context, id primitive.ObjectID, ch ProfileChanges) (*domain.User, error) {
	ch.Role = ""
	return r.update(ctx, id, ch)
}

// AdminUpdate applies ch to the user with publicID on behalf of an actor
// holding role actor. Only a superadmin may touch admin accounts or grant
// admin roles.
func (r *Resolver) AdminUpdate(ctx context.Context, actor domain.Role, publicID string, ch ProfileChanges) (*domain.User, error) {
	if ch.Role != "" && !ch.Role.Valid() {
		return nil, domain.Validation("role", "unknown role")
	}
	u, err := r.users.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, fmt.Errorf("find by public id: %w", err)
	}
	if u == nil {
		return nil, domain.NotFound("user")
	}
	if !actor.AtLeast(domain.RoleSuperAdmin) {
		if u.Role.AtLeast(domain.RoleAdmin) {
			return nil, domain.Forbidden("only a superadmin can modify admin accounts")
		}
		if ch.Role.AtLeast(domain.RoleAdmin) {
			return nil, domain.Forbidden("only a superadmin can grant admin roles")
		}
	}
	return r.update(ctx, u.ID, ch)
}

func (r *Resolver) update(ctx context.Context, id primitive.ObjectID, ch ProfileChanges) (*domain.User, error) {
	u, err := r.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find by id: %w", err)
	}
	if u == nil {
		return nil, domain.NotFound("user")
	}

	if ch.Email != "" {
		email := domain.NormalizeEmail(ch.Email)
		if !domain.ValidEmail(email) {
			return nil, domain.Validation("email", "a valid email is required")
		}
		if email != u.Email {
			if o, err := r.users.FindByEmail(ctx, email); err != nil {
				return nil, fmt.Errorf("find by email: %w", err)
			} else if o != nil {
				return nil, domain.Duplicate("email")
			}
			u.Email = email
			u.Verified = false
		}
	}
	if ch.Username != "" {
		name := domain.NormalizeUsername(ch.Username)
		if !domain.ValidUsername(name) {
			return nil, domain.Validation("username", "username must be 3-20 letters, digits or underscores and not start with a digit")
		}
		if name != u.Username {
			if o, err := r.users.FindByUsername(ctx, name); err != nil {
				return nil, fmt.Errorf("find by username: %w", err)
			} else if o != nil {
				return nil, domain.Duplicate("username")
			}
			u.Username = name
		}
	}

	in := domain.Profile{
		FullName:    strings.TrimSpace(ch.FullName),
		AvatarURL:   ch.AvatarURL,
		Bio:         ch.Bio,
		Website:     ch.Website,
		Location:    ch.Location,
		PhoneNumber: ch.PhoneNumber,
		Preferences: ch.Preferences,
	}
	if err := copier.CopyWithOption(&u.Profile, &in, copier.Option{IgnoreEmpty: true}); err != nil {
		return nil, fmt.Errorf("apply profile: %w", err)
	}
	if ch.Role != "" {
		u.Role = ch.Role
	}

	if err := r.users.Update(ctx, u); err != nil {
		return nil, duplicateOr(err, "update user")
	}
	return u.Public(), nil
}
