package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"github.com/tazhibayda/smartfarm-api/internal/helper"
	"github.com/tazhibayda/smartfarm-api/internal/log"
	"go.uber.org/zap"
)

// Outcome says what ResolveOAuth did to the account.
type Outcome int

const (
	Refreshed Outcome = iota // existing link, tokens updated
	Linked                   // provider attached to an existing account
	Created                  // new account from the provider profile
)

func (o Outcome) String() string {
	switch o {
	case Linked:
		return "linked"
	case Created:
		return "created"
	}
	return "refreshed"
}

// Resolver finds or creates the canonical user for a credential.
type Resolver struct {
	users  Users
	hasher PasswordHasher
	ids    *PublicIDs

	dummyOnce sync.Once
	dummyHash string
}

func NewResolver(users Users, hasher PasswordHasher, ids *PublicIDs) *Resolver {
	return &Resolver{users: users, hasher: hasher, ids: ids}
}

// RegisterInput is a local sign-up request before normalisation.
type RegisterInput struct {
	Email    string
	Password string
	Username string
	FullName string
}

func (in *RegisterInput) normalize() error {
	in.Email = domain.NormalizeEmail(in.Email)
	in.Username = domain.NormalizeUsername(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	switch {
	case !domain.ValidEmail(in.Email):
		return domain.Validation("email", "a valid email is required")
	case !domain.ValidUsername(in.Username):
		return domain.Validation("username", "username must be 3-20 letters, digits or underscores and not start with a digit")
	case !domain.StrongPassword(in.Password):
		return domain.Validation("password", "password must be 8-50 chars with upper, lower, digit and one of @$!%*?&")
	}
	return nil
}

func (r *Resolver) RegisterLocal(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if err := r.ensureFree(ctx, in.Email, in.Username); err != nil {
		return nil, err
	}
	hash, err := r.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	u, err := r.ids.Create(ctx, r.users, func(publicID string) *domain.User {
		return &domain.User{
			PublicID:     publicID,
			Email:        in.Email,
			Username:     in.Username,
			PasswordHash: hash,
			Profile:      domain.Profile{FullName: in.FullName},
			Role:         domain.RoleUser,
		}
	})
	if err != nil {
		return nil, duplicateOr(err, "register")
	}
	log.From(ctx).Info("user registered",
		zap.String("public_id", u.PublicID), zap.String("email_hash", helper.Hash8(u.Email)))
	return u.Public(), nil
}

// ensureFree rejects an email or username that already belongs to someone.
func (r *Resolver) ensureFree(ctx context.Context, email, username string) error {
	if u, err := r.users.FindByEmail(ctx, email); err != nil {
		return fmt.Errorf("find by email: %w", err)
	} else if u != nil {
		return domain.Duplicate("email")
	}
	if u, err := r.users.FindByUsername(ctx, username); err != nil {
		return fmt.Errorf("find by username: %w", err)
	} else if u != nil {
		return domain.Duplicate("username")
	}
	return nil
}

// AuthenticateLocal fails with the same InvalidCredentials error for an unknown
// email, an account without a password and a wrong password.
func (r *Resolver) AuthenticateLocal(ctx context.Context, email, password string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.InvalidCredentials()
	}
	u, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find by email: %w", err)
	}
	if u == nil || !u.HasPassword() {
		r.burn(password)
		return nil, domain.InvalidCredentials()
	}
	ok, err := r.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.InvalidCredentials()
	}
	return u.Public(), nil
}

// burn spends roughly one verify worth of CPU so a miss costs the same as a wrong password.
func (r *Resolver) burn(password string) {
	r.dummyOnce.Do(func() {
		r.dummyHash, _ = r.hasher.Hash("dummy-Passw0rd!")
	})
	if r.dummyHash != "" {
		_, _ = r.hasher.Verify(password, r.dummyHash)
	}
}

// ResolveOAuth maps a provider identity onto exactly one account: the one
// already linked to it, else the one owning the same email, else a new one.
// Losing a create race to a concurrent callback for the same person resolves again once.
func (r *Resolver) ResolveOAuth(ctx context.Context, p domain.OAuthProfile) (*domain.User, Outcome, error) {
	if err := p.Validate(); err != nil {
		return nil, 0, err
	}
	u, o, err := r.resolve(ctx, p)
	if lostRace(err) {
		return r.resolve(ctx, p)
	}
	return u, o, err
}

func lostRace(err error) bool {
	var de *domain.Error
	if !errors.As(err, &de) || !errors.Is(de.Err, domain.ErrDuplicate) {
		return false
	}
	return de.Field == "email" || de.Field == "provider_link"
}

func (r *Resolver) resolve(ctx context.Context, p domain.OAuthProfile) (*domain.User, Outcome, error) {
	l := log.From(ctx, zap.String("provider", string(p.Provider)))

	u, err := r.users.FindByLink(ctx, p.Provider, p.ProviderUserID)
	if err != nil {
		return nil, 0, fmt.Errorf("find by link: %w", err)
	}
	if u != nil {
		setTokens(u, p)
		if err := backfill(u, p); err != nil {
			return nil, 0, err
		}
		if err := r.users.Update(ctx, u); err != nil {
			return nil, 0, duplicateOr(err, "refresh link")
		}
		return u.Public(), Refreshed, nil
	}

	if p.Email != "" {
		u, err = r.users.FindByEmail(ctx, p.Email)
		if err != nil {
			return nil, 0, fmt.Errorf("find by email: %w", err)
		}
		if u != nil {
			if prev, ok := u.Link(p.Provider); ok && prev.ProviderUserID != p.ProviderUserID {
				return nil, 0, &domain.Error{
					Err:     domain.ErrDuplicate,
					Message: fmt.Sprintf("account is already linked to another %s user", p.Provider),
					Field:   "provider",
				}
			}
			u.Links = append(u.Links, domain.ProviderLink{
				Provider:       p.Provider,
				ProviderUserID: p.ProviderUserID,
				AccessToken:    p.AccessToken,
				RefreshToken:   p.RefreshToken,
			})
			u.Verified = true
			if err := backfill(u, p); err != nil {
				return nil, 0, err
			}
			if err := r.users.Update(ctx, u); err != nil {
				return nil, 0, duplicateOr(err, "link provider")
			}
			l.Info("provider linked",
				zap.String("public_id", u.PublicID), zap.String("email_hash", helper.Hash8(u.Email)))
			return u.Public(), Linked, nil
		}
	}

	u, err = r.createFromProfile(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	l.Info("user created from provider",
		zap.String("public_id", u.PublicID), zap.String("email_hash", helper.Hash8(u.Email)))
	return u.Public(), Created, nil
}

func (r *Resolver) createFromProfile(ctx context.Context, p domain.OAuthProfile) (*domain.User, error) {
	if p.Email == "" {
		return nil, domain.Validation("email", fmt.Sprintf("%s did not share a verified email address", p.Provider))
	}
	username := SynthesizeUsername(p)
	if username == "" {
		return nil, domain.Validation("username", "could not derive a valid username from the provider profile")
	}
	if u, err := r.users.FindByUsername(ctx, username); err != nil {
		return nil, fmt.Errorf("find by username: %w", err)
	} else if u != nil {
		return nil, domain.Duplicate("username")
	}

	fields := p.ProfileFields()
	u, err := r.ids.Create(ctx, r.users, func(publicID string) *domain.User {
		return &domain.User{
			PublicID: publicID,
			Email:    p.Email,
			Username: username,
			Links: []domain.ProviderLink{{
				Provider:       p.Provider,
				ProviderUserID: p.ProviderUserID,
				AccessToken:    p.AccessToken,
				RefreshToken:   p.RefreshToken,
			}},
			Profile:  fields,
			Role:     domain.RoleUser,
			Verified: true,
		}
	})
	if err != nil {
		return nil, duplicateOr(err, "create from provider")
	}
	return u, nil
}

// SynthesizeUsername picks the first usable candidate: the provider's handle,
// then the local part of the email. Returns "" when neither qualifies.
func SynthesizeUsername(p domain.OAuthProfile) string {
	local, _, _ := strings.Cut(p.Email, "@")
	for _, c := range []string{p.Username, local} {
		if s := domain.SanitizeUsername(c); domain.ValidUsername(s) {
			return s
		}
	}
	return ""
}

func setTokens(u *domain.User, p domain.OAuthProfile) {
	for i := range u.Links {
		if u.Links[i].Provider == p.Provider && u.Links[i].ProviderUserID == p.ProviderUserID {
			u.Links[i].AccessToken = p.AccessToken
			if p.RefreshToken != "" {
				u.Links[i].RefreshToken = p.RefreshToken
			}
		}
	}
}

// backfill copies provider profile fields that are non-empty over the stored ones.
func backfill(u *domain.User, p domain.OAuthProfile) error {
	in := p.ProfileFields()
	if err := copier.CopyWithOption(&u.Profile, &in, copier.Option{IgnoreEmpty: true}); err != nil {
		return fmt.Errorf("backfill profile: %w", err)
	}
	return nil
}

// duplicateOr turns a store-level duplicate key into a DuplicateIdentity error
// and wraps everything else with op.
func duplicateOr(err error, op string) error {
	if f, ok := domain.DuplicateField(err); ok {
		return domain.Duplicate(f)
	}
	if domain.KindOf(err) != domain.KindInternal {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
