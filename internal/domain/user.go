package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleOrg        Role = "ORG"
	RoleUser       Role = "USER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleOrg, RoleUser:
		return true
	}
	return false
}

// AtLeast reports whether r carries the privileges of min.
// ORG and USER share the lowest rank.
func (r Role) AtLeast(min Role) bool { return rank(r) >= rank(min) }

func rank(r Role) int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleAdmin:
		return 2
	case RoleOrg, RoleUser:
		return 1
	}
	return 0
}

type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGoogle Provider = "google"
)

func (p Provider) Valid() bool { return p == ProviderGitHub || p == ProviderGoogle }

type ProviderLink struct {
	Provider       Provider `bson:"provider"         json:"provider"`
	ProviderUserID string   `bson:"provider_user_id" json:"providerUserId"`
	AccessToken    string   `bson:"access_token"     json:"-"`
	RefreshToken   string   `bson:"refresh_token"    json:"-"`
}

type Profile struct {
	FullName    string            `bson:"full_name,omitempty"    json:"fullName,omitempty"`
	AvatarURL   string            `bson:"avatar_url,omitempty"   json:"avatarUrl,omitempty"`
	Bio         string            `bson:"bio,omitempty"          json:"bio,omitempty"`
	Website     string            `bson:"website,omitempty"      json:"website,omitempty"`
	Location    string            `bson:"location,omitempty"     json:"location,omitempty"`
	PhoneNumber string            `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	Preferences map[string]string `bson:"preferences,omitempty"  json:"preferences,omitempty"`
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"            json:"id"`
	PublicID     string             `bson:"public_id"                json:"publicId"`
	Email        string             `bson:"email"                    json:"email"`
	Username     string             `bson:"username"                 json:"username"`
	PasswordHash string             `bson:"password_hash,omitempty"  json:"-"`
	Links        []ProviderLink     `bson:"provider_links,omitempty" json:"providerLinks"`
	LinkKeys     []string           `bson:"link_keys,omitempty"      json:"-"`
	Profile      Profile            `bson:"profile"                  json:"profile"`
	Role         Role               `bson:"role"                     json:"role"`
	Verified     bool               `bson:"is_verified"              json:"isVerified"`
	CreatedAt    time.Time          `bson:"created_at"               json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at"               json:"updatedAt"`
}

func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// Link returns the account's link for p, if any.
func (u *User) Link(p Provider) (ProviderLink, bool) {
	for _, l := range u.Links {
		if l.Provider == p {
			return l, true
		}
	}
	return ProviderLink{}, false
}

func LinkKey(p Provider, providerUserID string) string {
	return string(p) + ":" + providerUserID
}

// SyncLinkKeys rebuilds the indexed provider:id keys from Links.
func (u *User) SyncLinkKeys() {
	u.LinkKeys = nil
	for _, l := range u.Links {
		u.LinkKeys = append(u.LinkKeys, LinkKey(l.Provider, l.ProviderUserID))
	}
}

// Public returns a copy safe to hand to callers outside the store.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.PasswordHash = ""
	if u.Links != nil {
		cp.Links = append([]ProviderLink(nil), u.Links...)
	}
	cp.LinkKeys = nil
	return &cp
}

type UserFilter struct {
	Role  Role
	Limit int
	Skip  int
}
