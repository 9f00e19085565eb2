// Package memory holds in-process stores with the same uniqueness rules as
// the mongo indexes. Used for local runs (STORE_BACKEND=memory) and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Users struct {
	mu   sync.RWMutex
	byID map[primitive.ObjectID]*domain.User
}

func NewUsers() *Users {
	return &Users{byID: make(map[primitive.ObjectID]*domain.User)}
}

func clone(u *domain.User) *domain.User {
	cp := *u
	cp.Links = append([]domain.ProviderLink(nil), u.Links...)
	cp.LinkKeys = append([]string(nil), u.LinkKeys...)
	if u.Profile.Preferences != nil {
		cp.Profile.Preferences = make(map[string]string, len(u.Profile.Preferences))
		for k, v := range u.Profile.Preferences {
			cp.Profile.Preferences[k] = v
		}
	}
	return &cp
}

func (s *Users) find(match func(*domain.User) bool) *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byID {
		if match(u) {
			return clone(u)
		}
	}
	return nil
}

func (s *Users) FindByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.byID[id]; ok {
		return clone(u), nil
	}
	return nil, nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool { return u.Email == email }), nil
}

func (s *Users) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool { return u.Username == username }), nil
}

func (s *Users) FindByPublicID(_ context.Context, publicID string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool { return u.PublicID == publicID }), nil
}

func (s *Users) FindByLink(_ context.Context, p domain.Provider, providerUserID string) (*domain.User, error) {
	key := domain.LinkKey(p, providerUserID)
	return s.find(func(u *domain.User) bool {
		for _, k := range u.LinkKeys {
			if k == key {
				return true
			}
		}
		return false
	}), nil
}

func (s *Users) MaxPublicID(_ context.Context, prefix string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	max := ""
	for _, u := range s.byID {
		if strings.HasPrefix(u.PublicID, prefix) && u.PublicID > max {
			max = u.PublicID
		}
	}
	return max, nil
}

// conflict reports the first unique field u shares with another record.
func (s *Users) conflict(u *domain.User) string {
	for id, o := range s.byID {
		if id == u.ID {
			continue
		}
		switch {
		case o.Email == u.Email:
			return "email"
		case o.Username == u.Username:
			return "username"
		case o.PublicID == u.PublicID:
			return "public_id"
		}
		for _, a := range o.LinkKeys {
			for _, b := range u.LinkKeys {
				if a == b {
					return "provider_link"
				}
			}
		}
	}
	return ""
}

func (s *Users) Insert(_ context.Context, u *domain.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	u.SyncLinkKeys()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[u.ID]; ok {
		return &domain.DuplicateKeyError{Field: "_id"}
	}
	if f := s.conflict(u); f != "" {
		return &domain.DuplicateKeyError{Field: f}
	}
	s.byID[u.ID] = clone(u)
	return nil
}

func (s *Users) Update(_ context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	u.SyncLinkKeys()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[u.ID]; !ok {
		return domain.NotFound("user")
	}
	if f := s.conflict(u); f != "" {
		return &domain.DuplicateKeyError{Field: f}
	}
	s.byID[u.ID] = clone(u)
	return nil
}

func (s *Users) List(_ context.Context, f domain.UserFilter) ([]domain.User, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	s.mu.RLock()
	all := make([]domain.User, 0, len(s.byID))
	for _, u := range s.byID {
		if f.Role == "" || u.Role == f.Role {
			all = append(all, *clone(u))
		}
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].PublicID < all[j].PublicID })
	if f.Skip >= len(all) {
		return []domain.User{}, nil
	}
	all = all[f.Skip:]
	if len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, nil
}

func (s *Users) DeleteMany(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := s.byID[id]; ok {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

func (s *Users) Ping(context.Context) error { return nil }
