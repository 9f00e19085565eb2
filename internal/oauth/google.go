package oauth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"golang.org/x/oauth2"
	ggoogle "golang.org/x/oauth2/google"
)

const googleIssuer = "https://accounts.google.com"

type Google struct {
	cfg *oauth2.Config

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

func NewGoogle(clientID, clientSecret, redirectURI string) *Google {
	return &Google{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
			Endpoint:     ggoogle.Endpoint,
		},
	}
}

func (g *Google) Name() domain.Provider { return domain.ProviderGoogle }

func (g *Google) AuthURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// idVerifier discovers Google's signing keys on first use.
func (g *Google) idVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verifier != nil {
		return g.verifier, nil
	}
	p, err := oidc.NewProvider(context.WithoutCancel(ctx), googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	g.verifier = p.Verifier(&oidc.Config{ClientID: g.cfg.ClientID})
	return g.verifier, nil
}

type googleClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (g *Google) Exchange(ctx context.Context, code string) (*domain.OAuthProfile, error) {
	return exchange(ctx, g.Name(), func(ctx context.Context) (*domain.OAuthProfile, error) {
		tok, err := g.cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchange code: %w", err)
		}
		raw, ok := tok.Extra("id_token").(string)
		if !ok || raw == "" {
			return nil, errors.New("no id_token")
		}
		v, err := g.idVerifier(ctx)
		if err != nil {
			return nil, err
		}
		idt, err := v.Verify(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("verify id_token: %w", err)
		}
		var c googleClaims
		if err := idt.Claims(&c); err != nil {
			return nil, fmt.Errorf("id_token claims: %w", err)
		}
		if c.Sub == "" {
			return nil, errors.New("id_token without sub")
		}
		p := &domain.OAuthProfile{
			ProviderUserID: c.Sub,
			Username:       c.Name,
			DisplayName:    c.Name,
			AvatarURL:      c.Picture,
			AccessToken:    tok.AccessToken,
			RefreshToken:   tok.RefreshToken,
		}
		if c.EmailVerified {
			p.Email = c.Email
		}
		return p, nil
	})
}
