package domain

import "strings"

// OAuthProfile is what an identity provider told us about the signed-in user.
// Providers only fill Email with an address they report as verified.
type OAuthProfile struct {
	Provider       Provider
	ProviderUserID string
	Email          string
	Username       string
	DisplayName    string
	AvatarURL      string
	Bio            string
	Website        string
	Location       string
	AccessToken    string
	RefreshToken   string
}

// Validate normalizes p in place.
func (p *OAuthProfile) Validate() error {
	if !p.Provider.Valid() {
		return Validation("provider", "unsupported provider")
	}
	p.ProviderUserID = strings.TrimSpace(p.ProviderUserID)
	if p.ProviderUserID == "" {
		return Validation("providerUserId", "provider user id is required")
	}
	p.Email = NormalizeEmail(p.Email)
	if p.Email != "" && !ValidEmail(p.Email) {
		return Validation("email", "provider returned a malformed email")
	}
	return nil
}

func (p *OAuthProfile) ProfileFields() Profile {
	return Profile{
		FullName:  strings.TrimSpace(p.DisplayName),
		AvatarURL: p.AvatarURL,
		Bio:       p.Bio,
		Website:   p.Website,
		Location:  p.Location,
	}
}
