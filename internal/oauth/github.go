package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPI = "https://api.github.com"

type GitHub struct {
	cfg *oauth2.Config
	// APIBase is overridden in tests.
	APIBase string
}

func NewGitHub(clientID, clientSecret, callbackURL string) *GitHub {
	return &GitHub{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		APIBase: githubAPI,
	}
}

func (g *GitHub) Name() domain.Provider { return domain.ProviderGitHub }

func (g *GitHub) AuthURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
	Blog      string `json:"blog"`
	Location  string `json:"location"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (g *GitHub) Exchange(ctx context.Context, code string) (*domain.OAuthProfile, error) {
	return exchange(ctx, g.Name(), func(ctx context.Context) (*domain.OAuthProfile, error) {
		tok, err := g.cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchange code: %w", err)
		}
		cli := g.cfg.Client(ctx, tok)

		var u githubUser
		if err := getJSON(ctx, cli, g.APIBase+"/user", &u); err != nil {
			return nil, err
		}
		if u.ID == 0 {
			return nil, fmt.Errorf("github returned user id 0")
		}

		// /user only exposes the public email; ask for the verified list instead
		var emails []githubEmail
		if err := getJSON(ctx, cli, g.APIBase+"/user/emails", &emails); err != nil {
			return nil, err
		}

		return &domain.OAuthProfile{
			ProviderUserID: strconv.FormatInt(u.ID, 10),
			Email:          pickEmail(emails),
			Username:       u.Login,
			DisplayName:    u.Name,
			AvatarURL:      u.AvatarURL,
			Bio:            u.Bio,
			Website:        u.Blog,
			Location:       u.Location,
			AccessToken:    tok.AccessToken,
			RefreshToken:   tok.RefreshToken,
		}, nil
	})
}

// pickEmail prefers the primary verified address, then any verified one.
func pickEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}

func getJSON(ctx context.Context, cli *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := cli.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
