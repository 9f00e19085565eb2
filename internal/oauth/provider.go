package oauth

import (
	"context"
	"fmt"

	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// Provider is one OAuth identity source. Exchange errors are already
// UpstreamProviderError; a nil error always comes with a profile.
type Provider interface {
	Name() domain.Provider
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.OAuthProfile, error)
}

type Registry map[domain.Provider]Provider

func NewRegistry(ps ...Provider) Registry {
	r := Registry{}
	for _, p := range ps {
		if p != nil {
			r[p.Name()] = p
		}
	}
	return r
}

func (r Registry) Get(name string) (Provider, bool) {
	p, ok := r[domain.Provider(name)]
	return p, ok
}

// exchange wraps fetch with a trace span and the upstream error mapping.
func exchange(ctx context.Context, name domain.Provider, fetch func(context.Context) (*domain.OAuthProfile, error)) (*domain.OAuthProfile, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "oauth.exchange", tracer.Tag("provider", string(name)))
	p, err := fetch(ctx)
	if err == nil && p == nil {
		err = fmt.Errorf("empty profile")
	}
	sp.Finish(tracer.WithError(err))
	if err != nil {
		return nil, domain.Upstream(string(name), err)
	}
	p.Provider = name
	return p, nil
}
