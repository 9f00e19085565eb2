package identity

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"github.com/tazhibayda/smartfarm-api/internal/log"
	"github.com/tazhibayda/smartfarm-api/internal/metrics"
	"go.uber.org/zap"
)

// PublicIDs allocates PREFIX-NNNNN ids. The unique index on public_id is the
// race detector: a losing insert re-reads the max and tries again.
type PublicIDs struct {
	Prefix   string
	Width    int
	Attempts int
}

func NewPublicIDs(prefix string, width, attempts int) *PublicIDs {
	if width <= 0 {
		width = 5
	}
	if attempts <= 0 {
		attempts = 5
	}
	return &PublicIDs{Prefix: prefix, Width: width, Attempts: attempts}
}

func (g *PublicIDs) Format(n int) string {
	return fmt.Sprintf("%s%0*d", g.Prefix, g.Width, n)
}

func (g *PublicIDs) Parse(id string) (int, bool) {
	digits, ok := strings.CutPrefix(id, g.Prefix)
	if !ok || len(digits) != g.Width {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// After returns the id following max ("" means none allocated yet).
func (g *PublicIDs) After(max string) (string, error) {
	n := 0
	if max != "" {
		var ok bool
		if n, ok = g.Parse(max); !ok {
			return "", fmt.Errorf("malformed public id %q", max)
		}
	}
	next := g.Format(n + 1)
	if len(next) != len(g.Prefix)+g.Width {
		return "", &domain.Error{Err: domain.ErrExhausted, Message: "public id space exhausted"}
	}
	return next, nil
}

// Create inserts the record produced by build, retrying with a fresh id when a
// concurrent writer claimed the same one. Other insert errors are returned as is.
func (g *PublicIDs) Create(ctx context.Context, users Users, build func(publicID string) *domain.User) (*domain.User, error) {
	for attempt := 1; attempt <= g.Attempts; attempt++ {
		max, err := users.MaxPublicID(ctx, g.Prefix)
		if err != nil {
			return nil, fmt.Errorf("read max public id: %w", err)
		}
		id, err := g.After(max)
		if err != nil {
			return nil, err
		}
		u := build(id)
		err = users.Insert(ctx, u)
		if err == nil {
			return u, nil
		}
		if f, ok := domain.DuplicateField(err); !ok || f != "public_id" {
			return nil, err
		}
		metrics.PublicIDConflicts.Inc()
		log.From(ctx).Debug("public id taken, retrying", zap.String("public_id", id), zap.Int("attempt", attempt))
	}
	return nil, &domain.Error{
		Err:     domain.ErrExhausted,
		Message: fmt.Sprintf("could not allocate a public id after %d attempts", g.Attempts),
	}
}
