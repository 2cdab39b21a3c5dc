package repository

import (
	"context"
	"fmt"

	"github.com/helixir/scienceswipe/internal/domain"
)

// Offline stands in for the row store when no connection could be made.
// Reads fail with domain.ErrServiceUnavailable, which the feed turns into the
// demo fallback; writes fail the same way and surface as notices.
type Offline struct {
	// Cause is the connection error reported with every call.
	Cause error
}

// Compile-time interface verification.
var (
	_ RowRepository      = Offline{}
	_ ReactionRepository = Offline{}
)

func (o Offline) err() error {
	if o.Cause == nil {
		return domain.ErrServiceUnavailable
	}
	return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, o.Cause)
}

func (o Offline) Probe(context.Context, string) (bool, error) { return false, o.err() }

func (o Offline) ListSummarized(context.Context, string, int) ([]Row, error) { return nil, o.err() }

func (o Offline) GetBy(context.Context, string, string, any) (Row, error) { return nil, o.err() }

func (o Offline) UpdatePrompt(context.Context, string, string, any, string) error { return o.err() }

func (o Offline) UpdateImage(context.Context, string, string, any, string, *string) error {
	return o.err()
}

func (o Offline) Count(context.Context, ReactionKey) (int, error) { return 0, o.err() }

func (o Offline) Counts(context.Context, domain.Source) (map[string]int, error) { return nil, o.err() }

func (o Offline) Exists(context.Context, ReactionKey, string) (bool, error) { return false, o.err() }

func (o Offline) Insert(context.Context, ReactionKey, string, string) error { return o.err() }

func (o Offline) Delete(context.Context, ReactionKey, string) error { return o.err() }

func (o Offline) Replace(context.Context, ReactionKey, string, string) error { return o.err() }
