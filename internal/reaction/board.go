package reaction

import (
	"sync"

	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/repository"
)

// Board keeps one Tracker per paper for a single user.
type Board struct {
	store  Store
	userID string
	opts   []Option

	mu       sync.Mutex
	trackers map[repository.ReactionKey]*Tracker
}

// NewBoard creates a board for userID. opts are applied to every tracker.
func NewBoard(store Store, userID string, opts ...Option) *Board {
	return &Board{
		store:    store,
		userID:   userID,
		opts:     opts,
		trackers: make(map[repository.ReactionKey]*Tracker),
	}
}

// UserID returns the user the board tracks.
func (b *Board) UserID() string { return b.userID }

// Tracker returns the tracker of a paper, creating it on first use.
func (b *Board) Tracker(source domain.Source, paperID string) *Tracker {
	key := repository.ReactionKey{Source: source, PaperRef: paperID}

	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.trackers[key]
	if !ok {
		t = NewTracker(b.store, key, b.userID, b.opts...)
		b.trackers[key] = t
	}
	return t
}

// Lookup returns the tracker of a paper if one exists.
func (b *Board) Lookup(source domain.Source, paperID string) (*Tracker, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.trackers[repository.ReactionKey{Source: source, PaperRef: paperID}]
	return t, ok
}

// Reset drops all trackers, e.g. after the source changed.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trackers = make(map[repository.ReactionKey]*Tracker)
}
