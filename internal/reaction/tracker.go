// Package reaction implements the per-paper "mind blow" counter with
// optimistic local updates.
package reaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/observability"
	"github.com/helixir/scienceswipe/internal/repository"
)

// TopPaperThreshold is the reaction count at which a paper is a top paper.
const TopPaperThreshold = 5

var (
	// ErrAlreadyReacted is returned when the store already holds the user's reaction.
	ErrAlreadyReacted = errors.New("already reacted")

	// ErrMutationInFlight is returned when a toggle starts while another one
	// for the same paper has not completed.
	ErrMutationInFlight = errors.New("reaction update already in progress")
)

// Store is the subset of repository.ReactionRepository a Tracker needs.
type Store interface {
	Count(ctx context.Context, key repository.ReactionKey) (int, error)
	Exists(ctx context.Context, key repository.ReactionKey, userID string) (bool, error)
	Insert(ctx context.Context, key repository.ReactionKey, userID, reason string) error
	Delete(ctx context.Context, key repository.ReactionKey, userID string) error
	Replace(ctx context.Context, key repository.ReactionKey, userID, reason string) error
}

// Publisher receives reaction events. Publish failures never fail a toggle.
type Publisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// State is the reaction state of one paper as seen by one user.
type State struct {
	Count      int  `json:"count"`
	HasReacted bool `json:"has_reacted"`
	IsTopPaper bool `json:"is_top_paper"`
}

func newState(count int, hasReacted bool) State {
	if count < 0 {
		count = 0
	}
	return State{
		Count:      count,
		HasReacted: hasReacted,
		IsTopPaper: count >= TopPaperThreshold,
	}
}

// Outcome names the mutation a toggle performed.
type Outcome string

const (
	OutcomeAdded         Outcome = "added"
	OutcomeRemoved       Outcome = "removed"
	OutcomeReasonUpdated Outcome = "reason_updated"
)

func (o Outcome) eventType() string {
	switch o {
	case OutcomeAdded:
		return domain.EventTypeReactionAdded
	case OutcomeRemoved:
		return domain.EventTypeReactionRemoved
	default:
		return domain.EventTypeReactionReasonUpdated
	}
}

// Result is the outcome of a committed toggle.
type Result struct {
	Outcome Outcome `json:"outcome"`
	State   State   `json:"state"`
}

// Tracker holds the reaction state of one paper for one user. At most one
// mutation runs at a time.
type Tracker struct {
	store     Store
	publisher Publisher
	metrics   *observability.Metrics
	logger    zerolog.Logger
	key       repository.ReactionKey
	userID    string

	mu       sync.Mutex
	state    State
	inFlight bool
	// loaded is the store state read while a mutation was in flight. A failed
	// mutation rolls back to it instead of the state Begin started from.
	loaded *State
}

// Option configures optional Tracker dependencies.
type Option func(*Tracker)

// WithPublisher publishes an event after every committed toggle.
func WithPublisher(p Publisher) Option {
	return func(t *Tracker) { t.publisher = p }
}

// WithMetrics records toggle outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithLogger sets the tracker logger.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker creates a tracker for userID's reaction to the paper at key.
func NewTracker(store Store, key repository.ReactionKey, userID string, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		key:    key,
		userID: userID,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = observability.WithPaperContext(t.logger, string(key.Source), key.PaperRef).
		With().Str("component", "reaction").Logger()
	return t
}

// Key returns the paper this tracker belongs to.
func (t *Tracker) Key() repository.ReactionKey { return t.key }

// State returns the current, possibly optimistic, state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Pending reports whether a mutation is in flight.
func (t *Tracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlight
}

// Load reads the aggregate count and the user's reaction from the store.
// Without a user id only the count is read.
func (t *Tracker) Load(ctx context.Context) (State, error) {
	var (
		count   int
		reacted bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := t.store.Count(gctx, t.key)
		count = n
		return err
	})
	if t.userID != "" {
		g.Go(func() error {
			ok, err := t.store.Exists(gctx, t.key, t.userID)
			reacted = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return t.State(), fmt.Errorf("failed to load reactions: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	loaded := newState(count, reacted)
	if t.inFlight {
		t.loaded = &loaded
		return t.state, nil
	}
	t.state = loaded
	return t.state, nil
}

// Mutation is a toggle whose local delta has been applied but whose remote
// write has not run yet.
type Mutation struct {
	tracker *Tracker
	outcome Outcome
	reason  string
	prev    State
	next    State
}

// Outcome returns the mutation the toggle will perform.
func (m *Mutation) Outcome() Outcome { return m.outcome }

// State returns the optimistic state.
func (m *Mutation) State() State { return m.next }

// Begin applies the local delta of a toggle and marks the tracker busy.
//
//   - not reacted: add a reaction (carrying reason if given), count+1
//   - reacted with a reason: replace the reaction, count unchanged
//   - reacted without a reason: remove the reaction, count-1 floored at zero
//
// The returned Mutation must be committed.
func (t *Tracker) Begin(reason string) (*Mutation, error) {
	if t.userID == "" {
		return nil, domain.NewValidationError("user_id", "user id is required")
	}
	reason = strings.TrimSpace(reason)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight {
		return nil, ErrMutationInFlight
	}

	m := &Mutation{tracker: t, reason: reason, prev: t.state}
	switch {
	case !t.state.HasReacted:
		m.outcome = OutcomeAdded
		m.next = newState(t.state.Count+1, true)
	case reason != "":
		m.outcome = OutcomeReasonUpdated
		m.next = t.state
	default:
		m.outcome = OutcomeRemoved
		m.next = newState(t.state.Count-1, false)
	}

	t.state = m.next
	t.inFlight = true
	return m, nil
}

// Commit runs the remote write. On failure the local delta is rolled back to
// the state Begin started from, or to a state loaded meanwhile; a duplicate
// insert yields ErrAlreadyReacted.
func (m *Mutation) Commit(ctx context.Context) (Result, error) {
	t := m.tracker

	var err error
	switch m.outcome {
	case OutcomeAdded:
		err = t.store.Insert(ctx, t.key, t.userID, m.reason)
	case OutcomeReasonUpdated:
		err = t.store.Replace(ctx, t.key, t.userID, m.reason)
	case OutcomeRemoved:
		err = t.store.Delete(ctx, t.key, t.userID)
	}

	t.mu.Lock()
	t.inFlight = false
	if err != nil {
		t.state = m.prev
		if t.loaded != nil {
			t.state = *t.loaded
		}
	}
	t.loaded = nil
	rolledBack := t.state
	t.mu.Unlock()

	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			t.metrics.RecordReaction("conflict")
			t.logger.Info().Msg("Reaction already recorded")
			return Result{Outcome: m.outcome, State: rolledBack}, ErrAlreadyReacted
		}
		t.metrics.RecordReaction("failed")
		t.logger.Error().Err(err).Str("outcome", string(m.outcome)).Msg("Reaction update failed")
		return Result{Outcome: m.outcome, State: rolledBack}, fmt.Errorf("failed to update reaction: %w", err)
	}

	t.metrics.RecordReaction(string(m.outcome))
	t.publish(ctx, m)
	return Result{Outcome: m.outcome, State: m.next}, nil
}

// Toggle begins and commits a toggle in one call.
func (t *Tracker) Toggle(ctx context.Context, reason string) (Result, error) {
	m, err := t.Begin(reason)
	if err != nil {
		return Result{State: t.State()}, err
	}
	return m.Commit(ctx)
}

func (t *Tracker) publish(ctx context.Context, m *Mutation) {
	if t.publisher == nil {
		return
	}
	event, err := domain.NewEvent(m.outcome.eventType(), t.key.Source, t.key.PaperRef, domain.ReactionPayload{
		UserID:     t.userID,
		Reason:     m.reason,
		Count:      m.next.Count,
		IsTopPaper: m.next.IsTopPaper,
	})
	if err != nil {
		t.logger.Error().Err(err).Msg("Failed to build reaction event")
		return
	}
	if err := t.publisher.Publish(ctx, event); err != nil {
		t.logger.Warn().Err(err).Str("event_type", event.EventType).Msg("Failed to publish reaction event")
	}
}
