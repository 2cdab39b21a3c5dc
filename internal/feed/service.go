// Package feed reads papers of the active source, falling back to a built-in
// demo dataset whenever the source cannot serve them.
package feed

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/observability"
	"github.com/helixir/scienceswipe/internal/repository"
	"github.com/helixir/scienceswipe/internal/sources"
)

const (
	// DefaultMaxPapers caps the number of rows read per fetch.
	DefaultMaxPapers = 500

	// DefaultQueryTimeout bounds each row store round trip.
	DefaultQueryTimeout = 10 * time.Second
)

// Cache stores normalized paper lists per source.
type Cache interface {
	Get(ctx context.Context, source domain.Source) ([]domain.Paper, bool, error)
	Set(ctx context.Context, source domain.Source, papers []domain.Paper) error
	Delete(ctx context.Context, source domain.Source) error
}

// ReactionCounter reads aggregate reaction counts for the mindblown ordering.
type ReactionCounter interface {
	Counts(ctx context.Context, source domain.Source) (map[string]int, error)
}

// Query selects and orders a feed.
type Query struct {
	Source domain.Source
	Sort   domain.SortMode
	// Topics filters by category prefix. Empty means no filter.
	Topics []string
	// Seed drives the surprise ordering. Zero picks a time based seed.
	Seed uint64
}

// Service implements the data access layer over a RowRepository.
type Service struct {
	rows         repository.RowRepository
	cache        Cache
	counter      ReactionCounter
	metrics      *observability.Metrics
	logger       zerolog.Logger
	maxPapers    int
	queryTimeout time.Duration
	now          func() time.Time
}

// Option configures optional Service dependencies.
type Option func(*Service)

// WithCache attaches a paper list cache.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithReactionCounter enables the mindblown ordering.
func WithReactionCounter(c ReactionCounter) Option {
	return func(s *Service) { s.counter = c }
}

// WithMetrics attaches metrics. A nil value disables recording.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMaxPapers overrides DefaultMaxPapers.
func WithMaxPapers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPapers = n
		}
	}
}

// WithQueryTimeout overrides DefaultQueryTimeout.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}

// WithClock sets the time source used to fill in missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a feed service reading rows through rows.
func NewService(rows repository.RowRepository, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		rows:         rows,
		logger:       logger.With().Str("component", "feed").Logger(),
		maxPapers:    DefaultMaxPapers,
		queryTimeout: DefaultQueryTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchPapers returns the summarized papers of source, newest first.
//
// Read failures and empty sources degrade to the demo dataset. The only
// errors returned are an invalid source and a cancelled context.
func (s *Service) FetchPapers(ctx context.Context, source domain.Source) ([]domain.Paper, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	adapter, err := sources.For(source)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logger := s.logger.With().Str("source", string(source)).Logger()

	if papers, ok := s.cached(ctx, source, logger); ok {
		s.metrics.RecordFeedFetch(string(source), observability.FeedOutcomeCacheHit, time.Since(start).Seconds())
		s.metrics.RecordPapersServed(string(source), len(papers))
		return papers, nil
	}

	papers, reason, err := s.readLive(ctx, adapter, logger)
	if err != nil {
		return nil, err
	}
	if papers == nil {
		logger.Warn().Str("reason", reason).Msg("Serving demo papers")
		demo := DemoPapers(source)
		s.metrics.RecordFeedFetch(string(source), observability.FeedOutcomeDemo, time.Since(start).Seconds())
		s.metrics.RecordPapersServed(string(source), len(demo))
		return demo, nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, source, papers); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache papers")
		}
	}

	s.metrics.RecordFeedFetch(string(source), observability.FeedOutcomeLive, time.Since(start).Seconds())
	s.metrics.RecordPapersServed(string(source), len(papers))
	logger.Debug().Int("count", len(papers)).Msg("Fetched papers")
	return papers, nil
}

// readLive returns nil papers together with a reason when the demo set must
// be served instead.
func (s *Service) readLive(ctx context.Context, adapter sources.Adapter, logger zerolog.Logger) ([]domain.Paper, string, error) {
	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	ok, err := s.rows.Probe(qctx, adapter.Table())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		logger.Error().Err(err).Msg("Source probe failed")
		return nil, "probe_failed", nil
	}
	if !ok {
		return nil, "empty_source", nil
	}

	rows, err := s.rows.ListSummarized(qctx, adapter.Table(), s.maxPapers)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		logger.Error().Err(err).Msg("Failed to list papers")
		return nil, "list_failed", nil
	}

	now := s.now().UTC()
	papers := make([]domain.Paper, 0, len(rows))
	for _, row := range rows {
		p, ok := adapter.Normalize(row, now)
		if !ok {
			logger.Warn().Msg("Dropping row without id or doi")
			continue
		}
		papers = append(papers, p)
	}
	if len(papers) == 0 {
		return nil, "no_summarized_rows", nil
	}

	sortNewest(papers)
	return papers, "", nil
}

func (s *Service) cached(ctx context.Context, source domain.Source, logger zerolog.Logger) ([]domain.Paper, bool) {
	if s.cache == nil {
		return nil, false
	}
	papers, ok, err := s.cache.Get(ctx, source)
	switch {
	case err != nil:
		s.metrics.RecordCacheLookup("error")
		logger.Warn().Err(err).Msg("Paper cache lookup failed")
		return nil, false
	case !ok:
		s.metrics.RecordCacheLookup("miss")
		return nil, false
	default:
		s.metrics.RecordCacheLookup("hit")
		return papers, true
	}
}

// FetchPaperByID looks a paper up by its key column, then by its alternate
// identifier, then among the demo papers. A miss everywhere yields a
// domain.ErrNotFound.
func (s *Service) FetchPaperByID(ctx context.Context, source domain.Source, id string) (domain.Paper, error) {
	if err := ctx.Err(); err != nil {
		return domain.Paper{}, domain.Aborted(err)
	}
	adapter, err := sources.For(source)
	if err != nil {
		return domain.Paper{}, err
	}
	logger := observability.WithPaperContext(s.logger, string(source), id)

	if id != "" {
		if key, ok := adapter.KeyArg(id); ok {
			if p, found := s.lookup(ctx, adapter, adapter.KeyColumn(), key, logger); found {
				return p, nil
			}
		}
		if p, found := s.lookup(ctx, adapter, adapter.AltKeyColumn(), id, logger); found {
			return p, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Paper{}, ctxErr
		}
		if p, ok := DemoPaper(source, id); ok {
			return p, nil
		}
	}
	return domain.Paper{}, domain.NewNotFoundError("paper", id)
}

func (s *Service) lookup(ctx context.Context, adapter sources.Adapter, column string, value any, logger zerolog.Logger) (domain.Paper, bool) {
	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	row, err := s.rows.GetBy(qctx, adapter.Table(), column, value)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Error().Err(err).Str("column", column).Msg("Paper lookup failed")
		}
		return domain.Paper{}, false
	}
	p, ok := adapter.Normalize(row, s.now().UTC())
	if !ok {
		logger.Warn().Str("column", column).Msg("Matched row has no id or doi")
	}
	return p, ok
}

// Feed returns the papers of q.Source filtered by topic and ordered by q.Sort.
func (s *Service) Feed(ctx context.Context, q Query) ([]domain.Paper, error) {
	mode := q.Sort
	if mode == "" {
		mode = domain.SortNewest
	}
	if !mode.IsValid() {
		return nil, domain.NewValidationError("sort", "unknown sort mode "+string(mode))
	}

	papers, err := s.FetchPapers(ctx, q.Source)
	if err != nil {
		return nil, err
	}

	filtered := papers[:0:0]
	for _, p := range papers {
		if p.MatchesTopics(q.Topics) {
			filtered = append(filtered, p)
		}
	}

	switch mode {
	case domain.SortMindBlown:
		s.sortMindBlown(ctx, q.Source, filtered)
	case domain.SortSurprise:
		seed := q.Seed
		if seed == 0 {
			seed = uint64(s.now().UnixNano())
		}
		rng := rand.New(rand.NewPCG(seed, seed>>1|1))
		rng.Shuffle(len(filtered), func(i, j int) {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		})
	}
	return filtered, nil
}

// sortMindBlown orders by reaction count, keeping the newest-first order for ties.
// Without counts the input order is kept.
func (s *Service) sortMindBlown(ctx context.Context, source domain.Source, papers []domain.Paper) {
	if s.counter == nil {
		return
	}
	counts, err := s.counter.Counts(ctx, source)
	if err != nil {
		s.logger.Warn().Err(err).Str("source", string(source)).Msg("Failed to read reaction counts")
		return
	}
	sort.SliceStable(papers, func(i, j int) bool {
		return counts[papers[i].ID] > counts[papers[j].ID]
	})
}

// Invalidate drops the cached paper list of source.
func (s *Service) Invalidate(ctx context.Context, source domain.Source) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, source); err != nil {
		s.logger.Warn().Err(err).Str("source", string(source)).Msg("Failed to invalidate paper cache")
	}
}
