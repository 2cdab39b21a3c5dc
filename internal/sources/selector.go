package sources

import (
	"fmt"
	"sync"

	"github.com/helixir/scienceswipe/internal/domain"
)

// PersistFunc stores a newly selected source.
type PersistFunc func(domain.Source) error

// Selector holds the active source. The value is read by callers and passed
// explicitly to data access; nothing reads it implicitly.
type Selector struct {
	mu      sync.RWMutex
	current domain.Source
	persist PersistFunc
}

// NewSelector creates a selector starting at initial. Invalid values start at
// the default source. persist may be nil.
func NewSelector(initial domain.Source, persist PersistFunc) *Selector {
	if !initial.IsValid() {
		initial = domain.SourcePapers
	}
	return &Selector{current: initial, persist: persist}
}

// Current returns the active source.
func (s *Selector) Current() domain.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Toggle rotates to the next source (papers, core, regional, papers).
// The in-memory selection changes even when persisting fails; the persist
// error is returned for the caller to report.
func (s *Selector) Toggle() (domain.Source, error) {
	s.mu.Lock()
	s.current = s.current.Next()
	next := s.current
	s.mu.Unlock()

	return next, s.save(next)
}

// Set selects source directly.
func (s *Selector) Set(source domain.Source) error {
	if !source.IsValid() {
		return domain.NewValidationError("source", fmt.Sprintf("unknown source %q", source))
	}

	s.mu.Lock()
	s.current = source
	s.mu.Unlock()

	return s.save(source)
}

func (s *Selector) save(source domain.Source) error {
	if s.persist == nil {
		return nil
	}
	if err := s.persist(source); err != nil {
		return fmt.Errorf("failed to persist source %s: %w", source, err)
	}
	return nil
}
