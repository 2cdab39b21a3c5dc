// Package prefs persists terminal client preferences in a YAML file.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/helixir/scienceswipe/internal/domain"
)

// FileName is the preferences file name inside the config directory.
const FileName = "preferences.yaml"

// Preferences are the persisted client settings.
type Preferences struct {
	DatabaseSource     domain.Source   `yaml:"database_source"`
	SortMode           domain.SortMode `yaml:"sort_mode"`
	OnboardingComplete bool            `yaml:"onboarding_complete"`
	Topics             []string        `yaml:"topics,omitempty"`
	UserID             string          `yaml:"user_id"`
}

// Defaults returns preferences for a first run. The user id is left empty.
func Defaults() Preferences {
	return Preferences{
		DatabaseSource: domain.SourcePapers,
		SortMode:       domain.SortNewest,
	}
}

// sanitize replaces unknown enum values with defaults.
func (p *Preferences) sanitize() {
	if !p.DatabaseSource.IsValid() {
		p.DatabaseSource = domain.SourcePapers
	}
	if !p.SortMode.IsValid() {
		p.SortMode = domain.SortNewest
	}
	topics := p.Topics[:0:0]
	for _, t := range p.Topics {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	p.Topics = topics
	if _, err := uuid.Parse(p.UserID); err != nil {
		p.UserID = ""
	}
}

// DefaultPath returns the preferences path under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "scienceswipe", FileName), nil
}

// Store reads and writes one preferences file.
type Store struct {
	path string

	mu    sync.Mutex
	prefs Preferences
}

// Open loads the preferences at path. A missing or corrupt file yields
// defaults. A user id is generated and saved on first load.
func Open(path string) (*Store, error) {
	s := &Store{path: path, prefs: Defaults()}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		var p Preferences
		if yaml.Unmarshal(raw, &p) == nil {
			s.prefs = p
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	s.prefs.sanitize()

	if s.prefs.UserID == "" {
		s.prefs.UserID = uuid.NewString()
		if err := s.save(); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// Get returns a copy of the current preferences.
func (s *Store) Get() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.prefs
	p.Topics = append([]string(nil), s.prefs.Topics...)
	return p
}

// Update applies fn to the preferences and saves them.
func (s *Store) Update(fn func(*Preferences)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.prefs
	next.Topics = append([]string(nil), s.prefs.Topics...)
	fn(&next)
	next.sanitize()
	if next.UserID == "" {
		next.UserID = s.prefs.UserID
	}

	prev := s.prefs
	s.prefs = next
	if err := s.save(); err != nil {
		s.prefs = prev
		return err
	}
	return nil
}

// SetSource stores the active source. It matches sources.PersistFunc.
func (s *Store) SetSource(source domain.Source) error {
	if !source.IsValid() {
		return domain.NewValidationError("database_source", fmt.Sprintf("unknown source %q", source))
	}
	return s.Update(func(p *Preferences) { p.DatabaseSource = source })
}

// SetSortMode stores the feed sort mode.
func (s *Store) SetSortMode(mode domain.SortMode) error {
	if !mode.IsValid() {
		return domain.NewValidationError("sort_mode", fmt.Sprintf("unknown sort mode %q", mode))
	}
	return s.Update(func(p *Preferences) { p.SortMode = mode })
}

// CompleteOnboarding stores the selected topics and marks onboarding done.
func (s *Store) CompleteOnboarding(topics []string) error {
	return s.Update(func(p *Preferences) {
		p.Topics = topics
		p.OnboardingComplete = true
	})
}

// save writes the file atomically. s.mu must be held.
func (s *Store) save() error {
	raw, err := yaml.Marshal(s.prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".preferences-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp preferences: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close preferences: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace preferences: %w", err)
	}
	return nil
}
