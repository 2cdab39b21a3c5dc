// Package domain provides domain models and business logic for ScienceSwipe.
package domain

import (
	"fmt"
	"strings"
)

// Source identifies one of the interchangeable backing tables a feed is read from.
// These values are persisted in client preferences and sent to the image
// generation endpoint as databaseSource.
type Source string

const (
	// SourcePapers is the default feed table.
	SourcePapers Source = "papers"
	// SourceCore is the alternate "core" table keyed by numeric id.
	SourceCore Source = "core"
	// SourceRegional is the alternate "regional" table.
	SourceRegional Source = "regional"
)

// AllSources lists the sources in rotation order.
var AllSources = []Source{SourcePapers, SourceCore, SourceRegional}

// IsValid returns true if s is a known source.
func (s Source) IsValid() bool {
	switch s {
	case SourcePapers, SourceCore, SourceRegional:
		return true
	default:
		return false
	}
}

// Next returns the source that follows s in rotation order.
// Unknown values rotate back to the default source.
func (s Source) Next() Source {
	for i, candidate := range AllSources {
		if candidate == s {
			return AllSources[(i+1)%len(AllSources)]
		}
	}
	return SourcePapers
}

// ParseSource converts user input to a Source. Matching is case-insensitive and
// accepts the backing table names as aliases.
func ParseSource(value string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "papers", "default", "":
		return SourcePapers, nil
	case "core", "core_papers":
		return SourceCore, nil
	case "regional", "regional_papers":
		return SourceRegional, nil
	default:
		return "", NewValidationError("source", fmt.Sprintf("unknown source %q", value))
	}
}

// SortMode controls the feed ordering chosen by the user.
type SortMode string

const (
	SortNewest    SortMode = "newest"
	SortMindBlown SortMode = "mindblown"
	SortSurprise  SortMode = "surprise"
)

// IsValid returns true if m is a known sort mode.
func (m SortMode) IsValid() bool {
	switch m {
	case SortNewest, SortMindBlown, SortSurprise:
		return true
	default:
		return false
	}
}

// ParseSortMode converts user input to a SortMode, defaulting to SortNewest for empty input.
func ParseSortMode(value string) (SortMode, error) {
	mode := SortMode(strings.ToLower(strings.TrimSpace(value)))
	if mode == "" {
		return SortNewest, nil
	}
	if !mode.IsValid() {
		return "", NewValidationError("sort", fmt.Sprintf("unknown sort mode %q", value))
	}
	return mode, nil
}
