// Package sources maps the three interchangeable paper tables onto the
// domain.Paper shape and holds the active source selection.
package sources

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/normalize"
)

// Row is one raw row keyed by column name.
type Row = map[string]any

// Adapter hides the per-table differences in naming and key strategy.
type Adapter interface {
	// Source returns the source this adapter serves.
	Source() domain.Source

	// Table returns the backing table name.
	Table() string

	// KeyColumn is the primary lookup column.
	KeyColumn() string

	// AltKeyColumn is the secondary identifier column tried after a KeyColumn miss.
	AltKeyColumn() string

	// KeyArg converts a paper id into a KeyColumn query argument. It returns
	// false when id can never match the key column (e.g. a DOI against a
	// numeric key), so the lookup can skip straight to AltKeyColumn.
	KeyArg(id string) (any, bool)

	// ResolveKey extracts the primary and secondary identifiers of a row.
	ResolveKey(row Row) (id, doi string)

	// Normalize converts a raw row into a Paper. It returns false when the row
	// carries no identifier at all.
	Normalize(row Row, now time.Time) (domain.Paper, bool)
}

type tableAdapter struct {
	source     domain.Source
	table      string
	numericKey bool
}

var adapters = map[domain.Source]*tableAdapter{
	domain.SourcePapers:   {source: domain.SourcePapers, table: "papers"},
	domain.SourceCore:     {source: domain.SourceCore, table: "core_papers", numericKey: true},
	domain.SourceRegional: {source: domain.SourceRegional, table: "regional_papers"},
}

// For returns the adapter of source.
func For(source domain.Source) (Adapter, error) {
	a, ok := adapters[source]
	if !ok {
		return nil, domain.NewValidationError("source", fmt.Sprintf("unknown source %q", source))
	}
	return a, nil
}

// MustFor is like For but panics on unknown sources. Use only with constants.
func MustFor(source domain.Source) Adapter {
	a, err := For(source)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *tableAdapter) Source() domain.Source { return a.source }
func (a *tableAdapter) Table() string         { return a.table }
func (a *tableAdapter) KeyColumn() string     { return "id" }
func (a *tableAdapter) AltKeyColumn() string  { return "doi" }

func (a *tableAdapter) KeyArg(id string) (any, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}
	if !a.numericKey {
		return id, true
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, false
	}
	return n, true
}

func (a *tableAdapter) ResolveKey(row Row) (string, string) {
	id := normalize.Text(row["id"])
	doi := normalize.Text(row["doi"])
	if doi == "" {
		doi = normalize.Text(row["core_id"])
	}
	return id, doi
}

func (a *tableAdapter) Normalize(row Row, now time.Time) (domain.Paper, bool) {
	id, doi := a.ResolveKey(row)
	if id == "" {
		id = doi
	}
	if id == "" {
		return domain.Paper{}, false
	}

	title := normalize.Text(row["title_org"])
	headline := normalize.Text(row["ai_headline"])
	if headline == "" {
		headline = title
	}

	return domain.Paper{
		ID:             id,
		DOI:            doi,
		Source:         a.source,
		TitleOrg:       title,
		AbstractOrg:    normalize.Text(row["abstract_org"]),
		AIHeadline:     headline,
		AIKeyTakeaways: normalize.Takeaways(row["ai_key_takeaways"]),
		AISummaryDone:  normalize.Bool(row["ai_summary_done"]),
		AIImagePrompt:  normalize.Text(row["ai_image_prompt"]),
		Category:       normalize.StringList(row["category"]),
		Creator:        normalize.StringList(row["creator"]),
		ImageURL:       normalize.Text(row["image_url"]),
		CreatedAt:      normalize.Timestamp(row["created_at"], now),
		Score:          normalize.Score(row["score"]),
	}, true
}
