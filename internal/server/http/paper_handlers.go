package httpserver

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/feed"
)

const maxTopics = 20

// listPapers handles GET /api/papers.
// Query parameters: source, sort (newest, mindblown, surprise), topics
// (comma separated category prefixes) and seed (surprise ordering).
func (s *Server) listPapers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	source, ok := parseSource(w, q.Get("source"))
	if !ok {
		return
	}
	mode, err := domain.ParseSortMode(q.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown sort mode")
		return
	}
	topics := splitTopics(q.Get("topics"))
	if len(topics) > maxTopics {
		writeError(w, http.StatusBadRequest, "too many topics")
		return
	}
	var seed uint64
	if raw := q.Get("seed"); raw != "" {
		seed, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "seed must be a non-negative integer")
			return
		}
	}

	papers, err := s.feed.Feed(r.Context(), feed.Query{
		Source: source,
		Sort:   mode,
		Topics: topics,
		Seed:   seed,
	})
	if err != nil {
		s.logFailure(r, err, "Listing papers failed")
		writeDomainError(w, err)
		return
	}
	if papers == nil {
		papers = []domain.Paper{}
	}

	writeJSON(w, http.StatusOK, listPapersResponse{
		Papers:     papers,
		Source:     source,
		Sort:       string(mode),
		TotalCount: len(papers),
	})
}

// getPaper handles GET /api/papers/{paperID}.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	source, ok := parseSource(w, r.URL.Query().Get("source"))
	if !ok {
		return
	}

	paper, err := s.feed.FetchPaperByID(r.Context(), source, paperIDParam(r))
	if err != nil {
		s.logFailure(r, err, "Fetching paper failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paperResponse{Paper: paper})
}

// paperIDParam returns the unescaped paper id path parameter. DOIs contain
// slashes, so clients send them escaped.
func paperIDParam(r *http.Request) string {
	raw := chi.URLParam(r, "paperID")
	if id, err := url.PathUnescape(raw); err == nil {
		return id
	}
	return raw
}

func splitTopics(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}
