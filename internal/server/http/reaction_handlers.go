package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/observability"
	"github.com/helixir/scienceswipe/internal/reaction"
	"github.com/helixir/scienceswipe/internal/repository"
)

const maxReasonLength = 500

// toggleReactionRequest is the optional JSON body of a reaction toggle.
type toggleReactionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// getReactions handles GET /api/papers/{paperID}/reactions.
// Without a user only the aggregate count is reported.
func (s *Server) getReactions(w http.ResponseWriter, r *http.Request) {
	source, ok := parseSource(w, r.URL.Query().Get("source"))
	if !ok {
		return
	}
	paperID := paperIDParam(r)

	tracker := s.tracker(r, source, paperID)
	st, err := tracker.Load(r.Context())
	if err != nil {
		s.logFailure(r, err, "Loading reactions failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newReactionResponse(source, paperID, st, ""))
}

// toggleReaction handles POST /api/papers/{paperID}/reactions.
//
// A user without a reaction adds one. A user with a reaction replaces it when
// a reason is sent and removes it otherwise.
func (s *Server) toggleReaction(w http.ResponseWriter, r *http.Request) {
	source, ok := parseSource(w, r.URL.Query().Get("source"))
	if !ok {
		return
	}
	paperID := paperIDParam(r)

	var req toggleReactionRequest
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON request body")
			return
		}
	}
	if len(req.Reason) > maxReasonLength {
		writeDomainError(w, domain.NewValidationError("reason", "reason is too long"))
		return
	}

	tracker := s.tracker(r, source, paperID)
	if _, err := tracker.Load(r.Context()); err != nil {
		s.logFailure(r, err, "Loading reactions failed")
		writeDomainError(w, err)
		return
	}

	res, err := tracker.Toggle(r.Context(), req.Reason)
	if err != nil {
		s.logFailure(r, err, "Toggling reaction failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newReactionResponse(source, paperID, res.State, res.Outcome))
}

func (s *Server) tracker(r *http.Request, source domain.Source, paperID string) *reaction.Tracker {
	opts := []reaction.Option{
		reaction.WithMetrics(s.metrics),
		reaction.WithLogger(s.logger),
	}
	if s.publisher != nil {
		opts = append(opts, reaction.WithPublisher(s.publisher))
	}
	key := repository.ReactionKey{Source: source, PaperRef: paperID}
	return reaction.NewTracker(s.reactions, key, observability.UserIDFromContext(r.Context()), opts...)
}
