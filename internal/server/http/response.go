package httpserver

import (
	"errors"
	"net/http"

	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/imagegen"
	"github.com/helixir/scienceswipe/internal/reaction"
)

type errorResponse = imagegen.ErrorResponse

type listPapersResponse struct {
	Papers     []domain.Paper `json:"papers"`
	Source     domain.Source  `json:"source"`
	Sort       string         `json:"sort"`
	TotalCount int            `json:"total_count"`
}

type paperResponse struct {
	Paper domain.Paper `json:"paper"`
}

type reactionResponse struct {
	PaperID    string `json:"paper_id"`
	Source     string `json:"source"`
	Count      int    `json:"count"`
	HasReacted bool   `json:"has_reacted"`
	IsTopPaper bool   `json:"is_top_paper"`
	Outcome    string `json:"outcome,omitempty"`
}

func newReactionResponse(source domain.Source, paperID string, st reaction.State, outcome reaction.Outcome) reactionResponse {
	return reactionResponse{
		PaperID:    paperID,
		Source:     string(source),
		Count:      st.Count,
		HasReacted: st.HasReacted,
		IsTopPaper: st.IsTopPaper,
		Outcome:    string(outcome),
	}
}

// writeDomainError maps domain errors to HTTP status codes. Messages are
// fixed strings apart from validation errors, which only echo field names.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var ext *domain.ExternalAPIError

	switch {
	case errors.Is(err, reaction.ErrAlreadyReacted):
		writeError(w, http.StatusConflict, "already reacted")
	case errors.Is(err, reaction.ErrMutationInFlight):
		writeError(w, http.StatusConflict, "reaction update already in progress")
	case errors.Is(err, domain.ErrDemoPaper):
		writeError(w, http.StatusConflict, "demo paper is read-only")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrNoIdentifier):
		writeError(w, http.StatusBadRequest, "paper has no identifier")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, domain.ErrCancelled):
		writeError(w, http.StatusConflict, "operation cancelled")
	case errors.As(err, &ext):
		writeError(w, http.StatusBadGateway, "image provider error")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// isClientError reports whether err maps to a 4xx response.
func isClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrDemoPaper) ||
		errors.Is(err, domain.ErrNoIdentifier) ||
		errors.Is(err, domain.ErrRateLimited) ||
		errors.Is(err, reaction.ErrAlreadyReacted) ||
		errors.Is(err, reaction.ErrMutationInFlight)
}
