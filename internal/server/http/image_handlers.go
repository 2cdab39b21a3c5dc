package httpserver

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/imagegen"
	"github.com/helixir/scienceswipe/internal/observability"
)

// maxRequestBodySize limits request bodies to 1 MB.
const maxRequestBodySize = 1 << 20

// generateImage handles POST /api/generate-image.
// It illustrates a paper with the given or stored prompt and saves the image URL.
func (s *Server) generateImage(w http.ResponseWriter, r *http.Request) {
	var req imagegen.GenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	source, ok := parseSource(w, req.DatabaseSource)
	if !ok {
		return
	}

	res, err := s.images.Generate(r.Context(), imagegen.Request{
		Prompt:  req.Prompt,
		PaperID: req.PaperID,
		Source:  source,
		Variant: imagegen.VariantStandard,
	})
	if err != nil {
		s.logFailure(r, err, "Image generation failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, imagegen.GenerateResponse{ImageURL: res.ImageURL})
}

// generateCustomImage handles POST /api/generate-image/custom.
// It accepts explicit dimensions and optionally persists the prompt.
func (s *Server) generateCustomImage(w http.ResponseWriter, r *http.Request) {
	var req imagegen.CustomGenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	source, ok := parseSource(w, req.DatabaseSource)
	if !ok {
		return
	}

	res, err := s.images.Generate(r.Context(), imagegen.Request{
		Prompt:      req.Prompt,
		PaperID:     req.PaperID,
		Source:      source,
		Width:       req.Width,
		Height:      req.Height,
		StorePrompt: req.ShouldStorePrompt,
		Variant:     imagegen.VariantCustom,
	})
	if err != nil {
		s.logFailure(r, err, "Custom image generation failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, imagegen.CustomGenerateResponse{ImageURL: res.ImageURL, Prompt: res.Prompt})
}

// savePrompt handles PUT /api/papers/{paperID}/prompt.
func (s *Server) savePrompt(w http.ResponseWriter, r *http.Request) {
	source, ok := parseSource(w, r.URL.Query().Get("source"))
	if !ok {
		return
	}
	var req imagegen.PromptRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.images.SavePrompt(r.Context(), source, paperIDParam(r), req.Prompt); err != nil {
		s.logFailure(r, err, "Saving prompt failed")
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeBody reads a size-limited JSON body into dst, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

// parseSource converts a source parameter, writing a 400 if it is unknown.
// An empty value selects the default source.
func parseSource(w http.ResponseWriter, value string) (domain.Source, bool) {
	source, err := domain.ParseSource(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown database source")
		return "", false
	}
	return source, true
}

// logFailure logs err unless it is a client error.
func (s *Server) logFailure(r *http.Request, err error, msg string) {
	if isClientError(err) {
		return
	}
	s.logger.Error().
		Err(err).
		Str("request_id", observability.RequestIDFromContext(r.Context())).
		Str("route", routePattern(r)).
		Msg(msg)
}
