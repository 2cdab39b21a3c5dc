package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/scienceswipe/internal/domain"
)

const (
	defaultClientTimeout = 2 * time.Minute
	maxErrorBody         = 4096
)

// GenerateRequest is the body of POST /api/generate-image.
type GenerateRequest struct {
	Prompt         string `json:"prompt"`
	PaperID        string `json:"paperId"`
	DatabaseSource string `json:"databaseSource"`
}

// GenerateResponse is the success body of POST /api/generate-image.
type GenerateResponse struct {
	ImageURL string `json:"imageUrl"`
}

// CustomGenerateRequest is the body of POST /api/generate-image/custom.
type CustomGenerateRequest struct {
	Prompt            string `json:"prompt,omitempty"`
	PaperID           string `json:"paperId"`
	DatabaseSource    string `json:"databaseSource"`
	Width             int    `json:"width,omitempty"`
	Height            int    `json:"height,omitempty"`
	ShouldStorePrompt bool   `json:"shouldStorePrompt"`
}

// CustomGenerateResponse is the success body of POST /api/generate-image/custom.
type CustomGenerateResponse struct {
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt"`
}

// PromptRequest is the body of PUT /api/papers/{id}/prompt.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Client talks to the image generation endpoints. Failures are returned
// without retry; regeneration is always user initiated.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "imagegen_client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnsureImage returns the paper's illustration URL, generating one if the
// paper has none. An existing URL is returned without any network call.
//
// Otherwise the stored prompt, or a default one built from the title, is
// saved on the paper row and sent to the generation endpoint. On success p is
// updated with the prompt and the new URL.
func (c *Client) EnsureImage(ctx context.Context, source domain.Source, p *domain.Paper) (string, error) {
	if p.HasImage() {
		return p.ImageURL, nil
	}

	prompt := promptFor(p)
	if prompt != p.AIImagePrompt && !domain.IsDemoPaperID(p.ID) {
		if err := c.SavePrompt(ctx, source, p.ID, prompt); err != nil {
			return "", err
		}
	}

	var resp GenerateResponse
	err := c.post(ctx, "/api/generate-image", GenerateRequest{
		Prompt:         prompt,
		PaperID:        p.ID,
		DatabaseSource: string(source),
	}, &resp)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.ImageURL) == "" {
		return "", domain.NewExternalAPIError("imagegen", http.StatusOK, "response has no image URL", domain.ErrServiceUnavailable)
	}

	p.AIImagePrompt = prompt
	p.ImageURL = resp.ImageURL
	return resp.ImageURL, nil
}

// Regenerate asks for a new illustration even if the paper already has one.
// An empty prompt reuses the stored or default prompt. The prompt is stored
// with the new URL.
func (c *Client) Regenerate(ctx context.Context, source domain.Source, p *domain.Paper, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = promptFor(p)
	}

	var resp CustomGenerateResponse
	err := c.post(ctx, "/api/generate-image/custom", CustomGenerateRequest{
		Prompt:            prompt,
		PaperID:           p.ID,
		DatabaseSource:    string(source),
		ShouldStorePrompt: !domain.IsDemoPaperID(p.ID),
	}, &resp)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.ImageURL) == "" {
		return "", domain.NewExternalAPIError("imagegen", http.StatusOK, "response has no image URL", domain.ErrServiceUnavailable)
	}

	if resp.Prompt != "" {
		prompt = resp.Prompt
	}
	p.AIImagePrompt = prompt
	p.ImageURL = resp.ImageURL
	return resp.ImageURL, nil
}

// SavePrompt stores prompt on the paper row.
func (c *Client) SavePrompt(ctx context.Context, source domain.Source, paperID, prompt string) error {
	path := "/api/papers/" + url.PathEscape(paperID) + "/prompt?source=" + url.QueryEscape(string(source))
	return c.do(ctx, http.MethodPut, path, PromptRequest{Prompt: prompt}, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return domain.Aborted(err)
		}
		c.logger.Warn().Err(err).Str("path", path).Msg("Image API request failed")
		return domain.NewExternalAPIError("imagegen", 0, "request failed", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Image API response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := http.StatusText(resp.StatusCode)
		var e ErrorResponse
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return domain.NewExternalAPIError("imagegen", resp.StatusCode, msg, statusCause(resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewExternalAPIError("imagegen", resp.StatusCode, "malformed response", err)
	}
	return nil
}

func statusCause(status int) error {
	switch {
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case status == http.StatusConflict:
		return domain.ErrDemoPaper
	case status >= 400 && status < 500:
		return domain.ErrInvalidInput
	default:
		return domain.ErrServiceUnavailable
	}
}
