package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/helixir/scienceswipe/internal/domain"
)

// Image is a generated illustration: either a URL hosted by the provider or
// raw bytes to be re-hosted.
type Image struct {
	URL         string
	Data        []byte
	ContentType string
}

// Provider synthesizes an image from a prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string, width, height int) (Image, error)
}

// imageAPI is the part of the go-openai client used here.
type imageAPI interface {
	CreateImage(ctx context.Context, request openai.ImageRequest) (openai.ImageResponse, error)
}

// OpenAIConfig configures OpenAIProvider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// ReturnBytes requests base64 image data instead of a provider URL.
	ReturnBytes bool
}

// OpenAIProvider generates images with the OpenAI images API.
type OpenAIProvider struct {
	api         imageAPI
	model       string
	returnBytes bool
}

// NewOpenAIProvider creates a provider from cfg.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &OpenAIProvider{
		api:         openai.NewClientWithConfig(clientCfg),
		model:       model,
		returnBytes: cfg.ReturnBytes,
	}
}

// SupportedSizes lists the width x height values the model accepts, or nil
// when the model is not known here and the API decides.
func (p *OpenAIProvider) SupportedSizes() []string {
	switch p.model {
	case openai.CreateImageModelDallE3, "":
		return []string{openai.CreateImageSize1024x1024, openai.CreateImageSize1792x1024, openai.CreateImageSize1024x1792}
	case openai.CreateImageModelDallE2:
		return []string{openai.CreateImageSize256x256, openai.CreateImageSize512x512, openai.CreateImageSize1024x1024}
	default:
		return nil
	}
}

// Generate requests one image of width x height.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, width, height int) (Image, error) {
	format := openai.CreateImageResponseFormatURL
	if p.returnBytes {
		format = openai.CreateImageResponseFormatB64JSON
	}

	resp, err := p.api.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          p.model,
		N:              1,
		Size:           sizeOf(width, height),
		ResponseFormat: format,
	})
	if err != nil {
		return Image{}, providerError(err)
	}
	if len(resp.Data) == 0 {
		return Image{}, domain.NewExternalAPIError("openai", http.StatusOK, "no image returned", domain.ErrServiceUnavailable)
	}

	data := resp.Data[0]
	if p.returnBytes {
		raw, err := base64.StdEncoding.DecodeString(data.B64JSON)
		if err != nil || len(raw) == 0 {
			return Image{}, domain.NewExternalAPIError("openai", http.StatusOK, "invalid image data", err)
		}
		return Image{Data: raw, ContentType: "image/png"}, nil
	}
	if data.URL == "" {
		return Image{}, domain.NewExternalAPIError("openai", http.StatusOK, "no image URL returned", domain.ErrServiceUnavailable)
	}
	return Image{URL: data.URL}, nil
}

func sizeOf(width, height int) string {
	return fmt.Sprintf("%dx%d", width, height)
}

func providerError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.Aborted(err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		cause := domain.ErrServiceUnavailable
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			cause = domain.ErrRateLimited
		case apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500:
			cause = domain.ErrInvalidInput
		}
		return domain.NewExternalAPIError("openai", apiErr.HTTPStatusCode, apiErr.Message, cause)
	}
	return domain.NewExternalAPIError("openai", 0, err.Error(), domain.ErrServiceUnavailable)
}
