package imagegen

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/observability"
	"github.com/helixir/scienceswipe/internal/sources"
)

// Endpoint variants, used as metric labels.
const (
	VariantStandard = "standard"
	VariantCustom   = "custom"
)

// Request asks for an illustration of one paper.
type Request struct {
	// Prompt is optional; the stored or default prompt is used when empty.
	Prompt  string        `validate:"max=4000"`
	PaperID string        `validate:"required,max=512"`
	Source  domain.Source `validate:"required,oneof=papers core regional"`
	// Width and Height default to the configured size when zero. The pair
	// must also be a size the provider's model accepts.
	Width  int `validate:"omitempty,min=256,max=1792"`
	Height int `validate:"omitempty,min=256,max=1792"`
	// StorePrompt writes the prompt to the paper row before generating and
	// together with the image URL afterwards.
	StorePrompt bool
	Variant     string `validate:"omitempty,oneof=standard custom"`
}

// Result is a generated illustration.
type Result struct {
	ImageURL string
	Prompt   string
}

// PaperLookup resolves a paper id within a source.
type PaperLookup interface {
	FetchPaperByID(ctx context.Context, source domain.Source, id string) (domain.Paper, error)
}

// RowWriter patches paper rows.
type RowWriter interface {
	UpdatePrompt(ctx context.Context, table, keyColumn string, key any, prompt string) error
	UpdateImage(ctx context.Context, table, keyColumn string, key any, imageURL string, prompt *string) error
}

// sizeLimited is implemented by providers whose model only renders a fixed
// set of sizes.
type sizeLimited interface {
	SupportedSizes() []string
}

// Invalidator drops cached feed data of a source.
type Invalidator interface {
	Invalidate(ctx context.Context, source domain.Source)
}

// Publisher receives image events.
type Publisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// GeneratorConfig holds Generator settings.
type GeneratorConfig struct {
	DefaultWidth  int
	DefaultHeight int
	// RateLimit is the sustained provider calls per second.
	RateLimit float64
	RateBurst int
}

// Generator is the backend side of the image generation endpoints.
type Generator struct {
	papers      PaperLookup
	rows        RowWriter
	provider    Provider
	store       ObjectStore
	invalidator Invalidator
	publisher   Publisher
	metrics     *observability.Metrics
	limiter     *rate.Limiter
	validate    *validator.Validate
	cfg         GeneratorConfig
	logger      zerolog.Logger
	now         func() time.Time
}

// GeneratorOption configures optional Generator dependencies.
type GeneratorOption func(*Generator)

// WithObjectStore re-hosts generated image bytes in store.
func WithObjectStore(store ObjectStore) GeneratorOption {
	return func(g *Generator) { g.store = store }
}

// WithInvalidator invalidates cached feeds after an update.
func WithInvalidator(inv Invalidator) GeneratorOption {
	return func(g *Generator) { g.invalidator = inv }
}

// WithEventPublisher publishes an event per generated image.
func WithEventPublisher(p Publisher) GeneratorOption {
	return func(g *Generator) { g.publisher = p }
}

// WithGeneratorMetrics records generation counts and durations.
func WithGeneratorMetrics(m *observability.Metrics) GeneratorOption {
	return func(g *Generator) { g.metrics = m }
}

// NewGenerator creates a generator.
func NewGenerator(papers PaperLookup, rows RowWriter, provider Provider, cfg GeneratorConfig, logger zerolog.Logger, opts ...GeneratorOption) *Generator {
	if cfg.DefaultWidth <= 0 {
		cfg.DefaultWidth = 1024
	}
	if cfg.DefaultHeight <= 0 {
		cfg.DefaultHeight = 1024
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}

	g := &Generator{
		papers:   papers,
		rows:     rows,
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		validate: validator.New(),
		cfg:      cfg,
		logger:   logger.With().Str("component", "imagegen").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate creates an illustration for req.PaperID and writes its URL back
// to the paper row.
//
// Demo papers get an image but nothing is persisted for them.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	variant := req.Variant
	if variant == "" {
		variant = VariantStandard
	}
	if err := g.validateRequest(req); err != nil {
		return Result{}, err
	}

	paper, err := g.papers.FetchPaperByID(ctx, req.Source, req.PaperID)
	if err != nil {
		return Result{}, err
	}
	logger := observability.WithPaperContext(g.logger, string(req.Source), paper.ID)
	persist := !domain.IsDemoPaperID(paper.ID)

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = promptFor(&paper)
	}

	width, height := req.Width, req.Height
	if width == 0 {
		width = g.cfg.DefaultWidth
	}
	if height == 0 {
		height = g.cfg.DefaultHeight
	}
	if err := g.checkSize(width, height); err != nil {
		return Result{}, err
	}

	if req.StorePrompt && persist {
		if err := g.writePrompt(ctx, req.Source, &paper, prompt); err != nil {
			g.metrics.RecordImageFailed(variant)
			return Result{}, err
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		g.metrics.RecordImageFailed(variant)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, domain.Aborted(ctxErr)
		}
		return Result{}, domain.NewRateLimitError("imagegen", time.Duration(float64(time.Second)/g.cfg.RateLimit))
	}

	start := time.Now()
	img, err := g.provider.Generate(ctx, prompt, width, height)
	if err != nil {
		g.metrics.RecordImageFailed(variant)
		logger.Error().Err(err).Msg("Image provider call failed")
		return Result{}, err
	}

	imageURL := img.URL
	if len(img.Data) > 0 {
		if g.store == nil {
			g.metrics.RecordImageFailed(variant)
			return Result{}, errors.New("provider returned image bytes but no object store is configured")
		}
		contentType := img.ContentType
		if contentType == "" {
			contentType = "image/png"
		}
		imageURL, err = g.store.Put(ctx, objectName(string(req.Source), paper.ID, g.now()), contentType, img.Data)
		if err != nil {
			g.metrics.RecordImageFailed(variant)
			logger.Error().Err(err).Msg("Failed to store generated image")
			return Result{}, err
		}
	}

	if persist {
		var storedPrompt *string
		if req.StorePrompt {
			storedPrompt = &prompt
		}
		if err := g.writeImage(ctx, req.Source, &paper, imageURL, storedPrompt); err != nil {
			g.metrics.RecordImageFailed(variant)
			logger.Error().Err(err).Msg("Failed to save image URL")
			return Result{}, err
		}
		if g.invalidator != nil {
			g.invalidator.Invalidate(ctx, req.Source)
		}
	}

	g.metrics.RecordImageGenerated(variant, time.Since(start).Seconds())
	g.publish(ctx, req.Source, paper.ID, domain.ImageGeneratedPayload{
		ImageURL: imageURL,
		Prompt:   prompt,
		Width:    width,
		Height:   height,
	}, logger)

	logger.Info().Str("variant", variant).Bool("persisted", persist).Msg("Generated image")
	return Result{ImageURL: imageURL, Prompt: prompt}, nil
}

// SavePrompt stores prompt on the paper row without generating an image.
func (g *Generator) SavePrompt(ctx context.Context, source domain.Source, paperID, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.NewValidationError("prompt", "prompt is required")
	}
	if len(prompt) > 4000 {
		return domain.NewValidationError("prompt", "prompt is too long")
	}
	paper, err := g.papers.FetchPaperByID(ctx, source, paperID)
	if err != nil {
		return err
	}
	if domain.IsDemoPaperID(paper.ID) {
		return domain.ErrDemoPaper
	}
	if err := g.writePrompt(ctx, source, &paper, prompt); err != nil {
		return err
	}
	if g.invalidator != nil {
		g.invalidator.Invalidate(ctx, source)
	}
	return nil
}

func (g *Generator) validateRequest(req Request) error {
	err := g.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.NewValidationError(fieldName(fe.Field()), fmt.Sprintf("failed %q validation", fe.Tag()))
	}
	return domain.NewValidationError("request", err.Error())
}

func (g *Generator) checkSize(width, height int) error {
	limited, ok := g.provider.(sizeLimited)
	if !ok {
		return nil
	}
	sizes := limited.SupportedSizes()
	if len(sizes) == 0 || slices.Contains(sizes, sizeOf(width, height)) {
		return nil
	}
	return domain.NewValidationError("size", fmt.Sprintf("%s is not supported, use one of %s", sizeOf(width, height), strings.Join(sizes, ", ")))
}

func fieldName(field string) string {
	switch field {
	case "PaperID":
		return "paperId"
	case "Source":
		return "databaseSource"
	default:
		return strings.ToLower(field)
	}
}

func (g *Generator) writePrompt(ctx context.Context, source domain.Source, p *domain.Paper, prompt string) error {
	table, column, key, err := rowKey(source, p)
	if err != nil {
		return err
	}
	return g.rows.UpdatePrompt(ctx, table, column, key, prompt)
}

func (g *Generator) writeImage(ctx context.Context, source domain.Source, p *domain.Paper, imageURL string, prompt *string) error {
	table, column, key, err := rowKey(source, p)
	if err != nil {
		return err
	}
	return g.rows.UpdateImage(ctx, table, column, key, imageURL, prompt)
}

// rowKey picks the column and argument addressing p's row: the key column
// when p.ID fits it, the alternate identifier otherwise.
func rowKey(source domain.Source, p *domain.Paper) (string, string, any, error) {
	adapter, err := sources.For(source)
	if err != nil {
		return "", "", nil, err
	}
	if key, ok := adapter.KeyArg(p.ID); ok {
		return adapter.Table(), adapter.KeyColumn(), key, nil
	}
	if p.DOI == "" {
		return "", "", nil, domain.ErrNoIdentifier
	}
	return adapter.Table(), adapter.AltKeyColumn(), p.DOI, nil
}

func (g *Generator) publish(ctx context.Context, source domain.Source, paperID string, payload domain.ImageGeneratedPayload, logger zerolog.Logger) {
	if g.publisher == nil {
		return
	}
	event, err := domain.NewEvent(domain.EventTypeImageGenerated, source, paperID, payload)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build image event")
		return
	}
	if err := g.publisher.Publish(ctx, event); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish image event")
	}
}
