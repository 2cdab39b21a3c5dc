package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/helixir/scienceswipe/internal/cache"
	"github.com/helixir/scienceswipe/internal/config"
	"github.com/helixir/scienceswipe/internal/database"
	"github.com/helixir/scienceswipe/internal/events"
	"github.com/helixir/scienceswipe/internal/feed"
	"github.com/helixir/scienceswipe/internal/imagegen"
	"github.com/helixir/scienceswipe/internal/observability"
	"github.com/helixir/scienceswipe/internal/prefs"
	"github.com/helixir/scienceswipe/internal/reaction"
	"github.com/helixir/scienceswipe/internal/repository"
	"github.com/helixir/scienceswipe/internal/sources"
	"github.com/helixir/scienceswipe/internal/tui"
)

// logFileName is used when the configured log output would draw over the UI.
const logFileName = "scienceswipe.log"

// connectTimeout bounds startup connections so an unreachable database
// degrades to the demo feed quickly.
const connectTimeout = 5 * time.Second

// store is what the client needs from the row store: paper rows, reaction
// rows and the aggregate counts for the mindblown ordering.
type store interface {
	repository.RowRepository
	reaction.Store
	feed.ReactionCounter
}

// pgStore joins the two Postgres repositories.
type pgStore struct {
	*repository.PgRowRepository
	*repository.PgReactionRepository
}

func runClient(ctx context.Context, opts *options, paperID string) error {
	cfg, prefStore, err := loadSettings(opts)
	if err != nil {
		return err
	}

	logger, logCloser := observability.NewLogger(clientLogging(cfg.Logging, filepath.Dir(prefStore.Path())))
	defer logCloser.Close()
	logger = logger.With().Str("component", "client").Logger()
	logger.Info().Str("prefs", prefStore.Path()).Str("paper_id", paperID).Msg("scienceswipe client starting")

	rows, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	feedOpts := []feed.Option{
		feed.WithReactionCounter(rows),
		feed.WithMaxPapers(cfg.Feed.MaxPapers),
		feed.WithQueryTimeout(cfg.Feed.QueryTimeout),
	}
	if c, closeCache := openCache(ctx, cfg, logger); c != nil {
		defer closeCache()
		feedOpts = append(feedOpts, feed.WithCache(c))
	}
	feedSvc := feed.NewService(rows, logger, feedOpts...)

	boardOpts := []reaction.Option{reaction.WithLogger(logger)}
	if cfg.Kafka.Enabled {
		publisher := events.NewKafkaPublisher(events.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, logger, nil)
		defer publisher.Close()
		boardOpts = append(boardOpts, reaction.WithPublisher(publisher))
	}
	board := reaction.NewBoard(rows, prefStore.Get().UserID, boardOpts...)

	model := tui.New(tui.Config{
		Feed:               feedSvc,
		Images:             imagegen.NewClient(cfg.Client.APIBaseURL, cfg.Client.RequestTimeout, logger),
		Reactions:          board,
		Selector:           sources.NewSelector(prefStore.Get().DatabaseSource, prefStore.SetSource),
		Prefs:              prefStore,
		PaperID:            paperID,
		AutoGenerateImages: opts.autoImages || cfg.Client.AutoGenerateImages,
		RequestTimeout:     cfg.Feed.QueryTimeout,
		ImageTimeout:       cfg.Client.RequestTimeout,
		Logger:             logger,
	})

	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run terminal UI: %w", err)
	}
	logger.Info().Msg("scienceswipe client stopped")
	return nil
}

// openPrefs opens the preferences file. flagPath wins over configPath; both
// empty means the user config directory.
// loadSettings reads the config and opens the preferences file it names,
// unless --prefs points elsewhere.
func loadSettings(opts *options) (*config.Config, *prefs.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	store, err := openPrefs(opts.prefsPath, cfg.Client.PrefsPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func openPrefs(flagPath, configPath string) (*prefs.Store, error) {
	path := flagPath
	if path == "" {
		path = configPath
	}
	if path == "" {
		p, err := prefs.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	store, err := prefs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open preferences: %w", err)
	}
	return store, nil
}

// openStore connects to the row store. When the database is unreachable the
// client still starts: every read falls back to the demo dataset.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store, func()) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	db, err := database.New(connectCtx, &cfg.Database, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("row store unavailable, showing demo papers")
		return repository.Offline{Cause: err}, func() {}
	}
	return pgStore{
		PgRowRepository:      repository.NewPgRowRepository(db),
		PgReactionRepository: repository.NewPgReactionRepository(db, logger),
	}, db.Close
}

// openCache returns the shared feed cache when one is configured and reachable.
func openCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (feed.Cache, func()) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rdb, err := cache.NewClient(ctx, cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("feed cache unavailable")
		return nil, nil
	}
	return cache.NewPaperCache(rdb, cfg.Redis.TTL, cfg.Redis.KeyPrefix), func() { _ = rdb.Close() }
}

// clientLogging keeps logs off the terminal: stdout and stderr outputs are
// redirected to a file next to the preferences.
func clientLogging(cfg config.LoggingConfig, dir string) observability.LoggingConfig {
	out := cfg.Output
	switch strings.ToLower(out) {
	case "", "stdout", "stderr":
		out = filepath.Join(dir, logFileName)
	}
	return observability.LoggingConfig{
		Level:      cfg.Level,
		Format:     "json",
		Output:     out,
		AddSource:  cfg.AddSource,
		TimeFormat: cfg.TimeFormat,
	}
}
