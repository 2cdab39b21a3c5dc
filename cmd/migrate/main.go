// Package main provides a CLI tool for row store migrations: the three paper
// tables, user_reactions and the reaction_counts view.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/scienceswipe/internal/config"
	"github.com/helixir/scienceswipe/internal/database"
	"github.com/helixir/scienceswipe/internal/observability"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// action runs against an open migrator.
type action func(m *database.Migrator, logger zerolog.Logger) error

func newRootCmd() *cobra.Command {
	var migrationsPath string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply or roll back ScienceSwipe schema migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&migrationsPath, "path", "", "Read migrations from this directory instead of the embedded schema")

	bind := func(cmd *cobra.Command, build func(args []string) (action, error)) *cobra.Command {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			act, err := build(args)
			if err != nil {
				return err
			}
			return withMigrator(cmd.Context(), migrationsPath, act)
		}
		return cmd
	}

	root.AddCommand(
		bind(&cobra.Command{Use: "up", Short: "Run all pending migrations", Args: cobra.NoArgs},
			func([]string) (action, error) {
				return func(m *database.Migrator, logger zerolog.Logger) error {
					logger.Info().Msg("running all pending migrations")
					if err := m.Up(); err != nil {
						return fmt.Errorf("migrate up: %w", err)
					}
					return nil
				}, nil
			}),
		bind(&cobra.Command{Use: "down", Short: "Roll back all migrations", Args: cobra.NoArgs},
			func([]string) (action, error) {
				return func(m *database.Migrator, logger zerolog.Logger) error {
					logger.Warn().Msg("rolling back all migrations")
					if err := m.Down(); err != nil {
						return fmt.Errorf("migrate down: %w", err)
					}
					return nil
				}, nil
			}),
		bind(&cobra.Command{Use: "steps <n>", Short: "Run N migration steps (positive=up, negative=down)", Args: cobra.ExactArgs(1)},
			func(args []string) (action, error) {
				n, err := strconv.Atoi(args[0])
				if err != nil || n == 0 {
					return nil, fmt.Errorf("steps must be a non-zero integer, got %q", args[0])
				}
				return func(m *database.Migrator, logger zerolog.Logger) error {
					logger.Info().Int("steps", n).Msg("running migration steps")
					if err := m.Steps(n); err != nil {
						return fmt.Errorf("migrate steps: %w", err)
					}
					return nil
				}, nil
			}),
		bind(&cobra.Command{Use: "version", Short: "Print the current migration version", Args: cobra.NoArgs},
			func([]string) (action, error) {
				return func(*database.Migrator, zerolog.Logger) error { return nil }, nil
			}),
		bind(&cobra.Command{Use: "force <version>", Short: "Force set the migration version after a failed run", Args: cobra.ExactArgs(1)},
			func(args []string) (action, error) {
				v, err := strconv.Atoi(args[0])
				if err != nil || v < 0 {
					return nil, fmt.Errorf("version must be a non-negative integer, got %q", args[0])
				}
				return func(m *database.Migrator, logger zerolog.Logger) error {
					logger.Warn().Int("version", v).Msg("forcing migration version")
					if err := m.Force(v); err != nil {
						return fmt.Errorf("force version: %w", err)
					}
					return nil
				}, nil
			}),
	)
	return root
}

// withMigrator connects to the row store, runs act and reports the resulting
// schema version.
func withMigrator(ctx context.Context, pathOverride string, act action) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	})
	defer logCloser.Close()
	logger = logger.With().Str("component", "migrate").Logger()

	dir := cfg.Database.MigrationPath
	if pathOverride != "" {
		dir = pathOverride
	}
	source, err := database.MigrationSource(dir)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := database.New(connectCtx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, source, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := act(migrator, logger); err != nil {
		return err
	}
	printVersion(migrator, logger)
	return nil
}

func printVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current migration version")
}
