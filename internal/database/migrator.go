package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/helixir/scienceswipe/migrations"
)

// Migrator applies the row store schema (paper tables, user_reactions and
// the reaction_counts view).
type Migrator struct {
	migrate *migrate.Migrate
	sqlDB   *sql.DB // sql.DB wrapper around pgx pool, must be closed
	logger  zerolog.Logger
}

// MigrationSource returns the schema files to apply. An empty dir selects the
// files compiled into the binary; anything else reads that directory.
func MigrationSource(dir string) (fs.FS, error) {
	if dir == "" {
		return migrations.FS, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("migrations path validation failed: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations path %q is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// NewMigrator creates a migrator reading golang-migrate files from the root
// of source.
func NewMigrator(db *DB, source fs.FS, logger zerolog.Logger) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if db.pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	if source == nil {
		return nil, fmt.Errorf("migration source is required")
	}

	// Open the source first so a bad file set fails before a connection is taken.
	src, err := iofs.New(source, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.pool)

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		_ = src.Close()
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = src.Close()
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Migrator{
		migrate: m,
		sqlDB:   sqlDB,
		logger:  logger,
	}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up() error {
	return m.apply("up", m.migrate.Up)
}

// Down reverts every applied migration, dropping the reaction tables.
func (m *Migrator) Down() error {
	m.logger.Warn().Msg("reverting the whole schema")
	return m.apply("down", m.migrate.Down)
}

// Steps moves n migrations forward (n > 0) or back (n < 0).
func (m *Migrator) Steps(n int) error {
	return m.apply(fmt.Sprintf("steps %+d", n), func() error {
		err := m.migrate.Steps(n)
		// Stepping past the newest or oldest file surfaces as fs.ErrNotExist.
		if errors.Is(err, fs.ErrNotExist) {
			return migrate.ErrNoChange
		}
		return err
	})
}

func (m *Migrator) apply(op string, run func() error) error {
	err := run()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		m.logger.Info().Str("op", op).Msg("schema already current")
		return nil
	case err != nil:
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	version, dirty, verr := m.migrate.Version()
	if errors.Is(verr, migrate.ErrNilVersion) {
		m.logger.Info().Str("op", op).Msg("schema empty")
		return nil
	}
	m.logger.Info().Str("op", op).Uint("version", version).Bool("dirty", dirty).Msg("schema migrated")
	return nil
}

// Version returns the current migration version.
func (m *Migrator) Version() (uint, bool, error) {
	return m.migrate.Version()
}

// Force records version as clean without running anything. It clears the
// dirty flag a failed migration leaves behind.
func (m *Migrator) Force(version int) error {
	m.logger.Warn().Int("version", version).Msg("forcing migration version...")
	return m.migrate.Force(version)
}

// Close releases the source and the sql.DB wrapper. The pool stays open.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()

	if m.sqlDB != nil {
		if err := m.sqlDB.Close(); err != nil && dbErr == nil {
			dbErr = err
		}
	}

	if sourceErr != nil && dbErr != nil {
		return fmt.Errorf("failed to close migrator: source error: %v, database error: %w", sourceErr, dbErr)
	}
	if sourceErr != nil {
		return fmt.Errorf("failed to close source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close database: %w", dbErr)
	}
	return nil
}
