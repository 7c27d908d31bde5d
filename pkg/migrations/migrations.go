// Package migrations applies the versioned SQL schema with golang-migrate.
// The schema ships embedded in the binary; Config.Dir points at an on-disk copy instead.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var embedded embed.FS

const embeddedRoot = "sql"

type migrator interface {
	Up() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Close() (sourceErr error, databaseErr error)
}

// Source is either a URL understood by golang-migrate or an already-open source driver.
type Source struct {
	URL    string
	Driver source.Driver
}

func (s Source) String() string {
	if s.Driver != nil {
		return "embedded"
	}
	return s.URL
}

var driverFactory = func(db *sql.DB, cfg Config) (database.Driver, error) {
	return postgres.WithInstance(db, &postgres.Config{MigrationsTable: cfg.MigrationsTable})
}

var migratorFactory = func(src Source, driver database.Driver) (migrator, error) {
	if src.Driver != nil {
		return migrate.NewWithInstance("iofs", src.Driver, "postgres", driver)
	}
	return migrate.NewWithDatabaseInstance(src.URL, "postgres", driver)
}

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type Config struct {
	// Dir overrides the embedded schema with SQL files on disk.
	Dir             string
	MigrationsTable string
	Logger          Logger
}

type Status struct {
	Version uint
	Dirty   bool
}

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB, cfg Config) error {
	return run(ctx, db, cfg, "up", func(m migrator) error {
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			cfg.info("No migrations to apply")
			return nil
		}
		if err == nil {
			cfg.info("Migrations applied successfully")
		}
		return err
	})
}

// Down rolls back the given number of applied migrations.
func Down(ctx context.Context, db *sql.DB, cfg Config, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("migrations: down steps must be positive, got %d", steps)
	}

	return run(ctx, db, cfg, "down", func(m migrator) error {
		if err := m.Steps(-steps); err != nil {
			return err
		}
		cfg.info("Migrations rolled back", "steps", steps)
		return nil
	})
}

// CurrentStatus reports the applied version; Version is 0 when nothing has run yet.
func CurrentStatus(ctx context.Context, db *sql.DB, cfg Config) (Status, error) {
	var status Status

	err := run(ctx, db, cfg, "status", func(m migrator) error {
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		if err != nil {
			return err
		}
		status = Status{Version: version, Dirty: dirty}
		return nil
	})
	if err != nil {
		return Status{}, err
	}

	return status, nil
}

func resolveSource(cfg Config) (Source, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		driver, err := iofs.New(embedded, embeddedRoot)
		if err != nil {
			return Source{}, fmt.Errorf("migrations: embedded source: %w", err)
		}
		return Source{Driver: driver}, nil
	}

	absDir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return Source{}, fmt.Errorf("migrations: resolve dir: %w", err)
	}

	// ToSlash keeps Windows paths valid inside the URL.
	return Source{URL: (&url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(absDir),
	}).String()}, nil
}

func run(ctx context.Context, db *sql.DB, cfg Config, op string, fn func(migrator) error) error {
	if db == nil {
		return fmt.Errorf("migrations: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.MigrationsTable) == "" {
		cfg.MigrationsTable = "schema_migrations"
	}

	src, err := resolveSource(cfg)
	if err != nil {
		return err
	}

	driver, err := driverFactory(db, cfg)
	if err != nil {
		return fmt.Errorf("migrations: postgres driver: %w", err)
	}

	m, err := migratorFactory(src, driver)
	if err != nil {
		return fmt.Errorf("migrations: init: %w", err)
	}

	closeOnce := sync.Once{}
	closeMigrator := func() {
		closeOnce.Do(func() {
			srcErr, dbErr := m.Close()
			if srcErr != nil {
				cfg.warn("Migrations source close error", "error", srcErr)
			}
			if dbErr != nil {
				cfg.warn("Migrations db close error", "error", dbErr)
			}
		})
	}
	defer closeMigrator()

	cfg.info("Running SQL migrations", "op", op, "source", src.String(), "table", cfg.MigrationsTable)

	errCh := make(chan error, 1)
	go func() {
		errCh <- fn(m)
	}()

	select {
	case <-ctx.Done():
		// Best-effort interruption. migrate doesn't accept a context directly.
		closeMigrator()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("migrations: %s: %w", op, err)
		}
	}

	return nil
}

func (cfg Config) info(msg string, args ...any) {
	if cfg.Logger != nil {
		cfg.Logger.Info(msg, args...)
	}
}

func (cfg Config) warn(msg string, args ...any) {
	if cfg.Logger != nil {
		cfg.Logger.Warn(msg, args...)
	}
}
