package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

// Config holds migration configuration. Source, when set, wins over
// MigrationsPath so the binary can carry its own schema.
type Config struct {
	MigrationsPath string
	Source         fs.FS
	DatabaseURL    string
	Logger         *slog.Logger
}

// Status is the schema version recorded by golang-migrate.
type Status struct {
	Version uint
	Dirty   bool
}

// Runner handles database migrations
type Runner struct {
	config Config
	logger *slog.Logger
}

func NewRunner(config Config) *Runner {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return &Runner{config: config, logger: logger.With("component", "migration")}
}

// Up applies every pending migration.
func (r *Runner) Up() error {
	r.logger.Info("running database migrations")
	return r.with(func(m *migrate.Migrate) error {
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			r.logger.Info("no new migrations to run")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		r.logger.Info("migrations completed")
		return nil
	})
}

// Down rolls back the last migration.
func (r *Runner) Down() error {
	r.logger.Info("rolling back last migration")
	return r.with(func(m *migrate.Migrate) error {
		err := m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			r.logger.Info("no migrations to roll back")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		return nil
	})
}

// Force records version without running anything. Only for repairing a dirty state.
func (r *Runner) Force(version int) error {
	r.logger.Warn("forcing migration version", "version", version)
	return r.with(func(m *migrate.Migrate) error {
		if err := m.Force(version); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
		return nil
	})
}

func (r *Runner) Status() (Status, error) {
	var st Status
	err := r.with(func(m *migrate.Migrate) error {
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		st = Status{Version: version, Dirty: dirty}
		return nil
	})
	return st, err
}

func (r *Runner) with(fn func(m *migrate.Migrate) error) error {
	db, err := sql.Open("postgres", r.config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	var m *migrate.Migrate
	if r.config.Source != nil {
		src, err := iofs.New(r.config.Source, ".")
		if err != nil {
			driver.Close()
			return fmt.Errorf("failed to read embedded migrations: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "postgres", driver)
		if err != nil {
			driver.Close()
			return fmt.Errorf("failed to create migrate instance: %w", err)
		}
	} else {
		m, err = migrate.NewWithDatabaseInstance("file://"+r.config.MigrationsPath, "postgres", driver)
		if err != nil {
			driver.Close()
			return fmt.Errorf("failed to create migrate instance: %w", err)
		}
	}
	defer m.Close()

	return fn(m)
}

// AutoMigrate brings the schema up to date at startup and refuses to touch a dirty database.
func AutoMigrate(config Config) error {
	runner := NewRunner(config)

	before, err := runner.Status()
	if err != nil {
		return err
	}
	if before.Dirty {
		return fmt.Errorf("database in dirty state at version %d, run `migrate force`", before.Version)
	}

	if err := runner.Up(); err != nil {
		return err
	}

	after, err := runner.Status()
	if err != nil {
		return err
	}
	runner.logger.Info("schema up to date", "from_version", before.Version, "to_version", after.Version)
	return nil
}
