package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql
var postgresFS embed.FS

//go:embed migrations/sqlite/*.sql
var sqliteFS embed.FS

// MigrationsTable records the applied schema version
const MigrationsTable = "abtest_schema_migrations"

// Migrate applies every pending migration for the store's engine. Running it
// on an up-to-date database is a no-op.
func (s *SQL) Migrate(ctx context.Context) error {
	if s.dsn == "" {
		return errors.New("migrate: database handle has no dsn")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m, db, err := s.migrator()
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() {
		m.Close()
		db.Close()
	}()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: %w", err)
	}
	return ctx.Err()
}

// migrator opens a dedicated connection for golang-migrate; the sqlite
// driver closes the handle it is given.
func (s *SQL) migrator() (*migrate.Migrate, *sql.DB, error) {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	var (
		fsys   fs.FS
		path   string
		driver database.Driver
	)
	switch s.driver {
	case DriverPostgres:
		fsys, path = postgresFS, "migrations/postgres"
		driver, err = postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	case DriverSQLite:
		fsys, path = sqliteFS, "migrations/sqlite"
		driver, err = sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: MigrationsTable})
	default:
		err = fmt.Errorf("unknown sql driver: %s", s.driver)
	}
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("database driver: %w", err)
	}

	src, err := iofs.New(fsys, path)
	if err != nil {
		driver.Close()
		db.Close()
		return nil, nil, fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.driver, driver)
	if err != nil {
		src.Close()
		driver.Close()
		db.Close()
		return nil, nil, err
	}
	return m, db, nil
}
