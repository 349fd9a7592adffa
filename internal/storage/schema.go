package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.up.sql migrations/postgres/*.up.sql
var migrationsFS embed.FS

// EnsureSchema creates the movements table if it does not exist yet, using the
// column types of the provider's engine. It is safe to call on every start.
func EnsureSchema(ctx context.Context, p *Provider) error {
	if err := runMigrations(ctx, p); err != nil {
		return &SchemaError{Engine: p.Engine(), Err: err}
	}
	return nil
}

func runMigrations(ctx context.Context, p *Provider) error {
	// The migrate instance closes its database on Close, so it gets its own
	// handle instead of the shared pool.
	db, err := p.OpenDB()
	if err != nil {
		return err
	}
	defer db.Close()

	var (
		driver database.Driver
		name   string
	)
	switch p.Engine() {
	case Postgres:
		driver, err = pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
		name = "pgx5"
	default:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
		name = "sqlite"
	}
	if err != nil {
		return fmt.Errorf("create %s migrate driver: %w", name, err)
	}

	src, err := iofs.New(migrationsFS, p.Dialect().MigrationsDir())
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, name, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	err = m.Up()
	var dirty migrate.ErrDirty
	if errors.As(err, &dirty) {
		// A previous attempt failed half way. The only migration is
		// CREATE TABLE IF NOT EXISTS, so it is safe to clear the mark and rerun.
		if ferr := m.Force(database.NilVersion); ferr != nil {
			return fmt.Errorf("reset dirty version %d: %w", dirty.Version, ferr)
		}
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
