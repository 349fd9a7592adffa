package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute

	// SQLite serializes writers; a handful of connections covers concurrent readers
	sqliteMaxOpenConns = 4
)

// ProviderConfig describes how to reach the active engine.
type ProviderConfig struct {
	// DatabaseURL selects the networked engine when it carries a postgres scheme.
	DatabaseURL string
	// SQLitePath is the embedded database file, used when DatabaseURL does not
	// select the networked engine.
	SQLitePath string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Provider hands out connections to the engine selected at construction time.
// Connections come from a bounded pool; each logical operation acquires one
// with Open and releases it with Close.
type Provider struct {
	dialect Dialect
	dsn     string
	db      *sqlx.DB
}

// NewProvider selects the engine from cfg and prepares the connection pool.
// No connection is established yet; a malformed descriptor is reported as a
// ConfigurationError.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	engine := SelectEngine(cfg.DatabaseURL)
	dialect := DialectFor(engine)

	dsn := cfg.DatabaseURL
	if engine == SQLite {
		var err error
		dsn, err = sqliteDSN(cfg.SQLitePath)
		if err != nil {
			return nil, &ConfigurationError{Engine: engine, Err: err}
		}
	}

	db, err := sqlx.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, &ConfigurationError{Engine: engine, Err: err}
	}
	configurePool(db, engine, cfg)

	return &Provider{
		dialect: dialect,
		dsn:     dsn,
		db:      db,
	}, nil
}

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// sqliteDSN resolves the file path, creates its directory and appends the
// connection pragmas, after any query the path already carries.
func sqliteDSN(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("sqlite database path is empty")
	}
	if strings.HasPrefix(path, "file:") {
		return path, nil
	}
	file, query, hasQuery := strings.Cut(path, "?")
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return "", fmt.Errorf("create db directory: %w", err)
	}

	sep := "?"
	switch {
	case hasQuery && query == "":
		sep = ""
	case hasQuery:
		sep = "&"
	}
	return path + sep + sqlitePragmas, nil
}

func configurePool(db *sqlx.DB, engine Engine, cfg ProviderConfig) {
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	if engine == SQLite && maxOpen > sqliteMaxOpenConns {
		maxOpen = sqliteMaxOpenConns
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConns
	}
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = defaultConnMaxLifetime
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
}

// Engine returns the engine selected at construction.
func (p *Provider) Engine() Engine {
	return p.dialect.engine
}

// Dialect returns the SQL dialect of the selected engine.
func (p *Provider) Dialect() Dialect {
	return p.dialect
}

// Open acquires a live connection from the pool. The caller must Close it.
func (p *Provider) Open(ctx context.Context) (*sqlx.Conn, error) {
	conn, err := p.db.Connx(ctx)
	if err != nil {
		return nil, &ConnectivityError{Engine: p.Engine(), Err: err}
	}
	return conn, nil
}

// OpenDB opens a standalone handle outside the pool. It is meant for owners
// that close the handle themselves, such as the schema migrator.
func (p *Provider) OpenDB() (*sql.DB, error) {
	db, err := sql.Open(p.dialect.DriverName(), p.dsn)
	if err != nil {
		return nil, &ConfigurationError{Engine: p.Engine(), Err: err}
	}
	return db, nil
}

// Ping opens a fresh connection, verifies it and closes it again.
func (p *Provider) Ping(ctx context.Context) error {
	db, err := p.OpenDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return &ConnectivityError{Engine: p.Engine(), Err: err}
	}
	return nil
}

// Stats exposes pool statistics for health reporting.
func (p *Provider) Stats() sql.DBStats {
	return p.db.Stats()
}

// Close releases the pool.
func (p *Provider) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
