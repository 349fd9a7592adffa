package storage

import (
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Engine identifies the relational engine backing the ledger.
type Engine string

const (
	// SQLite is the embedded single-file engine.
	SQLite Engine = "sqlite"
	// Postgres is the networked engine.
	Postgres Engine = "postgres"
)

var networkedSchemes = []string{"postgres://", "postgresql://"}

// String implements fmt.Stringer
func (e Engine) String() string {
	return string(e)
}

// IsValid returns true if the engine is known
func (e Engine) IsValid() bool {
	switch e {
	case SQLite, Postgres:
		return true
	default:
		return false
	}
}

// IsNetworked reports whether dsn selects the networked engine. The match is a
// case-sensitive prefix match on the URI scheme; anything else, including the
// empty string, selects the embedded engine.
func IsNetworked(dsn string) bool {
	if dsn == "" {
		return false
	}
	for _, scheme := range networkedSchemes {
		if strings.HasPrefix(dsn, scheme) {
			return true
		}
	}
	return false
}

// SelectEngine maps a connection descriptor to the engine it selects.
func SelectEngine(dsn string) Engine {
	if IsNetworked(dsn) {
		return Postgres
	}
	return SQLite
}

// Dialect holds everything that differs between the two engines at the SQL
// text level. It is derived once from the Engine and never re-evaluated.
type Dialect struct {
	engine Engine
}

// DialectFor returns the dialect of e.
func DialectFor(e Engine) Dialect {
	return Dialect{engine: e}
}

// Engine returns the engine this dialect targets.
func (d Dialect) Engine() Engine {
	return d.engine
}

// DriverName is the database/sql driver registered for the engine.
func (d Dialect) DriverName() string {
	if d.engine == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// Placeholder returns the bind token for the n-th (1-based) parameter:
// "?" on SQLite, "$n" on PostgreSQL.
func (d Dialect) Placeholder(n int) string {
	if d.engine == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Rebind rewrites a query written with "?" placeholders into the engine's
// placeholder syntax.
func (d Dialect) Rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(d.DriverName()), query)
}

// MigrationsDir is the embedded directory holding the engine's DDL.
func (d Dialect) MigrationsDir() string {
	return "migrations/" + d.engine.String()
}
