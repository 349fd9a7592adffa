package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"ledger/internal/log"
)

var (
	// ErrNotFound is returned when a movement id does not exist.
	ErrNotFound = errors.New("movement not found")
	// ErrDestinationNotEmpty is returned by the copy tool when the target
	// table already holds rows.
	ErrDestinationNotEmpty = errors.New("destination already contains movements")
)

// ConfigurationError reports a malformed or unusable connection descriptor.
type ConfigurationError struct {
	Engine Engine
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configure %s engine: %v", e.Engine, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ConnectivityError reports that the engine could not be reached when a
// connection was opened.
type ConnectivityError struct {
	Engine Engine
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Engine, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// SchemaError reports a failure while creating the movements table.
type SchemaError struct {
	Engine Engine
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("ensure %s schema: %v", e.Engine, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// QueryError reports a failed data operation. Op names the repository
// operation (see log.Op* constants).
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s movements: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func queryErr(op string, err error) error {
	if err == nil {
		return nil
	}
	// connectivity failures keep their own type so callers can tell them apart
	var ce *ConnectivityError
	if errors.As(err, &ce) {
		return err
	}
	return &QueryError{Op: op, Err: err}
}

// ErrorType classifies err into one of the log.ErrorType* categories.
func ErrorType(err error) string {
	var (
		cfg    *ConfigurationError
		conn   *ConnectivityError
		schema *SchemaError
		pgErr  *pgconn.PgError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return log.ErrorTypeNotFound
	case errors.As(err, &cfg):
		return log.ErrorTypeConfiguration
	case errors.As(err, &conn):
		return log.ErrorTypeConnectivity
	case errors.As(err, &schema):
		return log.ErrorTypeSchema
	case errors.As(err, &pgErr) && isConnectionClass(pgErr.Code):
		return log.ErrorTypeConnectivity
	default:
		return log.ErrorTypeQuery
	}
}

// isConnectionClass reports SQLSTATE class 08 (connection exception) and
// 57P0x (server shutting down).
func isConnectionClass(code string) bool {
	return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "57P0")
}
