package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newSQLiteProvider returns a provider over a fresh database file with the
// schema in place.
func newSQLiteProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(ProviderConfig{
		SQLitePath: filepath.Join(t.TempDir(), "data", "ledger.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	require.NoError(t, EnsureSchema(context.Background(), p))
	return p
}

func movement(typ core.MovementType, concept string, cents int64, date string) core.Movement {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Movement{
		Type:    typ,
		Concept: concept,
		Amount:  core.Money{Cents: cents},
		Date:    d,
	}
}
