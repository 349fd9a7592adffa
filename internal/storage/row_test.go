package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func TestRow_Access(t *testing.T) {
	row := NewRow(
		[]string{"id", "tipo", "concepto"},
		[]any{int64(7), []byte("income"), "Salary"},
	)

	assert.Equal(t, 3, row.Len())
	assert.Equal(t, []string{"id", "tipo", "concepto"}, row.Columns())
	assert.Equal(t, "income", row.At(1))
	assert.Nil(t, row.At(9))

	v, ok := row.Get("concepto")
	assert.True(t, ok)
	assert.Equal(t, "Salary", v)

	_, ok = row.Get("missing")
	assert.False(t, ok)

	_, err := row.String("missing")
	assert.Error(t, err)
}

func TestRow_PostgresShapes(t *testing.T) {
	row := NewRow(
		[]string{"id", "monto", "fecha", "total"},
		[]any{int64(1), "500.00", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "1234.5"},
	)

	amount, err := row.Money("monto")
	require.NoError(t, err)
	assert.Equal(t, core.Money{Cents: 50000}, amount)

	f, err := row.Float64("monto")
	require.NoError(t, err)
	assert.InDelta(t, 500.0, f, 0.0001)

	date, err := row.Date("fecha")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", date.String())

	s, err := row.String("fecha")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", s)

	total, err := row.Money("total")
	require.NoError(t, err)
	assert.Equal(t, int64(123450), total.Cents)
}

func TestRow_SQLiteShapes(t *testing.T) {
	row := NewRow(
		[]string{"id", "monto", "fecha", "total"},
		[]any{int64(1), 12.3, "2024-03-05", int64(0)},
	)

	amount, err := row.Money("monto")
	require.NoError(t, err)
	assert.Equal(t, int64(1230), amount.Cents)

	date, err := row.Date("fecha")
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 3, 5), date)

	total, err := row.Money("total")
	require.NoError(t, err)
	assert.Equal(t, int64(0), total.Cents)

	id, err := row.Int64("id")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestRow_DateWithTimestampText(t *testing.T) {
	row := NewRow([]string{"fecha"}, []any{"2024-03-05T00:00:00Z"})

	date, err := row.Date("fecha")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", date.String())
}

func TestRow_Nulls(t *testing.T) {
	row := NewRow([]string{"a"}, []any{nil})

	s, err := row.String("a")
	require.NoError(t, err)
	assert.Empty(t, s)

	m, err := row.Money("a")
	require.NoError(t, err)
	assert.Zero(t, m.Cents)
}
