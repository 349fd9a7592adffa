package storage

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"ledger/internal/core"
)

// Row is a result row readable by column name or position, whichever engine
// produced it. Driver-specific value shapes are normalized on access: pgx
// returns NUMERIC as a decimal string and DATE as time.Time, SQLite returns
// REAL as float64 and dates as ISO text.
type Row struct {
	columns []string
	values  []any
	index   map[string]int
}

// NewRow builds a row from parallel column and value slices.
func NewRow(columns []string, values []any) Row {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	normalized := make([]any, len(values))
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		normalized[i] = v
	}
	return Row{columns: columns, values: normalized, index: index}
}

// scanRows drains rows into Row values.
func scanRows(rows *sqlx.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	var out []Row
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, NewRow(columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Columns returns the column names in result order.
func (r Row) Columns() []string {
	return r.columns
}

// Len is the number of columns.
func (r Row) Len() int {
	return len(r.values)
}

// At returns the value at position i.
func (r Row) At(i int) any {
	if i < 0 || i >= len(r.values) {
		return nil
	}
	return r.values[i]
}

// Get returns the value of the named column.
func (r Row) Get(name string) (any, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

func (r Row) lookup(name string) (any, error) {
	v, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("column %q not in result", name)
	}
	return v, nil
}

// String reads a text column. NULL reads as "".
func (r Row) String(name string) (string, error) {
	v, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case time.Time:
		return core.DateFromTime(t).String(), nil
	default:
		return fmt.Sprint(t), nil
	}
}

// Int64 reads an integer column.
func (r Row) Int64(name string) (int64, error) {
	v, err := r.lookup(name)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case int:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case string:
		i, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("column %q: parse integer %q: %w", name, t, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("column %q: unsupported integer type %T", name, v)
	}
}

// Float64 reads a numeric column. NULL reads as 0.
func (r Row) Float64(name string) (float64, error) {
	v, err := r.lookup(name)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("column %q: parse number %q: %w", name, t, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("column %q: unsupported numeric type %T", name, v)
	}
}

// Money reads a currency column. Decimal strings are converted without going
// through floating point.
func (r Row) Money(name string) (core.Money, error) {
	v, err := r.lookup(name)
	if err != nil {
		return core.Money{}, err
	}
	switch t := v.(type) {
	case nil:
		return core.Money{}, nil
	case int64:
		return core.Money{Cents: t * 100}, nil
	case string:
		cents, err := core.ParseDecimalToCents(t)
		if err != nil {
			return core.Money{}, fmt.Errorf("column %q: parse amount %q: %w", name, t, err)
		}
		return core.Money{Cents: cents}, nil
	default:
		f, err := r.Float64(name)
		if err != nil {
			return core.Money{}, err
		}
		return core.MoneyFromFloat(f), nil
	}
}

// Date reads a calendar date stored natively or as ISO text.
func (r Row) Date(name string) (core.Date, error) {
	v, err := r.lookup(name)
	if err != nil {
		return core.Date{}, err
	}
	switch t := v.(type) {
	case nil:
		return core.Date{}, nil
	case time.Time:
		return core.DateFromTime(t), nil
	case string:
		if len(t) > len(core.DateLayout) {
			t = t[:len(core.DateLayout)]
		}
		d, err := core.ParseDate(t)
		if err != nil {
			return core.Date{}, fmt.Errorf("column %q: %w", name, err)
		}
		return d, nil
	default:
		return core.Date{}, fmt.Errorf("column %q: unsupported date type %T", name, v)
	}
}
