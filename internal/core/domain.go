package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  MovementType = "income"
	Expense MovementType = "expense"
)

// DateLayout is the ISO calendar form used on both engines.
const DateLayout = "2006-01-02"

type (
	MovementType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Movement is a single ledger entry. The store does not constrain Type to
	// income/expense nor Amount to be non-negative; aggregates only count rows
	// whose Type is one of the two known values.
	Movement struct {
		ID      int64
		Type    MovementType
		Concept string
		Amount  Money
		Date    Date
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyConcept  = errors.New("empty concept")
	ErrEmptyType     = errors.New("empty movement type")
)

// String implements fmt.Stringer
func (t MovementType) String() string {
	return string(t)
}

// IsValid reports whether t is income or expense.
func (t MovementType) IsValid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

// legacyTypes maps the Spanish type names older databases hold.
var legacyTypes = map[string]MovementType{
	"ingreso": Income,
	"gasto":   Expense,
}

// NormalizeType trims s and maps the legacy names ingreso and gasto to income
// and expense. Any other value is returned unchanged.
func NormalizeType(s string) MovementType {
	s = strings.TrimSpace(s)
	if t, ok := legacyTypes[strings.ToLower(s)]; ok {
		return t
	}
	return MovementType(s)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// DateFromTime drops the clock part of t, keeping its calendar day.
func DateFromTime(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// String returns the ISO form, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Movement) Validate() error {
	if strings.TrimSpace(string(m.Type)) == "" {
		return ErrEmptyType
	}
	if len(strings.TrimSpace(m.Concept)) == 0 {
		return ErrEmptyConcept
	}
	return m.Date.Validate()
}
