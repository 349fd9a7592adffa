package storage

import (
	"net/url"
	"strings"

	"ledger/internal/core"
)

// Filter holds the optional listing predicates. Empty fields are ignored.
type Filter struct {
	Type     string
	DateFrom string
	DateTo   string
	Concept  string
}

// FilterFromQuery reads a filter from query parameters. The Spanish names of
// the original form (tipo, desde, hasta, concepto) are accepted as aliases,
// as are the legacy type values ingreso and gasto.
func FilterFromQuery(q url.Values) Filter {
	pick := func(keys ...string) string {
		for _, k := range keys {
			if v := q.Get(k); v != "" {
				return v
			}
		}
		return ""
	}
	return Filter{
		Type:     string(core.NormalizeType(pick("type", "tipo"))),
		DateFrom: pick("from", "desde"),
		DateTo:   pick("to", "hasta"),
		Concept:  pick("concept", "concepto"),
	}
}

// BuildFilter translates f into a " WHERE ..." clause and its bound values.
// Predicates are always emitted in the order type, date-from, date-to,
// concept. Only placeholder tokens are written into the clause; every value is
// bound. An empty filter yields "" and an empty value list.
func BuildFilter(d Dialect, f Filter) (string, []any) {
	var (
		conditions []string
		args       = []any{}
	)
	add := func(predicate string, value any) {
		args = append(args, value)
		conditions = append(conditions, predicate+" "+d.Placeholder(len(args)))
	}

	if t := core.MovementType(strings.TrimSpace(f.Type)); t.IsValid() {
		add("tipo =", string(t))
	}
	if from := strings.TrimSpace(f.DateFrom); from != "" {
		add("fecha >=", from)
	}
	if to := strings.TrimSpace(f.DateTo); to != "" {
		add("fecha <=", to)
	}
	if concept := strings.TrimSpace(f.Concept); concept != "" {
		add("LOWER(concepto) LIKE", "%"+strings.ToLower(concept)+"%")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
