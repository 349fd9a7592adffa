package http

import (
	"strings"

	"ledger/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// movementJSON is the wire form of a movement. Amounts are decimal strings
// so no precision is lost.
type movementJSON struct {
	ID      int64  `json:"id"`
	Type    string `json:"type"`
	Concept string `json:"concept"`
	Amount  string `json:"amount"`
	Date    string `json:"date"`
}

func toMovementJSON(m core.Movement) movementJSON {
	return movementJSON{
		ID:      m.ID,
		Type:    m.Type.String(),
		Concept: m.Concept,
		Amount:  m.Amount.String(),
		Date:    m.Date.String(),
	}
}

func toMovementsJSON(items []core.Movement) []movementJSON {
	out := make([]movementJSON, 0, len(items))
	for _, m := range items {
		out = append(out, toMovementJSON(m))
	}
	return out
}
