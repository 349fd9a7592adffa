// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies may be JSON objects or form-encoded; field names are accepted in
// English and in the Spanish of the original forms.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ledger/internal/core"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Field name aliases, English first.
var (
	fieldType    = []string{"type", "tipo"}
	fieldConcept = []string{"concept", "concepto"}
	fieldAmount  = []string{"amount", "monto"}
	fieldDate    = []string{"date", "fecha"}
)

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Lookup returns the first of keys present in the body, sanitized.
func (p *RequestBodyParser) Lookup(keys ...string) (string, bool) {
	for _, key := range keys {
		if p.jsonData != nil {
			if val, ok := p.jsonData[key]; ok {
				return sanitizeInput(stringValue(val)), true
			}
		}
		if p.formData != nil {
			if vals, ok := p.formData[key]; ok && len(vals) > 0 {
				return sanitizeInput(vals[0]), true
			}
		}
	}
	return "", false
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(keys ...string) string {
	v, _ := p.Lookup(keys...)
	return v
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// inputError is a client mistake in the request body.
type inputError struct {
	field string
	err   error
}

func (e *inputError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.field, e.err)
}

func (e *inputError) Unwrap() error { return e.err }

// parseMovementInput reads a new movement of type typ from the body.
func parseMovementInput(p *RequestBodyParser, typ core.MovementType) (core.Movement, error) {
	m := core.Movement{
		Type:    typ,
		Concept: p.Get(fieldConcept...),
	}

	cents, err := core.ParseDecimalToCents(p.Get(fieldAmount...))
	if err != nil {
		return core.Movement{}, &inputError{field: "amount", err: err}
	}
	m.Amount = core.Money{Cents: cents}

	date, err := core.ParseDate(p.Get(fieldDate...))
	if err != nil {
		return core.Movement{}, &inputError{field: "date", err: err}
	}
	m.Date = date

	return m, nil
}

// applyMovementUpdate overwrites the fields of current present in the body.
// Absent fields keep their stored values.
func applyMovementUpdate(p *RequestBodyParser, current core.Movement) (core.Movement, error) {
	m := current

	if v, ok := p.Lookup(fieldType...); ok {
		m.Type = core.NormalizeType(v)
	}
	if v, ok := p.Lookup(fieldConcept...); ok {
		m.Concept = v
	}
	if v, ok := p.Lookup(fieldAmount...); ok {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return core.Movement{}, &inputError{field: "amount", err: err}
		}
		m.Amount = core.Money{Cents: cents}
	}
	if v, ok := p.Lookup(fieldDate...); ok {
		date, err := core.ParseDate(v)
		if err != nil {
			return core.Movement{}, &inputError{field: "date", err: err}
		}
		m.Date = date
	}

	return m, nil
}

// parseID reads the {id} route parameter.
func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, &inputError{field: "id", err: fmt.Errorf("%q is not a positive integer", raw)}
	}
	return id, nil
}
