// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses,
// including the error bodies shared by every handler.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage"
)

// DatabaseErrorMessage is shown whenever a request fails for a reason the
// client cannot fix.
const DatabaseErrorMessage = "No se pudo acceder a la base de datos. Revisa /health y los logs."

// NotFoundMessage is shown for unknown movement ids.
const NotFoundMessage = "Movimiento no encontrado"

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	// Trace is only filled when debug errors are enabled.
	Trace string `json:"trace,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// TooManyRequestsError creates a 429 response.
func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "Demasiadas solicitudes. Inténtalo de nuevo más tarde.")
}

// errorResponder turns service errors into responses.
type errorResponder struct {
	showDebug bool
}

// respond maps err to a status code and logs it: unknown ids are 404,
// rejected input 422, everything else 500 with the generic message.
func (e errorResponder) respond(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := log.FromContext(r.Context())

	switch {
	case errors.Is(err, storage.ErrNotFound):
		NotFoundError(NotFoundMessage).Write(w)
		return
	case services.IsValidation(err):
		logger.InfoContext(r.Context(), "Rejected movement",
			log.FieldOperation, op,
			log.FieldErrorType, log.ErrorTypeValidation,
			log.FieldError, err)
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	logger.ErrorContext(r.Context(), "Request failed",
		log.FieldOperation, op,
		log.FieldErrorType, storage.ErrorType(err),
		log.FieldError, err)

	body := ErrorBody{Error: DatabaseErrorMessage}
	if e.showDebug {
		body.Trace = traceOf(err)
	}
	NewJSONResponse().Status(http.StatusInternalServerError).Body(body).Write(w)
}

// traceOf renders the error chain followed by the current goroutine stack.
func traceOf(err error) string {
	var b strings.Builder
	for depth := 0; err != nil; depth++ {
		fmt.Fprintf(&b, "%s%T: %v\n", strings.Repeat("  ", depth), err, err)
		err = errors.Unwrap(err)
	}
	b.WriteString("\n")
	b.Write(debug.Stack())
	return b.String()
}
