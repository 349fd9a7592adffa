package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldEngine     = "engine"
	FieldAttempt    = "attempt"
	FieldMovementID = "movement_id"
	FieldType       = "type"
	FieldConcept    = "concept"
	FieldAmount     = "amount"
	FieldDate       = "date"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentStorage  = "storage"
	ComponentMovement = "movement"
	ComponentAMQP     = "amqp"
	ComponentMigrate  = "migrate"
)

// Operations defines standard operation names
const (
	OpCreate  = "create"
	OpRead    = "read"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpList    = "list"
	OpBalance = "balance"
	OpCount   = "count"
	OpPing    = "ping"
	OpCopy    = "copy"
	OpStartup = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeConnectivity  = "connectivity_error"
	ErrorTypeSchema        = "schema_error"
	ErrorTypeQuery         = "query_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithMovement adds movement-related fields
func (f LogFields) WithMovement(id int64, typ, concept, amount, date string) LogFields {
	if id > 0 {
		f[FieldMovementID] = id
	}
	f[FieldType] = typ
	f[FieldConcept] = concept
	f[FieldAmount] = amount
	f[FieldDate] = date
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
