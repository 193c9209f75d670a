// Package errors defines the JSON error document every failing endpoint
// answers with and maps cluster service failures onto it.
package errors

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/narvanalabs/solr-monitor/internal/cluster"
	"github.com/narvanalabs/solr-monitor/internal/topology"
)

// Error codes.
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeConfigurationError  = "CONFIGURATION_ERROR"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeInternalError       = "INTERNAL_ERROR"
)

var statusByCode = map[string]int{
	CodeValidationError:     http.StatusBadRequest,
	CodeNotFound:            http.StatusNotFound,
	CodeConfigurationError:  http.StatusInternalServerError,
	CodeUpstreamUnavailable: http.StatusServiceUnavailable,
	CodeInternalError:       http.StatusInternalServerError,
}

// StatusFor returns the HTTP status a code is served with. Unknown codes are
// internal errors.
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// APIError is the body of every error response.
type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// New creates an APIError.
func New(code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

func NewValidationError(message string) *APIError { return New(CodeValidationError, message) }

func NewNotFoundError(message string) *APIError { return New(CodeNotFound, message) }

func NewConfigurationError(message string) *APIError { return New(CodeConfigurationError, message) }

func NewUpstreamUnavailableError(message string) *APIError {
	return New(CodeUpstreamUnavailable, message)
}

func NewInternalError(message string) *APIError { return New(CodeInternalError, message) }

func (e *APIError) clone() *APIError {
	c := *e
	if e.Details != nil {
		c.Details = make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	return &c
}

// WithDetail returns a copy of e carrying one more detail.
func (e *APIError) WithDetail(key string, value any) *APIError {
	c := e.clone()
	if c.Details == nil {
		c.Details = make(map[string]any, 1)
	}
	c.Details[key] = value
	return c
}

// WithRequestID returns a copy of e tagged with a request id.
func (e *APIError) WithRequestID(requestID string) *APIError {
	c := e.clone()
	c.RequestID = requestID
	return c
}

// HTTPStatusCode returns the status e is served with.
func (e *APIError) HTTPStatusCode() int {
	return StatusFor(e.Code)
}

// LogAttrs returns the slog attributes a failed request is logged with. The
// goroutine stack is only captured when withStack is set.
func (e *APIError) LogAttrs(withStack bool) []any {
	attrs := []any{
		"correlation_id", e.RequestID,
		"error_code", e.Code,
		"message", e.Message,
	}
	if withStack {
		attrs = append(attrs, "stack_trace", string(debug.Stack()))
	}
	return attrs
}

// WriteError serves e as application/json with its mapped status.
func WriteError(w http.ResponseWriter, e *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatusCode())
	_ = json.NewEncoder(w).Encode(e)
}

// ValidationError is one rejected query or path parameter.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects parameter problems found while parsing a request.
type ValidationErrors []ValidationError

// Add records a problem with field.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// Err returns nil when nothing was recorded. Otherwise it returns a single
// VALIDATION_ERROR whose message joins every problem and whose details list
// the fields.
func (v ValidationErrors) Err() *APIError {
	if len(v) == 0 {
		return nil
	}
	msgs := make([]string, len(v))
	for i, fe := range v {
		msgs[i] = fe.Message
	}
	return NewValidationError(strings.Join(msgs, "; ")).WithDetail("fields", v)
}

// FromService maps an error returned by the cluster service to the error
// document a client sees. The level says how loudly the failure is worth
// logging: lookups of unknown names and unreachable upstreams are the
// caller's or the cluster's problem and log at debug.
func FromService(err error) (*APIError, slog.Level) {
	var (
		notFound    *topology.NotFoundError
		configErr   *topology.ConfigurationError
		unavailable *cluster.UnavailableError
		candidates  *cluster.CandidatesError
	)

	switch {
	case errors.As(err, &notFound):
		return NewNotFoundError(notFound.Error()).
			WithDetail("kind", notFound.Kind).
			WithDetail("name", notFound.Name), slog.LevelDebug

	case errors.As(err, &configErr):
		return NewConfigurationError(configErr.Error()), slog.LevelError

	case errors.As(err, &unavailable):
		return NewUpstreamUnavailableError(unavailable.Error()).
			WithDetail("errors", unavailable.Errors), slog.LevelDebug

	case errors.As(err, &candidates):
		return NewInternalError(candidates.Error()).
			WithDetail("attempts", candidates.Attempts), slog.LevelWarn

	default:
		return NewInternalError("internal error"), slog.LevelError
	}
}
