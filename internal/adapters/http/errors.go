// Package http provides the HTTP transport layer for pp-server: the calc
// endpoint, help pages, debug endpoints, middleware, and the structured
// error envelope.
package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeInternalError    ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError    ErrorCode = "DATABASE_ERROR"
	ErrCodeCalculationError ErrorCode = "CALCULATION_ERROR"
)

// APIError represents a structured API error response.
type APIError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	StatusCode int                    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *APIError) WithDetails(key string, value interface{}) *APIError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *APIError) WithRequestID(requestID string) *APIError {
	e.RequestID = requestID
	return e
}

// NewAPIError creates a new API error with the given code, message, and status code.
func NewAPIError(code ErrorCode, message string, statusCode int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

var (
	ErrInvalidInput     = NewAPIError(ErrCodeInvalidInput, "Invalid input provided", http.StatusBadRequest)
	ErrValidationFailed = NewAPIError(ErrCodeValidationFailed, "Validation failed", http.StatusBadRequest)
	ErrInternalError    = NewAPIError(ErrCodeInternalError, "An internal error occurred", http.StatusInternalServerError)
	ErrDatabaseError    = NewAPIError(ErrCodeDatabaseError, "Database operation failed", http.StatusInternalServerError)
	ErrCalculationError = NewAPIError(ErrCodeCalculationError, "Calculation failed", http.StatusInternalServerError)
)

// ErrorHandler handles errors and writes structured error responses.
type ErrorHandler struct {
	logger      zerolog.Logger
	development bool
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger zerolog.Logger, development bool) *ErrorHandler {
	return &ErrorHandler{
		logger:      logger.With().Str("component", "http").Logger(),
		development: development,
	}
}

// HandleError writes a structured error response to the HTTP response writer.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *APIError

	if apiError, ok := err.(*APIError); ok {
		apiErr = apiError
	} else {
		apiErr = ErrInternalError
		apiErr.Message = err.Error()

		h.logger.Error().
			Err(err).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Str("ip", r.RemoteAddr).
			Msg("unexpected error")
	}

	if requestID := middleware.GetReqID(r.Context()); requestID != "" {
		apiErr = apiErr.WithRequestID(requestID)
	}

	if h.development && apiErr.StatusCode >= 500 {
		stack := string(debug.Stack())
		apiErr = apiErr.WithDetails("stack_trace", strings.Split(stack, "\n"))
	}

	h.writeErrorResponse(w, apiErr)
}

// HandleAPIError writes an APIError directly to the response.
func (h *ErrorHandler) HandleAPIError(w http.ResponseWriter, r *http.Request, apiErr *APIError) {
	if requestID := middleware.GetReqID(r.Context()); requestID != "" {
		apiErr = apiErr.WithRequestID(requestID)
	}

	h.logger.Warn().
		Str("code", string(apiErr.Code)).
		Str("message", apiErr.Message).
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Int("status", apiErr.StatusCode).
		Interface("details", apiErr.Details).
		Msg("api error")

	if h.development && apiErr.StatusCode >= 500 {
		stack := string(debug.Stack())
		apiErr = apiErr.WithDetails("stack_trace", strings.Split(stack, "\n"))
	}

	h.writeErrorResponse(w, apiErr)
}

func (h *ErrorHandler) writeErrorResponse(w http.ResponseWriter, apiErr *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)

	if err := json.NewEncoder(w).Encode(apiErr); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode error response")
	}
}

// RecoveryMiddleware recovers from panics and returns structured error responses.
func RecoveryMiddleware(errorHandler *ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					var err error
					switch v := rec.(type) {
					case error:
						err = v
					case string:
						err = fmt.Errorf("%s", v)
					default:
						err = fmt.Errorf("%v", v)
					}

					errorHandler.logger.Error().
						Err(err).
						Str("path", r.URL.Path).
						Str("method", r.Method).
						Bytes("stack", debug.Stack()).
						Msg("panic recovered")

					errorHandler.HandleError(w, r, err)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDMiddleware adds a request ID to the request context and response headers.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}
