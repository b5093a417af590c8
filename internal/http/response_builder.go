// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for constructing JSON responses
// and the mapping from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"roadrich/internal/core"
	"roadrich/internal/nav"
	"roadrich/internal/report"
	"roadrich/internal/services"
	"roadrich/internal/storage"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
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
	b.payload = v
	return b
}

// Write sends the built response. A nil body with a 2xx status writes no
// content.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.payload)
	if err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(data)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// UnauthorizedError creates a 401 Unauthorized error response.
func UnauthorizedError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, "authentication required")
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// ServiceUnavailableError creates a 503 response asking the client to retry.
func ServiceUnavailableError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message).Header("Retry-After", "30")
}

// validationErrors are rejected input, reported back verbatim.
var validationErrors = []error{
	core.ErrInvalidDay, core.ErrInvalidMonth, core.ErrInvalidYear, core.ErrInvalidAmount,
	core.ErrInvalidColor, core.ErrEmptyName, core.ErrEmptyFirstName, core.ErrEmptyCategory,
	core.ErrInvalidCategoryType, core.ErrInvalidRecurrence, core.ErrInvalidEmail,
	core.ErrNegativeIncome, core.ErrNegativeBudget, core.ErrTooLong, core.ErrZeroDate, core.ErrInvalidDate,
	services.ErrWeakPassword,
}

// ErrorFor maps a service error onto a response. Unknown errors become a
// generic 500 so internals never leak to the client.
func ErrorFor(err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return ErrorResponse(http.StatusUnauthorized, err.Error())
	case errors.Is(err, storage.ErrEmailTaken):
		return ErrorResponse(http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return NotFoundError("not found")
	case errors.Is(err, nav.ErrInvalidTransition):
		return ErrorResponse(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidPeriod):
		return BadRequestError(err.Error())
	case errors.Is(err, report.ErrBackendUnavailable):
		return ServiceUnavailableError("report generation is temporarily unavailable")
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return UnprocessableEntityError(err.Error())
		}
	}
	return InternalServerError("internal error")
}
