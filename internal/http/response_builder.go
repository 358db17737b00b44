// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for JSON responses. It gives
// handlers a fluent API for status, headers and body, and maps domain errors
// onto status codes in one place.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"smartfinance/internal/core"
)

// Error codes carried in every error body.
const (
	CodeValidation         = "validation_error"
	CodeNotFound           = "not_found"
	CodeFeatureUnavailable = "feature_unavailable"
	CodeBadRequest         = "bad_request"
	CodeRateLimited        = "rate_limited"
	CodeInternal           = "internal_error"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body sends no
// content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write encodes the body and sends the response. An encoding failure turns
// into a 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.body == nil || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		payload, _ = json.Marshal(ErrorBody{Error: "failed to encode response", Code: CodeInternal})
		b.statusCode = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n"))
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: message, Code: code})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, CodeBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, CodeNotFound, message)
}

// ForbiddenError creates a 403 response for features outside the plan.
func ForbiddenError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusForbidden, CodeFeatureUnavailable, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, CodeInternal, message)
}

// TooManyRequestsError creates a 429 response with a Retry-After hint.
func TooManyRequestsError(retryAfterSeconds string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, please try again later").
		Header("Retry-After", retryAfterSeconds)
}

// ErrorFor maps a domain error onto a response: validation errors are 400,
// stale references 404 and plan-gated features 403. Anything else is a 500
// with a generic message.
func ErrorFor(err error) *JSONResponseBuilder {
	var verr *core.ValidationError
	var nerr *core.NotFoundError
	switch {
	case errors.As(err, &verr):
		return NewJSONResponse().
			Status(http.StatusBadRequest).
			Body(ErrorBody{Error: err.Error(), Code: CodeValidation, Field: verr.Field})
	case errors.Is(err, core.ErrValidation):
		return ErrorResponse(http.StatusBadRequest, CodeValidation, err.Error())
	case errors.As(err, &nerr), errors.Is(err, core.ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, core.ErrFeatureUnavailable):
		return ForbiddenError(err.Error())
	default:
		return InternalServerError("internal server error")
	}
}
