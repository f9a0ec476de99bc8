// Package response provides standardized HTTP response structures and
// helpers for the reconciliation API. All endpoints return a consistent
// envelope with a data field for success and an error field for failures.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/reconify/pkg/errors"
)

// Response is the standardized API response envelope.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error carries an API error code and message.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Success creates a successful response with data.
func Success(data any) Response {
	return Response{Data: data}
}

// Fail creates an error response.
func Fail(code, message, details string) Response {
	return Response{Error: &Error{Code: code, Message: message, Details: details}}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// OK writes a successful response with 200 status.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Success(data))
}

// Created writes a successful response with 201 status.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Success(data))
}

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusBadRequest, Fail("BAD_REQUEST", message, details))
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, message string) {
	JSON(w, http.StatusNotFound, Fail("NOT_FOUND", message, ""))
}

// Conflict writes a 409 error response.
func Conflict(w http.ResponseWriter, message string) {
	JSON(w, http.StatusConflict, Fail("PRECONDITION_FAILED", message, ""))
}

// MethodNotAllowed writes a 405 error response.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	JSON(w, http.StatusMethodNotAllowed, Fail(
		"METHOD_NOT_ALLOWED",
		"Method not allowed",
		"Method "+method+" is not supported for this endpoint",
	))
}

// InternalError writes a 500 error response without leaking the cause.
func InternalError(w http.ResponseWriter, _ error) {
	JSON(w, http.StatusInternalServerError, Fail(
		"INTERNAL_ERROR",
		"Internal server error",
		"An unexpected error occurred",
	))
}

// ServiceUnavailable writes a 503 error response.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	JSON(w, http.StatusServiceUnavailable, Fail("SERVICE_UNAVAILABLE", "Service unavailable", message))
}

// FromError maps domain errors to their HTTP responses. Validation and
// parse failures are the caller's to fix; precondition violations are
// state conflicts; persistence failures are retryable.
func FromError(w http.ResponseWriter, err error) {
	switch {
	case errors.IsNotFound(err):
		NotFound(w, err.Error())
	case errors.IsPreconditionError(err):
		Conflict(w, err.Error())
	case errors.IsValidationError(err), errors.IsParseError(err):
		BadRequest(w, err.Error(), "")
	case errors.IsPersistenceError(err):
		ServiceUnavailable(w, err.Error())
	default:
		InternalError(w, err)
	}
}
