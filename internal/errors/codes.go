// Package errors provides structured error handling for the approval engine.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeNotFound indicates an unknown entity or escalation id.
	CodeNotFound Code = "NOT_FOUND"
	// CodeInvalidTransition indicates no registered edge from the current status.
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	// CodePermissionDenied indicates the actor lacks the required permission.
	CodePermissionDenied Code = "PERMISSION_DENIED"
	// CodeValidationFailed indicates a transition guard rejected the payload.
	CodeValidationFailed Code = "VALIDATION_FAILED"
	// CodeConcurrentModification indicates a version mismatch on write.
	CodeConcurrentModification Code = "CONCURRENT_MODIFICATION"
	// CodeAlreadyResolved indicates an escalation was already confirmed or dismissed.
	CodeAlreadyResolved Code = "ALREADY_RESOLVED"

	// CodeUnauthenticated indicates a missing or invalid actor token.
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	// CodeBadRequest indicates a malformed request outside guard validation.
	CodeBadRequest Code = "BAD_REQUEST"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidTransition, CodeConcurrentModification, CodeAlreadyResolved:
		return http.StatusConflict
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeValidationFailed, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
