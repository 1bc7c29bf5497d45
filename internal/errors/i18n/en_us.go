package i18n

// Error codes must match the codes defined in internal/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeUnknown                = "UNKNOWN"
	CodeNotFound               = "NOT_FOUND"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodePermissionDenied       = "PERMISSION_DENIED"
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeAlreadyResolved        = "ALREADY_RESOLVED"
	CodeUnauthenticated        = "UNAUTHENTICATED"
	CodeBadRequest             = "BAD_REQUEST"
)

var enUSCatalog = NewCatalog("en-US", map[Code]string{
	CodeUnknown:                "An unexpected error occurred",
	CodeNotFound:               "The requested record was not found",
	CodeInvalidTransition:      "Cannot move from {{.From}} to {{.To}}",
	CodePermissionDenied:       "You do not have permission to perform this action",
	CodeValidationFailed:       "The request did not pass validation: {{.Detail}}",
	CodeConcurrentModification: "The record changed while your request was in flight; refresh and retry",
	CodeAlreadyResolved:        "This approval request has already been resolved",
	CodeUnauthenticated:        "Sign-in is required for this action",
	CodeBadRequest:             "The request could not be understood",
})
