package errors

import (
	"errors"

	"github.com/sellerdesk/approvals/internal/errors/i18n"
)

// DefaultLocale is the default locale for user-facing error messages.
const DefaultLocale = "en-US"

// GetCode extracts the error code from any error.
// Returns CodeUnknown if the error is not a domain error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if the error has the specified code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// GetMetadata extracts metadata from an error if present.
// Returns nil if the error is not a domain error or has no metadata.
func GetMetadata(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata
	}
	return nil
}

// HTTPStatus maps any error to the HTTP status of its domain code.
// Non-domain errors map to 500.
func HTTPStatus(err error) int {
	return GetCode(err).HTTPStatus()
}

// UserMessage renders the localized user-facing message for an error.
// The locale is matched against supported catalogs, falling back to en-US.
func UserMessage(err error, locale string) string {
	if err == nil {
		return ""
	}
	if locale == "" {
		locale = DefaultLocale
	}
	catalog := i18n.GetCatalog(locale)

	var appErr *Error
	if errors.As(err, &appErr) {
		return catalog.Format(string(appErr.Code), appErr.Metadata)
	}
	return catalog.Format(string(CodeUnknown), nil)
}
