package server

import (
	"net/http"

	apperrors "github.com/sellerdesk/approvals/internal/errors"
	"github.com/sellerdesk/approvals/internal/platform/httpx"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError renders a typed error as JSON with a localized message. The
// Accept-Language header picks the catalog, falling back to en-US.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{
		Code:    string(apperrors.GetCode(err)),
		Message: apperrors.UserMessage(err, r.Header.Get("Accept-Language")),
	}
	_ = httpx.WriteJSON(w, apperrors.HTTPStatus(err), body)
}
