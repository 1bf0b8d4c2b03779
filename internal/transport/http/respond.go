package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "kyc-gateway/pkg/domain-errors"
)

// errorResponse is the JSON error envelope. Message is user-facing Spanish;
// the code is stable for programmatic handling.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError translates a domain error into the JSON envelope. Unknown errors
// collapse to a generic 500 so internals never leak to the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.HTTPStatus(code)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "error", err, "code", code)
	}
	writeJSON(w, status, errorResponse{
		Error:   string(code),
		Message: dErrors.MessageOf(err),
	})
}
