package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "wastetrack/pkg/domain-errors"
)

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error code to its transport status. Anything
// untyped is an internal failure; its message never leaks to the caller.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var de *dErrors.Error
	if errors.As(err, &de) {
		message = de.Message
		switch de.Code {
		case dErrors.CodeBadRequest:
			status = http.StatusBadRequest
		case dErrors.CodeNotFound:
			status = http.StatusNotFound
		case dErrors.CodeConflict:
			status = http.StatusConflict
		case dErrors.CodeForbidden:
			status = http.StatusForbidden
		case dErrors.CodeTimeout:
			status = http.StatusGatewayTimeout
		case dErrors.CodeUnavailable:
			status = http.StatusServiceUnavailable
		default:
			message = "internal server error"
		}
	}

	writeJSON(w, status, errorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}
