package middleware

import (
	"encoding/json"
	"net/http"
)

// Error types written in JSON error bodies.
const (
	ErrorTypeQuotaExceeded      = "quota_exceeded"
	ErrorTypeClientUnidentified = "client_unidentified"
	ErrorTypeInternal           = "server_error"
)

// errorResponse is the JSON body of every error this package writes.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// Ignore encoding errors; the status is already committed.
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorDetail{Message: message, Type: errType},
	})
}
