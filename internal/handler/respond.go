package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"clevermock-web/internal/apiclient"
	"clevermock-web/internal/observability"
)

const msgUnexpected = "An unexpected error occurred. Please try again."

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeAPIError relays a backend failure with the backend's status. Network
// failures, which carry no status, become 502.
func writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		observability.FromContext(r.Context()).Error("backend call failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, msgUnexpected)
		return
	}

	status := apiErr.StatusCode
	if status == 0 {
		status = http.StatusBadGateway
		observability.FromContext(r.Context()).Warn("backend unreachable",
			slog.String("error", apiErr.Error()))
	}
	writeError(w, status, apiErr.Message)
}
