package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorBody is the flat error shape every API failure uses.
type ErrorBody struct {
	Error string `json:"error"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().WarnContext(r.Context(), "encode response failed",
			"path", r.URL.Path,
			"status", status,
			"error", err.Error(),
		)
	}
}

func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	JSON(w, r, status, ErrorBody{Error: message})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
