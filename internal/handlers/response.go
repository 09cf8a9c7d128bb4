package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON sets the status and encodes body.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	writeJSON(w, logger, status, ErrorResponse{Error: message})
}

// splitPath returns the path segments after prefix, e.g.
// "/v1/worlds/abc/actions" with prefix "/v1/worlds" gives ["abc", "actions"].
func splitPath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

// parseWorldID parses a path segment as a world ID.
func parseWorldID(segment string) (uuid.UUID, bool) {
	id, err := uuid.Parse(segment)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
