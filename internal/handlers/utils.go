package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coaltrack/apiserver/types"
)

const msgEncodeFailed = "Failed to encode response"

type contextKey string

const contextUserKey contextKey = "user"

func withUser(ctx context.Context, user types.SafeUser) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

// UserFromContext returns the user attached by RequireSession.
func UserFromContext(ctx context.Context) (types.SafeUser, bool) {
	user, ok := ctx.Value(contextUserKey).(types.SafeUser)
	return user, ok
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MessageResponse is returned by endpoints that only acknowledge an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a 500 with a fixed body when value cannot be encoded.
func writeJSON(w http.ResponseWriter, status int, value any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(value); err != nil {
		slog.Error("failed to encode response", "status", status, "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"` + msgEncodeFailed + `"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// Index reports that the API is up.
func Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Coal shipment tracking API"})
}

// Healthz is the liveness probe. It does not touch the database.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
