// File: internal/handlers/helpers.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iyunix/go-docchat/internal/middleware"
	"github.com/iyunix/go-docchat/internal/services/chat"
)

// Logger defines the logging interface used by the HTTP handlers
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

const kindUnauthorized = "UNAUTHORIZED"

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, message, kind string, status int) {
	writeJSON(w, status, errorResponse{Error: message, Kind: kind})
}

// writeServiceError maps a chat error kind onto an HTTP status. Server-side
// failures never leak their cause to the client.
func writeServiceError(w http.ResponseWriter, err error) {
	kind := chat.KindOf(err)
	status := statusForKind(kind)

	message := "Internal server error"
	var chatErr *chat.ChatError
	if status < http.StatusInternalServerError && errors.As(err, &chatErr) {
		message = chatErr.Message
	} else if kind == chat.ErrTypeUpstream {
		message = "Upstream service unavailable"
	}
	if kind == "" {
		kind = chat.ErrTypePersistence
	}
	writeError(w, message, string(kind), status)
}

func statusForKind(kind chat.ErrorType) int {
	switch kind {
	case chat.ErrTypeInvalidInput:
		return http.StatusBadRequest
	case chat.ErrTypeNotFound:
		return http.StatusNotFound
	case chat.ErrTypeConflict:
		return http.StatusConflict
	case chat.ErrTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// requireUser returns the authenticated user or answers 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, "Unauthorized", kindUnauthorized, http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}
