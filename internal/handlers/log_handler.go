package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

const maxClientLogBytes = 16 << 10

// FrontendLogPayload defines the structure for logs coming from the browser.
type FrontendLogPayload struct {
	Level   string `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message string `json:"message" validate:"required,max=2000"`
	ChatID  string `json:"chatId,omitempty" validate:"omitempty,max=64"`
	Context any    `json:"context,omitempty"`
}

// LogFrontendEvent handles incoming log requests from the chat frontend.
func LogFrontendEvent(w http.ResponseWriter, r *http.Request) {
	var payload FrontendLogPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClientLogBytes)).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := requestValidator.Struct(payload); err != nil {
		http.Error(w, describeValidation(err), http.StatusBadRequest)
		return
	}

	slog.Log(r.Context(), clientLevel(payload.Level), "CLIENT_LOG",
		slog.String("message", payload.Message),
		slog.String("chat_id", payload.ChatID),
		slog.Any("context", payload.Context),
	)

	w.WriteHeader(http.StatusNoContent)
}

func clientLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
