// File: internal/handlers/stream_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/iyunix/go-docchat/internal/services/chat"
)

// EndSentinel closes every turn stream. The record separators keep it
// outside anything a model would produce.
const EndSentinel = "\u001e__END__END__\u001e"

// TurnRunner starts a chat turn.
type TurnRunner interface {
	RunTurn(ctx context.Context, req chat.TurnRequest) (*chat.Stream, error)
}

type StreamHandler struct {
	turns  TurnRunner
	logger Logger
}

func NewStreamHandler(turns TurnRunner, logger Logger) *StreamHandler {
	return &StreamHandler{turns: turns, logger: logger}
}

type startPayload struct {
	ChatID    string   `json:"chatId"`
	MessageID string   `json:"messageId"`
	Sources   []string `json:"sources"`
}

type errorPayload struct {
	Kind string `json:"kind"`
}

// StreamChat runs one turn and relays its events as server-sent events.
// Errors raised before the turn starts are answered as plain JSON.
func (h *StreamHandler) StreamChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req chat.TurnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&req); err != nil {
		writeError(w, "Invalid request body", string(chat.ErrTypeInvalidInput), http.StatusBadRequest)
		return
	}
	if err := requestValidator.Struct(req); err != nil {
		writeError(w, describeValidation(err), string(chat.ErrTypeInvalidInput), http.StatusBadRequest)
		return
	}
	req.UserID = userID

	stream, err := h.turns.RunTurn(r.Context(), req)
	if err != nil {
		h.logger.Warn("turn rejected", "user_id", userID, "chat_id", req.ChatID, "kind", chat.KindOf(err))
		writeServiceError(w, err)
		return
	}
	defer stream.Close()

	setSSEHeaders(w)
	w.Header().Set("X-Chat-ID", stream.ChatID())
	w.WriteHeader(http.StatusOK)

	sse := newSSEWriter(w)
	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("client disconnected", "chat_id", stream.ChatID(), "turn_id", stream.TurnID())
			return
		case ev, open := <-stream.Events():
			if !open {
				return
			}
			if err := sse.writeEvent(ev); err != nil {
				h.logger.Warn("stream write failed", "chat_id", stream.ChatID(), "error", err)
				return
			}
		}
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// sseWriter encodes turn events in the wire format the chat frontend reads.
type sseWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *sseWriter) writeEvent(ev chat.Event) error {
	switch ev.Kind {
	case chat.EventStart:
		sources := ev.Sources
		if sources == nil {
			sources = []string{}
		}
		return s.write("start", startPayload{ChatID: ev.ChatID, MessageID: ev.TurnID, Sources: sources})
	case chat.EventDelta:
		return s.write("", ev.Text)
	case chat.EventError:
		if err := s.write("", ev.Text); err != nil {
			return err
		}
		return s.write("error", errorPayload{Kind: string(ev.ErrorKind)})
	case chat.EventEnd:
		return s.write("", EndSentinel)
	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}

func (s *sseWriter) write(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if event != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flush event: %w", err)
	}
	return nil
}
