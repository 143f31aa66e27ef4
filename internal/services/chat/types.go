// File: internal/services/chat/types.go
package chat

import (
	"context"

	"github.com/iyunix/go-docchat/internal/domain"
)

// Logger defines the logging interface used across chat services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// HistoryStore is the persistence the orchestrator needs.
type HistoryStore interface {
	FindChat(ctx context.Context, chatID string) (*domain.Chat, error)
	CreateChat(ctx context.Context, chat *domain.Chat) (*domain.Chat, error)
	Append(ctx context.Context, msg *domain.Message) error
	ReadLastK(ctx context.Context, chatID string, k int) ([]domain.Message, error)
}

// InputMessage is one entry of the caller-supplied conversation.
type InputMessage struct {
	Role    domain.Role `json:"role" validate:"required,oneof=user assistant"`
	Content string      `json:"content" validate:"required,maxbytes"`
}

// TurnRequest starts one turn. Only the last message is read; it must be a
// non-blank user message. ChatID may be empty to start a new chat.
type TurnRequest struct {
	ChatID   string         `json:"chatId" validate:"omitempty,max=64"`
	UserID   string         `json:"-"`
	Messages []InputMessage `json:"messages" validate:"required,min=1,max=100,dive"`
}
