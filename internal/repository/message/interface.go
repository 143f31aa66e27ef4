package message

import (
	"context"

	"github.com/iyunix/go-docchat/internal/domain"
)

// MessageRepository handles message data operations.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) (*domain.Message, error)
	FindByChatID(ctx context.Context, chatID string) ([]domain.Message, error)
	FindLastByChatID(ctx context.Context, chatID string, limit int) ([]domain.Message, error)
	CountByChatID(ctx context.Context, chatID string) (int64, error)
}
