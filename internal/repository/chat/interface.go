package chat

import (
	"context"

	"github.com/iyunix/go-docchat/internal/domain"
	"gorm.io/datatypes"
)

// ChatRepository handles chat data operations.
type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) (*domain.Chat, error)
	FindByID(ctx context.Context, chatID string) (*domain.Chat, error)
	FindByIDAndUserID(ctx context.Context, chatID, userID string) (*domain.Chat, error)
	FindByIDWithMessages(ctx context.Context, chatID string) (*domain.Chat, error)
	FindByUserID(ctx context.Context, userID string, withMessages bool) ([]domain.Chat, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
	UpdateMetadata(ctx context.Context, chatID, userID string, metadata datatypes.JSONMap) error
	UpdateTitle(ctx context.Context, chatID, userID, title string) error
	TouchUpdatedAt(ctx context.Context, chatID string) error
	Delete(ctx context.Context, chatID, userID string) error
	DeleteAllByUserID(ctx context.Context, userID string) (int64, error)
}
