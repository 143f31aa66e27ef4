// File: internal/services/chat_service.go
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/iyunix/go-docchat/internal/domain"
	"github.com/iyunix/go-docchat/internal/services/chat"
	"github.com/iyunix/go-docchat/internal/services/history"
	"github.com/iyunix/go-docchat/internal/services/ingest"
)

// TurnOrchestrator runs one question/answer turn.
type TurnOrchestrator interface {
	RunTurn(ctx context.Context, req chat.TurnRequest) (*chat.Stream, error)
}

// DocumentIngester indexes an uploaded document into a chat.
type DocumentIngester interface {
	Ingest(ctx context.Context, req ingest.UploadRequest) (*ingest.UploadResult, error)
}

// ChatService is the surface the HTTP layer talks to. Store errors are
// reported with chat error kinds so callers only deal with *chat.ChatError.
type ChatService struct {
	history      *history.Store
	orchestrator TurnOrchestrator
	ingester     DocumentIngester
	logger       Logger
}

func NewChatService(store *history.Store, orchestrator TurnOrchestrator, ingester DocumentIngester, logger Logger) (*ChatService, error) {
	if store == nil || orchestrator == nil || ingester == nil {
		return nil, errors.New("history store, orchestrator and ingester are required")
	}
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &ChatService{
		history:      store,
		orchestrator: orchestrator,
		ingester:     ingester,
		logger:       logger,
	}, nil
}

// Streaming functionality
func (s *ChatService) RunTurn(ctx context.Context, req chat.TurnRequest) (*chat.Stream, error) {
	return s.orchestrator.RunTurn(ctx, req)
}

func (s *ChatService) Ingest(ctx context.Context, req ingest.UploadRequest) (*ingest.UploadResult, error) {
	return s.ingester.Ingest(ctx, req)
}

// Basic chat operations
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	chats, err := s.history.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.translate("list_chats", "", userID, err)
	}
	return chats, nil
}

func (s *ChatService) GetChat(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	c, err := s.history.Get(ctx, chatID, userID)
	if err != nil {
		return nil, s.translate("get_chat", chatID, userID, err)
	}
	return c, nil
}

func (s *ChatService) DeleteChat(ctx context.Context, chatID, userID string) error {
	if err := s.history.Remove(ctx, chatID, userID); err != nil {
		return s.translate("delete_chat", chatID, userID, err)
	}
	s.logger.Info("chat deleted", "chat_id", chatID, "user_id", userID)
	return nil
}

// ClearChats removes every chat of the user. An account without chats is NOT_FOUND.
func (s *ChatService) ClearChats(ctx context.Context, userID string) (int64, error) {
	n, err := s.history.ClearAll(ctx, userID)
	if err != nil {
		return 0, s.translate("clear_chats", "", userID, err)
	}
	s.logger.Info("chats cleared", "user_id", userID, "count", n)
	return n, nil
}

func (s *ChatService) RenameChat(ctx context.Context, chatID, userID, title string) error {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return chat.NewInvalidInputError("rename_chat", "chat title cannot be empty")
	}
	if err := s.history.Rename(ctx, chatID, userID, title); err != nil {
		if errors.Is(err, history.ErrInvalidTitle) {
			return chat.NewInvalidInputError("rename_chat", "chat title contains invalid characters")
		}
		return s.translate("rename_chat", chatID, userID, err)
	}
	return nil
}

func (s *ChatService) ShareChat(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	c, err := s.history.Share(ctx, chatID, userID)
	if err != nil {
		return nil, s.translate("share_chat", chatID, userID, err)
	}
	return c, nil
}

func (s *ChatService) UnshareChat(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	c, err := s.history.Unshare(ctx, chatID, userID)
	if err != nil {
		return nil, s.translate("unshare_chat", chatID, userID, err)
	}
	return c, nil
}

func (s *ChatService) GetSharedChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	c, err := s.history.GetShared(ctx, chatID)
	if err != nil {
		return nil, s.translate("get_shared_chat", chatID, "", err)
	}
	return c, nil
}

func (s *ChatService) translate(operation, chatID, userID string, err error) error {
	if chat.KindOf(err) != "" {
		return err
	}
	if history.IsNotFound(err) {
		return chat.NewNotFoundError(chatID, userID)
	}
	s.logger.Error("chat store failure", "operation", operation, "chat_id", chatID, "error", err)
	return chat.NewPersistenceError(operation, chatID, err)
}
