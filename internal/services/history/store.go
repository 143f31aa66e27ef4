// File: internal/services/history/store.go
package history

import (
	"context"
	"errors"
	"maps"

	"github.com/iyunix/go-docchat/internal/domain"
	chatrepo "github.com/iyunix/go-docchat/internal/repository/chat"
	"github.com/iyunix/go-docchat/internal/repository/message"
)

// ErrChatNotFound is returned for missing chats and for chats the caller does not own.
var ErrChatNotFound = chatrepo.ErrChatNotFound

// ErrInvalidTitle is returned by Rename for titles carrying script markup.
var ErrInvalidTitle = chatrepo.ErrInvalidTitle

// Logger defines the logging interface used by the history store
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Store is the durable, append-only record of chats and their messages.
type Store struct {
	chats    chatrepo.ChatRepository
	messages message.MessageRepository
	logger   Logger
}

func NewStore(chats chatrepo.ChatRepository, messages message.MessageRepository, logger Logger) *Store {
	return &Store{chats: chats, messages: messages, logger: logger}
}

// FindChat returns the chat regardless of owner. Callers check ownership.
func (s *Store) FindChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	return s.chats.FindByID(ctx, chatID)
}

func (s *Store) CreateChat(ctx context.Context, chat *domain.Chat) (*domain.Chat, error) {
	return s.chats.Create(ctx, chat)
}

// Append persists msg and bumps the chat's updated_at. A failed bump is
// logged; the message itself is already durable.
func (s *Store) Append(ctx context.Context, msg *domain.Message) error {
	if _, err := s.messages.Create(ctx, msg); err != nil {
		return err
	}
	if err := s.chats.TouchUpdatedAt(ctx, msg.ChatID); err != nil {
		s.logger.Warn("failed to bump chat timestamp", "chat_id", msg.ChatID, "error", err)
	}
	return nil
}

// ReadLastK returns at most k of the chat's newest messages, oldest first.
func (s *Store) ReadLastK(ctx context.Context, chatID string, k int) ([]domain.Message, error) {
	return s.messages.FindLastByChatID(ctx, chatID, k)
}

// ListByUser returns the user's chats with their messages, most recently updated first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]domain.Chat, error) {
	return s.chats.FindByUserID(ctx, userID, true)
}

// Get returns a chat owned by userID together with its messages.
func (s *Store) Get(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	chat, err := s.chats.FindByIDWithMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UserID != userID {
		return nil, ErrChatNotFound
	}
	return chat, nil
}

// Remove deletes the chat and all of its messages.
func (s *Store) Remove(ctx context.Context, chatID, userID string) error {
	return s.chats.Delete(ctx, chatID, userID)
}

// ClearAll deletes every chat the user owns. It reports ErrChatNotFound when
// there was nothing to delete.
func (s *Store) ClearAll(ctx context.Context, userID string) (int64, error) {
	count, err := s.chats.CountByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrChatNotFound
	}
	return s.chats.DeleteAllByUserID(ctx, userID)
}

// Rename replaces the chat title.
func (s *Store) Rename(ctx context.Context, chatID, userID, title string) error {
	return s.chats.UpdateTitle(ctx, chatID, userID, title)
}

// Share publishes the chat under its share path and returns the updated chat.
func (s *Store) Share(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	return s.setSharePath(ctx, chatID, userID, domain.SharePath(chatID))
}

// Unshare restores the private chat path.
func (s *Store) Unshare(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	return s.setSharePath(ctx, chatID, userID, domain.ChatPath(chatID))
}

// GetShared returns a published chat with its messages for anonymous viewing.
func (s *Store) GetShared(ctx context.Context, chatID string) (*domain.Chat, error) {
	chat, err := s.chats.FindByIDWithMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsShared() {
		return nil, ErrChatNotFound
	}
	return chat, nil
}

func (s *Store) setSharePath(ctx context.Context, chatID, userID, path string) (*domain.Chat, error) {
	chat, err := s.chats.FindByIDAndUserID(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	metadata := maps.Clone(chat.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata[domain.MetaSharePath] = path

	if err := s.chats.UpdateMetadata(ctx, chatID, userID, metadata); err != nil {
		return nil, err
	}
	chat.Metadata = metadata
	return chat, nil
}

// IsNotFound reports whether err means the chat does not exist for the caller.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrChatNotFound)
}
