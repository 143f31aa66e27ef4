// File: internal/repository/chat/chat_repository.go
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iyunix/go-docchat/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrChatNotFound = errors.New("chat not found")

// ErrInvalidTitle is returned when a rename carries markup that could run in a browser.
var ErrInvalidTitle = errors.New("invalid characters detected in title")

const maxTitleLength = 200

type gormChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &gormChatRepository{db: db}
}

// Create inserts a chat. The caller supplies the ID.
func (r *gormChatRepository) Create(ctx context.Context, chat *domain.Chat) (*domain.Chat, error) {
	if err := r.validateChatInput(chat); err != nil {
		log.Printf("[ChatRepository] Validation failed: %v", err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(chat).Error; err != nil {
		// Secure logging - titles are user content and never logged
		log.Printf("[ChatRepository] Database error during chat creation for user %s: %v", chat.UserID, err)
		return nil, errors.New("database error creating chat")
	}

	log.Printf("[ChatRepository] Chat created with ID: %s for user: %s", chat.ID, chat.UserID)
	return chat, nil
}

func (r *gormChatRepository) FindByID(ctx context.Context, chatID string) (*domain.Chat, error) {
	if chatID == "" {
		return nil, errors.New("invalid chat ID")
	}

	var chat domain.Chat
	err := r.db.WithContext(ctx).Where("id = ?", chatID).First(&chat).Error
	return r.handleFindError(err, &chat, "FindByID")
}

// FindByIDAndUserID returns ErrChatNotFound both for a missing chat and for a
// chat owned by someone else, so ownership is never disclosed.
func (r *gormChatRepository) FindByIDAndUserID(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	if chatID == "" || userID == "" {
		return nil, errors.New("invalid chat ID or user ID")
	}

	var chat domain.Chat
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", chatID, userID).
		First(&chat).Error
	return r.handleFindError(err, &chat, "FindByIDAndUserID")
}

func (r *gormChatRepository) FindByIDWithMessages(ctx context.Context, chatID string) (*domain.Chat, error) {
	if chatID == "" {
		return nil, errors.New("invalid chat ID")
	}

	var chat domain.Chat
	err := r.db.WithContext(ctx).
		Preload("Messages", orderMessages).
		Where("id = ?", chatID).
		First(&chat).Error
	return r.handleFindError(err, &chat, "FindByIDWithMessages")
}

// FindByUserID lists a user's chats, most recently updated first.
func (r *gormChatRepository) FindByUserID(ctx context.Context, userID string, withMessages bool) ([]domain.Chat, error) {
	if userID == "" {
		return nil, errors.New("invalid user ID")
	}

	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if withMessages {
		query = query.Preload("Messages", orderMessages)
	}

	var chats []domain.Chat
	if err := query.Order("updated_at DESC, id DESC").Find(&chats).Error; err != nil {
		log.Printf("[ChatRepository] Database error finding chats for user %s: %v", userID, err)
		return nil, errors.New("database error fetching chats")
	}
	return chats, nil
}

func (r *gormChatRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, errors.New("invalid user ID")
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Chat{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		log.Printf("[ChatRepository] Database error counting chats for user %s: %v", userID, err)
		return 0, errors.New("database error counting user chats")
	}
	return count, nil
}

func (r *gormChatRepository) UpdateMetadata(ctx context.Context, chatID, userID string, metadata datatypes.JSONMap) error {
	if chatID == "" || userID == "" {
		return errors.New("invalid chat ID or user ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ? AND user_id = ?", chatID, userID).
		Update("metadata", metadata)
	if result.Error != nil {
		log.Printf("[ChatRepository] Database error updating metadata for chat %s: %v", chatID, result.Error)
		return errors.New("database error updating chat metadata")
	}
	if result.RowsAffected == 0 {
		return ErrChatNotFound
	}
	return nil
}

func (r *gormChatRepository) UpdateTitle(ctx context.Context, chatID, userID, title string) error {
	if chatID == "" || userID == "" {
		return errors.New("invalid chat ID or user ID")
	}
	if err := r.validateChatTitle(title); err != nil {
		return fmt.Errorf("title validation: %w", err)
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ? AND user_id = ?", chatID, userID).
		Update("title", title)
	if result.Error != nil {
		log.Printf("[ChatRepository] Database error updating title for chat %s: %v", chatID, result.Error)
		return errors.New("database error updating chat title")
	}
	if result.RowsAffected == 0 {
		return ErrChatNotFound
	}
	return nil
}

// TouchUpdatedAt bumps the chat's updated_at so it sorts first in listings.
func (r *gormChatRepository) TouchUpdatedAt(ctx context.Context, chatID string) error {
	if chatID == "" {
		return errors.New("invalid chat ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ?", chatID).
		Update("updated_at", time.Now())
	if result.Error != nil {
		log.Printf("[ChatRepository] Database error updating timestamp for chat %s: %v", chatID, result.Error)
		return errors.New("database error updating chat timestamp")
	}
	if result.RowsAffected == 0 {
		return ErrChatNotFound
	}
	return nil
}

// Delete removes a chat and its messages in one transaction. Messages are
// deleted explicitly so the cascade holds on backends without FK enforcement.
func (r *gormChatRepository) Delete(ctx context.Context, chatID, userID string) error {
	if chatID == "" || userID == "" {
		return errors.New("invalid chat ID or user ID")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Chat{}).Where("id = ? AND user_id = ?", chatID, userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrChatNotFound
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", chatID, userID).Delete(&domain.Chat{}).Error
	})
	if errors.Is(err, ErrChatNotFound) {
		return ErrChatNotFound
	}
	if err != nil {
		log.Printf("[ChatRepository] Database error deleting chat %s for user %s: %v", chatID, userID, err)
		return errors.New("database error deleting chat")
	}

	log.Printf("[ChatRepository] Chat deleted: ID %s for user %s", chatID, userID)
	return nil
}

// DeleteAllByUserID removes every chat the user owns, with their messages.
func (r *gormChatRepository) DeleteAllByUserID(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, errors.New("invalid user ID")
	}

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&domain.Chat{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("chat_id IN (?)", owned).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		result := tx.Where("user_id = ?", userID).Delete(&domain.Chat{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		log.Printf("[ChatRepository] Database error in bulk delete for user %s: %v", userID, err)
		return 0, errors.New("database error in bulk chat deletion")
	}

	log.Printf("[ChatRepository] Bulk deleted %d chats for user %s", deleted, userID)
	return deleted, nil
}

// ===== VALIDATION HELPERS =====

func (r *gormChatRepository) validateChatInput(chat *domain.Chat) error {
	if chat == nil {
		return errors.New("chat cannot be nil")
	}
	if chat.ID == "" {
		return errors.New("chat ID is required")
	}
	if chat.UserID == "" {
		return errors.New("user ID is required")
	}
	// Titles derived from a question are stored as typed and escaped on render.
	if len([]rune(chat.Title)) > maxTitleLength {
		return fmt.Errorf("title must be %d characters or less", maxTitleLength)
	}
	return nil
}

func (r *gormChatRepository) validateChatTitle(title string) error {
	if len([]rune(title)) > maxTitleLength {
		return fmt.Errorf("title must be %d characters or less", maxTitleLength)
	}
	lower := strings.ToLower(title)
	if strings.Contains(lower, "<script") || strings.Contains(lower, "javascript:") {
		return ErrInvalidTitle
	}
	return nil
}

// ===== ERROR HANDLING HELPERS =====

func (r *gormChatRepository) handleFindError(err error, chat *domain.Chat, operation string) (*domain.Chat, error) {
	if err == nil {
		return chat, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChatNotFound
	}

	log.Printf("[ChatRepository] %s database error: %v", operation, err)
	return nil, errors.New("database query failed")
}

func orderMessages(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}
