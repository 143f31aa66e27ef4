// File: internal/domain/chat.go
package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Metadata keys stored on a chat.
const (
	MetaSharePath = "sharePath"

	chatPathPrefix  = "/chat/"
	sharePathPrefix = "/share/"
)

// Chat represents a single conversation thread owned by one user.
type Chat struct {
	ID        string            `json:"id" gorm:"primaryKey;size:64"`
	UserID    string            `json:"user_id" gorm:"not null;index;size:128"`
	Title     string            `json:"title"`
	Metadata  datatypes.JSONMap `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	Messages []Message `json:"messages,omitempty" gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
}

// ChatPath is the default share path for a freshly created chat.
func ChatPath(chatID string) string {
	return chatPathPrefix + chatID
}

// SharePath is the public share path for a chat.
func SharePath(chatID string) string {
	return sharePathPrefix + chatID
}

// IsShared reports whether the chat has been published through Share.
func (c *Chat) IsShared() bool {
	if c.Metadata == nil {
		return false
	}
	path, _ := c.Metadata[MetaSharePath].(string)
	return strings.HasPrefix(path, sharePathPrefix)
}
