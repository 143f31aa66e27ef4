// File: internal/domain/message.go
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message represents a single message within a chat. Messages are append-only.
type Message struct {
	ID        uint              `json:"id" gorm:"primarykey"`
	ChatID    string            `json:"chat_id" gorm:"not null;index;size:64"`
	Role      Role              `json:"role" gorm:"not null;size:16"`
	Content   string            `json:"content" gorm:"not null"`
	Metadata  datatypes.JSONMap `json:"metadata"`
	CreatedAt time.Time         `json:"created_at" gorm:"index"`
	UpdatedAt time.Time         `json:"updated_at"`
}
