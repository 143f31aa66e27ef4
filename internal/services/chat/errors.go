// File: internal/services/chat/errors.go
package chat

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	ErrTypeInvalidInput ErrorType = "INVALID_INPUT"
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeConflict     ErrorType = "CONFLICT"
	ErrTypeUpstream     ErrorType = "UPSTREAM_FAILURE"
	ErrTypePersistence  ErrorType = "PERSISTENCE_FAILURE"
	ErrTypeConfig       ErrorType = "CONFIG"
)

type ChatError struct {
	Type      ErrorType
	Operation string
	Message   string
	ChatID    string
	UserID    string
	Cause     error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Chat %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("Chat %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *ChatError) Unwrap() error {
	return e.Cause
}

// KindOf returns the ErrorType carried by err, or "" for foreign errors.
func KindOf(err error) ErrorType {
	var chatErr *ChatError
	if errors.As(err, &chatErr) {
		return chatErr.Type
	}
	return ""
}

func NewInvalidInputError(operation, msg string) *ChatError {
	return &ChatError{Type: ErrTypeInvalidInput, Operation: operation, Message: msg}
}

func NewNotFoundError(chatID, userID string) *ChatError {
	return &ChatError{
		Type:      ErrTypeNotFound,
		Operation: "authorization",
		Message:   "chat not found",
		ChatID:    chatID,
		UserID:    userID,
	}
}

func NewConflictError(chatID string) *ChatError {
	return &ChatError{
		Type:      ErrTypeConflict,
		Operation: "turn",
		Message:   "a turn is already in progress for this chat",
		ChatID:    chatID,
	}
}

func NewUpstreamError(operation, msg string, cause error) *ChatError {
	return &ChatError{Type: ErrTypeUpstream, Operation: operation, Message: msg, Cause: cause}
}

func NewPersistenceError(operation, chatID string, cause error) *ChatError {
	return &ChatError{
		Type:      ErrTypePersistence,
		Operation: operation,
		Message:   "failed to persist message",
		ChatID:    chatID,
		Cause:     cause,
	}
}

func NewConfigError(msg string) *ChatError {
	return &ChatError{Type: ErrTypeConfig, Operation: "config", Message: msg}
}
