// File: internal/handlers/chat_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-docchat/internal/domain"
	"github.com/iyunix/go-docchat/internal/services/chat"
)

// ChatManager is the chat management surface of the chat service.
type ChatManager interface {
	ListChats(ctx context.Context, userID string) ([]domain.Chat, error)
	GetChat(ctx context.Context, chatID, userID string) (*domain.Chat, error)
	DeleteChat(ctx context.Context, chatID, userID string) error
	ClearChats(ctx context.Context, userID string) (int64, error)
	RenameChat(ctx context.Context, chatID, userID, title string) error
	ShareChat(ctx context.Context, chatID, userID string) (*domain.Chat, error)
	UnshareChat(ctx context.Context, chatID, userID string) (*domain.Chat, error)
	GetSharedChat(ctx context.Context, chatID string) (*domain.Chat, error)
}

type ChatHandler struct {
	chats  ChatManager
	logger Logger
}

func NewChatHandler(chats ChatManager, logger Logger) *ChatHandler {
	return &ChatHandler{chats: chats, logger: logger}
}

// GetUserChats handles the request to retrieve all chat histories for a user.
func (h *ChatHandler) GetUserChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	chats, err := h.chats.ListChats(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if chats == nil {
		chats = []domain.Chat{}
	}
	writeJSON(w, http.StatusOK, chats)
}

// GetChat returns one chat with its messages.
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	c, err := h.chats.GetChat(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.chats.DeleteChat(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearChats deletes every chat of the caller.
func (h *ChatHandler) ClearChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	deleted, err := h.chats.ClearChats(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

type renameRequest struct {
	Title string `json:"title" validate:"required,max=100"`
}

func (h *ChatHandler) RenameChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req renameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&req); err != nil {
		writeError(w, "Invalid request body", string(chat.ErrTypeInvalidInput), http.StatusBadRequest)
		return
	}
	if err := requestValidator.Struct(req); err != nil {
		writeError(w, describeValidation(err), string(chat.ErrTypeInvalidInput), http.StatusBadRequest)
		return
	}

	chatID := mux.Vars(r)["id"]
	if err := h.chats.RenameChat(r.Context(), chatID, userID, req.Title); err != nil {
		writeServiceError(w, err)
		return
	}
	c, err := h.chats.GetChat(r.Context(), chatID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type shareResponse struct {
	ChatID    string `json:"chatId"`
	SharePath string `json:"sharePath"`
	Shared    bool   `json:"shared"`
}

// ShareChat publishes the chat under its share path.
func (h *ChatHandler) ShareChat(w http.ResponseWriter, r *http.Request) {
	h.setShared(w, r, true)
}

// UnshareChat restores the private path.
func (h *ChatHandler) UnshareChat(w http.ResponseWriter, r *http.Request) {
	h.setShared(w, r, false)
}

func (h *ChatHandler) setShared(w http.ResponseWriter, r *http.Request, shared bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	chatID := mux.Vars(r)["id"]
	var (
		c   *domain.Chat
		err error
	)
	if shared {
		c, err = h.chats.ShareChat(r.Context(), chatID, userID)
	} else {
		c, err = h.chats.UnshareChat(r.Context(), chatID, userID)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	path, _ := c.Metadata[domain.MetaSharePath].(string)
	writeJSON(w, http.StatusOK, shareResponse{ChatID: c.ID, SharePath: path, Shared: c.IsShared()})
}
