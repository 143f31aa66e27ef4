// File: internal/handlers/page_handlers.go
package handlers

import (
	"bytes"
	"context"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/iyunix/go-docchat/internal/domain"
	"github.com/iyunix/go-docchat/internal/services/chat"
)

// SharedChatReader loads published chats for anonymous viewers.
type SharedChatReader interface {
	GetSharedChat(ctx context.Context, chatID string) (*domain.Chat, error)
}

// sharedPage renders one published chat. Message bodies are pre-rendered HTML.
var sharedPage = template.Must(template.New("shared").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body>
<main class="shared-chat">
<h1>{{.Title}}</h1>
{{range .Messages}}<article class="message message-{{.Role}}">
<header>{{.Role}} &middot; <time datetime="{{.CreatedAt.Format "2006-01-02T15:04:05Z07:00"}}">{{.CreatedAt.Format "Jan 2, 2006 15:04"}}</time></header>
<div class="content">{{.HTML}}</div>
</article>
{{end}}</main>
</body>
</html>
`))

type sharedMessage struct {
	Role      domain.Role   `json:"role"`
	Content   string        `json:"content"`
	HTML      template.HTML `json:"html"`
	CreatedAt time.Time     `json:"createdAt"`
}

type sharedChat struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Messages []sharedMessage `json:"messages"`
}

type PageHandler struct {
	chats    SharedChatReader
	markdown goldmark.Markdown
}

func NewPageHandler(chats SharedChatReader) *PageHandler {
	return &PageHandler{
		chats: chats,
		// Raw HTML inside messages is dropped by the default renderer.
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// GetSharedChat returns a published chat with every message rendered to HTML.
func (h *PageHandler) GetSharedChat(w http.ResponseWriter, r *http.Request) {
	view, err := h.loadShared(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ShowSharedChatPage renders a published chat as a standalone page.
func (h *PageHandler) ShowSharedChatPage(w http.ResponseWriter, r *http.Request) {
	view, err := h.loadShared(r)
	if err != nil {
		status := statusForKind(chat.KindOf(err))
		http.Error(w, http.StatusText(status), status)
		return
	}

	var buf bytes.Buffer
	if err := sharedPage.Execute(&buf, view); err != nil {
		log.Printf("Template render error for shared chat %s: %v", view.ID, err)
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}
	addSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (h *PageHandler) loadShared(r *http.Request) (*sharedChat, error) {
	c, err := h.chats.GetSharedChat(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return nil, err
	}

	view := &sharedChat{ID: c.ID, Title: c.Title, Messages: make([]sharedMessage, 0, len(c.Messages))}
	for _, m := range c.Messages {
		view.Messages = append(view.Messages, sharedMessage{
			Role:      m.Role,
			Content:   m.Content,
			HTML:      h.render(m.Content),
			CreatedAt: m.CreatedAt,
		})
	}
	return view, nil
}

func (h *PageHandler) render(markdown string) template.HTML {
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(markdown), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(markdown))
	}
	return template.HTML(buf.String())
}

func addSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Security-Policy", "default-src 'self'")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
}
