package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/iyunix/go-docchat/internal/services/chat"
	"github.com/iyunix/go-docchat/internal/services/ingest"
)

// multipartOverhead is allowed on top of the file size for form fields and boundaries.
const multipartOverhead = 64 << 10

// Ingester indexes an uploaded document.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.UploadRequest) (*ingest.UploadResult, error)
}

type UploadHandler struct {
	ingester Ingester
	maxBytes int64
	logger   Logger
}

func NewUploadHandler(ingester Ingester, maxBytes int64, logger Logger) *UploadHandler {
	return &UploadHandler{ingester: ingester, maxBytes: maxBytes, logger: logger}
}

type uploadResponse struct {
	ChatID    string    `json:"chatId"`
	FileID    string    `json:"fileId"`
	Chunks    int       `json:"chunks"`
	MessageID uint      `json:"messageId,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Upload accepts a multipart form with a "file" part and an optional "chatId".
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "File is too large", string(chat.ErrTypeInvalidInput), http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, "Invalid multipart form", string(chat.ErrTypeInvalidInput), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "No file uploaded", string(chat.ErrTypeInvalidInput), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		writeError(w, "Could not read file", string(chat.ErrTypeInvalidInput), http.StatusBadRequest)
		return
	}

	result, err := h.ingester.Ingest(r.Context(), ingest.UploadRequest{
		ChatID:      r.FormValue("chatId"),
		UserID:      userID,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.logger.Warn("upload failed", "user_id", userID, "file", header.Filename, "kind", chat.KindOf(err), "error", err)
		writeServiceError(w, err)
		return
	}

	resp := uploadResponse{ChatID: result.ChatID, FileID: result.FileID, Chunks: result.Chunks}
	if result.Message != nil {
		resp.MessageID = result.Message.ID
		resp.Message = result.Message.Content
		resp.CreatedAt = result.Message.CreatedAt
	}
	writeJSON(w, http.StatusCreated, resp)
}
