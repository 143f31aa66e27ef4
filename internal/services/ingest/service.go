// File: internal/services/ingest/service.go
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/iyunix/go-docchat/internal/domain"
	"github.com/iyunix/go-docchat/internal/metrics"
	chatrepo "github.com/iyunix/go-docchat/internal/repository/chat"
	"github.com/iyunix/go-docchat/internal/services/chat"
	"github.com/iyunix/go-docchat/internal/storage"
	"github.com/iyunix/go-docchat/internal/services/vector"
)

// Metadata keys on the upload notice message.
const (
	MetaFileID   = "fileId"
	MetaFileName = "fileName"
	MetaFileType = "fileType"
)

// ChatStore is the part of the history store ingestion writes to.
type ChatStore interface {
	FindChat(ctx context.Context, chatID string) (*domain.Chat, error)
	CreateChat(ctx context.Context, chat *domain.Chat) (*domain.Chat, error)
	Append(ctx context.Context, msg *domain.Message) error
}

// Embedder embeds chunk texts in order.
type Embedder interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Logger defines the logging interface for ingestion
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// UploadRequest is one file to index into a chat. ChatID may be empty.
type UploadRequest struct {
	ChatID      string
	UserID      string
	FileName    string
	ContentType string
	Data        []byte
}

type UploadResult struct {
	ChatID  string
	FileID  string
	Key     string
	Chunks  int
	Message *domain.Message
}

// Service stores an uploaded document, indexes its chunks under the chat's
// scope and records the upload in the chat history.
type Service struct {
	config    *Config
	chats     ChatStore
	blobs     storage.BlobStore
	embedder  Embedder
	index     vector.Index
	extractor TextExtractor
	splitter  textsplitter.TextSplitter
	logger    Logger
}

func NewService(config *Config, chats ChatStore, blobs storage.BlobStore, embedder Embedder, index vector.Index, extractor TextExtractor, logger Logger) (*Service, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ingest config: %w", err)
	}
	if chats == nil || blobs == nil || embedder == nil || index == nil || extractor == nil || logger == nil {
		return nil, errors.New("all ingest dependencies are required")
	}

	return &Service{
		config:    config,
		chats:     chats,
		blobs:     blobs,
		embedder:  embedder,
		index:     index,
		extractor: extractor,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(config.ChunkSize),
			textsplitter.WithChunkOverlap(config.ChunkOverlap),
		),
		logger: logger,
	}, nil
}

func (s *Service) Ingest(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	result, err := s.ingest(ctx, req)
	switch chat.KindOf(err) {
	case "":
		if err == nil {
			metrics.UploadsTotal.WithLabelValues("indexed").Inc()
			metrics.IndexedChunks.Add(float64(result.Chunks))
		} else {
			metrics.UploadsTotal.WithLabelValues("failed").Inc()
		}
	case chat.ErrTypeInvalidInput, chat.ErrTypeNotFound:
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
	default:
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
	}
	return result, err
}

func (s *Service) ingest(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	name := chat.CleanFilename(req.FileName)
	if err := s.validate(req, name); err != nil {
		return nil, err
	}

	chatID := strings.TrimSpace(req.ChatID)
	if chatID == "" {
		chatID = uuid.NewString()
	}
	if err := s.resolveChat(ctx, chatID, req.UserID, name); err != nil {
		return nil, err
	}

	fileID := uuid.NewString()
	key := fmt.Sprintf("%s/%s.pdf", req.UserID, fileID)
	if err := s.blobs.Put(ctx, s.config.Bucket, key, ContentTypePDF, bytes.NewReader(req.Data)); err != nil {
		return nil, chat.NewUpstreamError("store_file", "failed to store file", err)
	}

	text, err := s.extractor.Extract(req.Data)
	if err != nil {
		return nil, chat.NewInvalidInputError("extract", "could not read the PDF: "+err.Error())
	}
	chunks, err := s.split(text)
	if err != nil {
		return nil, err
	}

	vectors, err := s.embedder.CreateEmbeddings(ctx, chunks)
	if err != nil {
		return nil, chat.NewUpstreamError("embed", "failed to embed document", err)
	}
	if len(vectors) != len(chunks) {
		return nil, chat.NewUpstreamError("embed", fmt.Sprintf("expected %d embeddings, got %d", len(chunks), len(vectors)), nil)
	}

	scope := domain.Scope{ChatID: chatID, UserID: req.UserID}
	records := make([]vector.Record, len(chunks))
	for i, text := range chunks {
		records[i] = vector.Record{
			ID:     uuid.NewString(),
			Values: vectors[i],
			Text:   text,
			Scope:  scope,
			Metadata: map[string]any{
				vector.KeyFileName:     key,
				vector.KeyOriginalName: name,
				vector.KeyChunkIndex:   i,
				vector.KeyTotalChunks:  len(chunks),
				vector.KeySource:       name,
			},
		}
	}
	if err := s.index.Upsert(ctx, records); err != nil {
		return nil, chat.NewUpstreamError("index", "failed to index document", err)
	}

	notice := &domain.Message{
		ChatID:  chatID,
		Role:    domain.RoleAssistant,
		Content: "File uploaded: " + name,
		Metadata: map[string]any{
			MetaFileID:   fileID,
			MetaFileName: name,
			MetaFileType: ContentTypePDF,
		},
	}
	if err := s.chats.Append(ctx, notice); err != nil {
		return nil, chat.NewPersistenceError("append_upload_notice", chatID, err)
	}

	s.logger.Info("document indexed", "chat_id", chatID, "user_id", req.UserID, "file_id", fileID, "chunks", len(chunks))
	return &UploadResult{ChatID: chatID, FileID: fileID, Key: key, Chunks: len(chunks), Message: notice}, nil
}

func (s *Service) validate(req UploadRequest, name string) error {
	if strings.TrimSpace(req.UserID) == "" {
		return chat.NewInvalidInputError("upload", "user is required")
	}
	if name == "" {
		return chat.NewInvalidInputError("upload", "file name is required")
	}
	if len(req.Data) == 0 {
		return chat.NewInvalidInputError("upload", "file is empty")
	}
	if int64(len(req.Data)) > s.config.MaxBytes {
		return chat.NewInvalidInputError("upload", fmt.Sprintf("file exceeds %d bytes", s.config.MaxBytes))
	}
	declared := strings.TrimSpace(strings.SplitN(req.ContentType, ";", 2)[0])
	if declared != ContentTypePDF || http.DetectContentType(req.Data) != ContentTypePDF {
		return chat.NewInvalidInputError("upload", "only PDF files are supported")
	}
	return nil
}

func (s *Service) resolveChat(ctx context.Context, chatID, userID, name string) error {
	existing, err := s.chats.FindChat(ctx, chatID)
	switch {
	case err == nil:
		if existing.UserID != userID {
			return chat.NewNotFoundError(chatID, userID)
		}
		return nil
	case errors.Is(err, chatrepo.ErrChatNotFound):
	default:
		return chat.NewPersistenceError("find_chat", chatID, err)
	}

	_, err = s.chats.CreateChat(ctx, &domain.Chat{
		ID:       chatID,
		UserID:   userID,
		Title:    chat.TruncateText(name, s.config.TitleMaxRunes),
		Metadata: map[string]any{domain.MetaSharePath: domain.ChatPath(chatID)},
	})
	if err != nil {
		return chat.NewPersistenceError("create_chat", chatID, err)
	}
	return nil
}

func (s *Service) split(text string) ([]string, error) {
	parts, err := s.splitter.SplitText(text)
	if err != nil {
		return nil, chat.NewInvalidInputError("split", "failed to split document: "+err.Error())
	}
	chunks := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			chunks = append(chunks, p)
		}
	}
	if len(chunks) == 0 {
		return nil, chat.NewInvalidInputError("split", "the PDF contains no extractable text")
	}
	return chunks, nil
}
