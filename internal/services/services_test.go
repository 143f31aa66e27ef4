package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-docchat/internal/config"
	"github.com/iyunix/go-docchat/internal/database"
	"github.com/iyunix/go-docchat/internal/domain"
	chatrepo "github.com/iyunix/go-docchat/internal/repository/chat"
	"github.com/iyunix/go-docchat/internal/repository/message"
	"github.com/iyunix/go-docchat/internal/services/chat"
	"github.com/iyunix/go-docchat/internal/services/history"
	"github.com/iyunix/go-docchat/internal/services/ingest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("ENV", "test")
	t.Setenv("PROMPT_PROFILE", "marketing")
	t.Setenv("RAG_TOPK", "6")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("PINECONE_NAMESPACE", "tenant-a")
	cfg, err := config.Parse()
	require.NoError(t, err)
	return cfg
}

func TestSubsystemConfigsFollowEnvironment(t *testing.T) {
	cfg := testConfig(t)

	cc := ChatConfig(cfg)
	require.NoError(t, cc.Validate())
	assert.Equal(t, 6, cc.RetrievalTopK)
	assert.Equal(t, chat.ProfileMarketing, cc.Profile)
	assert.Equal(t, cfg.ChatModel, cc.CondenseModel)

	ic := IngestConfig(cfg)
	require.NoError(t, ic.Validate())
	assert.Equal(t, int64(1<<20), ic.MaxBytes)
	assert.Equal(t, "uploads", ic.Bucket)

	assert.Equal(t, "tenant-a", PineconeConfig(cfg).Namespace)
	assert.Equal(t, "DocumentChunk", WeaviateConfig(cfg).ClassName)
	assert.Equal(t, "text-embedding-3-small", AIConfig(cfg).EmbeddingModel)
}

func TestNewVectorIndexRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.VectorBackend = "qdrant"

	idx, err := NewVectorIndex(context.Background(), cfg, &NoOpLogger{})
	assert.Error(t, err)
	assert.Nil(t, idx)
}

type idleOrchestrator struct{}

func (idleOrchestrator) RunTurn(ctx context.Context, req chat.TurnRequest) (*chat.Stream, error) {
	return nil, chat.NewConflictError(req.ChatID)
}

type idleIngester struct{}

func (idleIngester) Ingest(ctx context.Context, req ingest.UploadRequest) (*ingest.UploadResult, error) {
	return nil, chat.NewInvalidInputError("upload", "file is empty")
}

func TestChatServiceReportsChatErrorKinds(t *testing.T) {
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	store := history.NewStore(chatrepo.NewChatRepository(db), message.NewMessageRepository(db), &NoOpLogger{})
	svc, err := NewChatService(store, idleOrchestrator{}, idleIngester{}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.ClearChats(ctx, "alice")
	assert.Equal(t, chat.ErrTypeNotFound, chat.KindOf(err))

	_, err = store.CreateChat(ctx, &domain.Chat{ID: "c1", UserID: "alice", Title: "Lease"})
	require.NoError(t, err)

	_, err = svc.GetChat(ctx, "c1", "bob")
	assert.Equal(t, chat.ErrTypeNotFound, chat.KindOf(err))
	assert.Equal(t, chat.ErrTypeNotFound, chat.KindOf(svc.DeleteChat(ctx, "c1", "bob")))
	assert.Equal(t, chat.ErrTypeInvalidInput, chat.KindOf(svc.RenameChat(ctx, "c1", "alice", "  \n ")))
	assert.Equal(t, chat.ErrTypeInvalidInput, chat.KindOf(svc.RenameChat(ctx, "c1", "alice", "<script>alert(1)</script>")))

	require.NoError(t, svc.RenameChat(ctx, "c1", "alice", "  Lease   terms "))
	got, err := svc.GetChat(ctx, "c1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Lease terms", got.Title)

	_, err = svc.RunTurn(ctx, chat.TurnRequest{ChatID: "c1"})
	assert.Equal(t, chat.ErrTypeConflict, chat.KindOf(err))
	_, err = svc.Ingest(ctx, ingest.UploadRequest{})
	assert.Equal(t, chat.ErrTypeInvalidInput, chat.KindOf(err))

	n, err := svc.ClearChats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = NewChatService(nil, idleOrchestrator{}, idleIngester{}, nil)
	assert.Error(t, err)
}
