// File: cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"github.com/iyunix/go-docchat/internal/auth"
	"github.com/iyunix/go-docchat/internal/config"
	"github.com/iyunix/go-docchat/internal/database"
	"github.com/iyunix/go-docchat/internal/handlers"
	"github.com/iyunix/go-docchat/internal/metrics"
	"github.com/iyunix/go-docchat/internal/middleware"
	"github.com/iyunix/go-docchat/internal/ratelimit"
	chatrepo "github.com/iyunix/go-docchat/internal/repository/chat"
	"github.com/iyunix/go-docchat/internal/repository/message"
	"github.com/iyunix/go-docchat/internal/services"
	"github.com/iyunix/go-docchat/internal/services/chat"
	"github.com/iyunix/go-docchat/internal/services/history"
	"github.com/iyunix/go-docchat/internal/services/ingest"
	"github.com/iyunix/go-docchat/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Invalid configuration: %v", err)
	}
	logger := services.NewLogger("docchat")
	ctx := context.Background()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}
	if err := database.GetMigrator(db).Migrate(); err != nil {
		log.Fatalf("DB Migration Error: %v", err)
	}

	// --- Repositories ---
	store := history.NewStore(chatrepo.NewChatRepository(db), message.NewMessageRepository(db), logger)

	// --- External clients ---
	aiProvider, err := services.NewAIProvider(cfg, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize AI provider: %v", err)
	}

	index, err := services.NewVectorIndex(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize %s vector index: %v", cfg.VectorBackend, err)
	}
	defer index.Close()

	blobs, err := storage.NewS3Store(ctx, storage.S3Config{
		EndpointURL:     cfg.S3EndpointURL,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Region:          cfg.S3Region,
	}, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize blob storage: %v", err)
	}
	if err := blobs.EnsureBucket(ctx, cfg.UploadBucket); err != nil {
		log.Fatalf("FATAL: Upload bucket %q unavailable: %v", cfg.UploadBucket, err)
	}

	// --- Services ---
	chatCfg := services.ChatConfig(cfg)
	profile, err := chat.LookupProfile(chatCfg.Profile)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	orchestrator, err := chat.NewOrchestrator(
		chatCfg,
		store,
		chat.NewCondenser(aiProvider, chatCfg.CondenseModel, profile, logger),
		chat.NewRetriever(aiProvider, index, logger),
		chat.NewGenerator(aiProvider, chatCfg.ChatModel),
		logger,
	)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize turn orchestrator: %v", err)
	}

	ingestCfg := services.IngestConfig(cfg)
	ingester, err := ingest.NewService(ingestCfg, store, blobs, aiProvider, index, ingest.PDFExtractor{}, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize ingestion: %v", err)
	}

	chatService, err := services.NewChatService(store, orchestrator, ingester, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Chat Service: %v", err)
	}

	// --- Handlers ---
	chatHandler := handlers.NewChatHandler(chatService, logger)
	streamHandler := handlers.NewStreamHandler(chatService, logger)
	uploadHandler := handlers.NewUploadHandler(chatService, ingestCfg.MaxBytes, logger)
	pageHandler := handlers.NewPageHandler(chatService)

	limiterCfg := ratelimit.DefaultStreamConfig()
	limiterCfg.RequestsPerMinute = cfg.StreamRatePerMinute
	streamLimiter := ratelimit.NewMemoryRateLimiter(limiterCfg)
	defer streamLimiter.Close()

	secret := []byte(cfg.JWTSecretKey)
	authMiddleware := middleware.NewJWTMiddleware(func(token string) (string, error) {
		return auth.ValidateToken(token, secret)
	})

	// --- Router Setup ---
	r := mux.NewRouter()
	r.Use(middleware.RecoverPanic)
	r.Use(middleware.LoggingMiddleware)

	// --- Public Routes ---
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); _, _ = w.Write([]byte("OK")) }).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/api/log", handlers.LogFrontendEvent).Methods("POST")
	r.HandleFunc("/api/shared/{id}", pageHandler.GetSharedChat).Methods("GET")
	r.HandleFunc("/shared/{id}", pageHandler.ShowSharedChatPage).Methods("GET")

	// --- Protected Routes ---
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware)
	api.Handle("/chat/stream", middleware.RateLimitMiddleware(streamLimiter, "stream")(http.HandlerFunc(streamHandler.StreamChat))).Methods("POST")
	api.HandleFunc("/chats", chatHandler.GetUserChats).Methods("GET")
	api.HandleFunc("/chats", chatHandler.ClearChats).Methods("DELETE")
	api.HandleFunc("/chats/{id}", chatHandler.GetChat).Methods("GET")
	api.HandleFunc("/chats/{id}", chatHandler.RenameChat).Methods("PATCH")
	api.HandleFunc("/chats/{id}", chatHandler.DeleteChat).Methods("DELETE")
	api.HandleFunc("/chats/{id}/share", chatHandler.ShareChat).Methods("POST")
	api.HandleFunc("/chats/{id}/share", chatHandler.UnshareChat).Methods("DELETE")
	api.HandleFunc("/upload", uploadHandler.Upload).Methods("POST")

	handler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"X-Chat-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})(r)

	// --- Server Configuration ---
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("server starting",
		"port", cfg.ServerPort,
		"env", cfg.Environment,
		"vector_backend", cfg.VectorBackend,
		"chat_model", chatCfg.ChatModel,
		"profile", chatCfg.Profile,
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server startup failed: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
		return
	}
	log.Println("Server stopped gracefully")
}
