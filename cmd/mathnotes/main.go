package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mkraev/mathnotes"
	"github.com/mkraev/mathnotes/internal/config"
	logpkg "github.com/mkraev/mathnotes/internal/logger"
	"github.com/mkraev/mathnotes/internal/metrics"
	chiTransport "github.com/mkraev/mathnotes/internal/transport/chi"
	"github.com/mkraev/mathnotes/internal/version"
)

func main() {
	// .env is optional; OPENAI_API_KEY usually lives there in local setups.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting mathnotes API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("notes_dir", cfg.Notes.Dir),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	metrics.Register()

	assistant, err := mathnotes.New(
		mathnotes.WithRedis(cfg.Database.Addrs...),
		mathnotes.WithRedisPassword(cfg.Database.Password),
		mathnotes.WithOpenAIKey(cfg.OpenAI.APIKey),
		mathnotes.WithBaseURL(cfg.OpenAI.BaseURL),
		mathnotes.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel, cfg.OpenAI.EmbeddingDimensions),
		mathnotes.WithChatModel(cfg.OpenAI.ChatModel),
		mathnotes.WithMaxAnswerTokens(cfg.OpenAI.MaxAnswerTokens),
		mathnotes.WithNotesDir(cfg.Notes.Dir),
		mathnotes.WithCollection(cfg.Notes.Collection),
		mathnotes.WithMinPageChars(cfg.Notes.MinPageChars),
		mathnotes.WithRetrievalWindow(
			cfg.Retrieval.TopK, cfg.Retrieval.NeighborRadius, cfg.Retrieval.MaxContextPages),
		mathnotes.WithRenderDPI(cfg.Retrieval.RenderDPI),
		mathnotes.WithLogger(logger),
		mathnotes.WithEmbeddingCacheMetric(metrics.EmbeddingCacheTotal),
	)
	if err != nil {
		logger.Fatal("Failed to create assistant", zap.Error(err))
	}
	defer assistant.Close()
	logger.Info("Connected to page-unit store")

	server := chiTransport.NewServer(assistant, assistant, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.RequestLogger(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
