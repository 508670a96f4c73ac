// Package mathnotes is a retrieval-augmented assistant over a folder of PDF
// notes. It indexes per-page text into a Redis vector index, retrieves the
// pages most relevant to a question, renders them as images, and asks a
// multimodal model to answer with those pages as context.
package mathnotes

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mkraev/mathnotes/internal/db"
	dbRedis "github.com/mkraev/mathnotes/internal/db/redis"
	"github.com/mkraev/mathnotes/internal/domain"
	"github.com/mkraev/mathnotes/internal/pdf"
	"github.com/mkraev/mathnotes/internal/repository/embcache"
	"github.com/mkraev/mathnotes/internal/repository/pages"
	openaiTransport "github.com/mkraev/mathnotes/internal/transport/openai"
	answeruc "github.com/mkraev/mathnotes/internal/usecase/answer"
	indexeruc "github.com/mkraev/mathnotes/internal/usecase/indexer"
	retrieveruc "github.com/mkraev/mathnotes/internal/usecase/retriever"
)

const defaultReadinessTimeout = 10 * time.Second

// Answer is the response to one query: synthesized text plus the rendered
// source pages (base64 PNGs) and their captions, co-indexed.
type Answer = domain.Answer

// Assistant is the mathnotes SDK entry point. Indexing and querying are
// independent synchronous operations; writes to the index are serialized
// internally.
type Assistant struct {
	store     db.Store
	pages     *pages.Repo
	indexer   *indexeruc.Service
	retriever *retrieveruc.Service
	answerer  *answeruc.Service
	logger    *zap.Logger
}

// New creates an Assistant and connects to the page-unit store. A missing
// OpenAI credential is a fatal initialization error: nothing can be indexed
// or queried without the embedding and chat capabilities.
func New(opts ...Option) (*Assistant, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o(cfg)
	}

	if cfg.apiKey == "" {
		return nil, domain.ErrMissingAPIKey
	}
	if len(cfg.redisAddrs) == 0 {
		return nil, fmt.Errorf("mathnotes: redis address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.redisAddrs,
		Password: cfg.redisPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("mathnotes: create store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("mathnotes: store not ready: %w", err)
	}

	a, err := wire(store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

func wire(store db.Store, cfg *clientConfig) (*Assistant, error) {
	pageRepo := pages.New(store, cfg.collection, cfg.embeddingDimensions)
	if err := pageRepo.EnsureIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("mathnotes: ensure index: %w", err)
	}

	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.apiKey,
		BaseURL:    cfg.baseURL,
		Model:      cfg.embeddingModel,
		Dimensions: cfg.embeddingDimensions,
		Logger:     cfg.logger,
	})
	embedder := embcache.New(baseEmbedder, store, cfg.cacheMetric, cfg.logger).WithTTL(cfg.cacheTTL)

	chat := openaiTransport.NewChatClient(&openaiTransport.ChatConfig{
		APIKey:  cfg.apiKey,
		BaseURL: cfg.baseURL,
		Model:   cfg.chatModel,
		Logger:  cfg.logger,
	})

	indexer := indexeruc.New(pageRepo, pdf.NewExtractor(), embedder, cfg.notesDir, cfg.logger).
		WithMinPageChars(cfg.minPageChars)
	retriever := retrieveruc.New(pageRepo, embedder, pdf.NewRenderer(cfg.renderDPI), cfg.logger).
		WithWindow(cfg.topK, cfg.neighborRadius, cfg.maxContextPages)
	answerer := answeruc.New(chat, cfg.logger).WithMaxTokens(cfg.maxAnswerTokens)

	return &Assistant{
		store:     store,
		pages:     pageRepo,
		indexer:   indexer,
		retriever: retriever,
		answerer:  answerer,
		logger:    cfg.logger,
	}, nil
}

// Reindex scans the notes folder and (re)indexes every new or changed PDF.
// Idempotent: rescanning with no file changes performs no writes.
// Per-document failures are logged and skipped, never returned.
func (a *Assistant) Reindex(ctx context.Context) error {
	return a.indexer.Reindex(ctx)
}

// Query answers one question from the indexed notes. The returned images
// and captions are co-indexed. A generative failure comes back as answer
// text; only retrieval-infrastructure failures surface as an error.
func (a *Assistant) Query(ctx context.Context, question string) (domain.Answer, error) {
	ctxPages, err := a.retriever.Retrieve(ctx, question)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieve context: %w", err)
	}
	return a.answerer.Answer(ctx, question, ctxPages), nil
}

// PageCount returns the number of page units currently indexed.
func (a *Assistant) PageCount(ctx context.Context) (int, error) {
	return a.pages.Count(ctx)
}

// Ping reports whether the page-unit store is reachable.
func (a *Assistant) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}

// Close releases the store connection.
func (a *Assistant) Close() {
	a.store.Close()
}
