package mathnotes

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mkraev/mathnotes/internal/domain"
	"github.com/mkraev/mathnotes/internal/pdf"
	"github.com/mkraev/mathnotes/internal/usecase/answer"
	"github.com/mkraev/mathnotes/internal/usecase/retriever"
)

type clientConfig struct {
	redisAddrs    []string
	redisPassword string

	apiKey              string
	baseURL             string
	embeddingModel      string
	embeddingDimensions int
	chatModel           string
	maxAnswerTokens     int

	notesDir     string
	collection   string
	minPageChars int

	topK            int
	neighborRadius  int
	maxContextPages int
	renderDPI       float64

	logger      *zap.Logger
	cacheMetric *prometheus.CounterVec
	cacheTTL    time.Duration
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		embeddingModel:      "text-embedding-3-small",
		embeddingDimensions: 1536,
		chatModel:           "gpt-4o-mini",
		maxAnswerTokens:     answer.DefaultMaxTokens,
		notesDir:            "my_notes",
		collection:          "math_notes",
		minPageChars:        domain.MinPageChars,
		topK:                retriever.DefaultTopK,
		neighborRadius:      retriever.DefaultNeighborRadius,
		maxContextPages:     retriever.DefaultMaxContextPages,
		renderDPI:           pdf.DefaultRenderDPI,
		logger:              zap.NewNop(),
	}
}

// Option configures the Assistant.
type Option func(*clientConfig)

// WithRedis sets the Redis addresses of the page-unit store.
func WithRedis(addrs ...string) Option {
	return func(c *clientConfig) { c.redisAddrs = addrs }
}

// WithRedisPassword sets the Redis password.
func WithRedisPassword(password string) Option {
	return func(c *clientConfig) { c.redisPassword = password }
}

// WithOpenAIKey sets the credential for the embedding and chat capabilities.
func WithOpenAIKey(key string) Option {
	return func(c *clientConfig) { c.apiKey = key }
}

// WithBaseURL points both OpenAI clients at a compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) { c.baseURL = url }
}

// WithEmbeddingModel sets the embedding model and vector dimensions.
func WithEmbeddingModel(model string, dimensions int) Option {
	return func(c *clientConfig) {
		if model != "" {
			c.embeddingModel = model
		}
		if dimensions > 0 {
			c.embeddingDimensions = dimensions
		}
	}
}

// WithChatModel sets the multimodal chat model.
func WithChatModel(model string) Option {
	return func(c *clientConfig) {
		if model != "" {
			c.chatModel = model
		}
	}
}

// WithMaxAnswerTokens bounds the generated answer length.
func WithMaxAnswerTokens(n int) Option {
	return func(c *clientConfig) { c.maxAnswerTokens = n }
}

// WithNotesDir sets the folder scanned for PDF documents.
func WithNotesDir(dir string) Option {
	return func(c *clientConfig) {
		if dir != "" {
			c.notesDir = dir
		}
	}
}

// WithCollection sets the index/key namespace of the page-unit store.
func WithCollection(name string) Option {
	return func(c *clientConfig) {
		if name != "" {
			c.collection = name
		}
	}
}

// WithMinPageChars overrides the minimum normalized text length per page.
func WithMinPageChars(n int) Option {
	return func(c *clientConfig) { c.minPageChars = n }
}

// WithRetrievalWindow overrides top-K, neighbor radius, and the context cap.
func WithRetrievalWindow(topK, radius, maxPages int) Option {
	return func(c *clientConfig) {
		c.topK = topK
		c.neighborRadius = radius
		c.maxContextPages = maxPages
	}
}

// WithRenderDPI sets the page raster resolution.
func WithRenderDPI(dpi float64) Option {
	return func(c *clientConfig) { c.renderDPI = dpi }
}

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEmbeddingCacheMetric wires the cache hit/miss counter
// (label "result"). Nil disables cache metrics.
func WithEmbeddingCacheMetric(vec *prometheus.CounterVec) Option {
	return func(c *clientConfig) { c.cacheMetric = vec }
}

// WithEmbeddingCacheTTL bounds the lifetime of cached embedding vectors.
// Non-positive (the default) keeps entries forever.
func WithEmbeddingCacheTTL(ttl time.Duration) Option {
	return func(c *clientConfig) { c.cacheTTL = ttl }
}
