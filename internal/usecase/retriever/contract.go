package retriever

import (
	"context"

	"github.com/mkraev/mathnotes/internal/domain"
)

// Searcher finds the nearest page units for a query vector.
type Searcher interface {
	SearchKNN(ctx context.Context, vector []float32, k int) ([]domain.PageHit, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Renderer converts a page reference into a displayable image.
// ok=false is the expected "no image" outcome for out-of-range or
// unrenderable pages, not an error.
type Renderer interface {
	RenderPNG(path string, page int) (string, bool)
}
