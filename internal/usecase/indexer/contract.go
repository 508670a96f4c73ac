package indexer

import (
	"context"

	"github.com/mkraev/mathnotes/internal/domain"
)

// Repository is the storage contract for page units.
type Repository interface {
	// Fingerprints returns the recorded content fingerprint per indexed document.
	Fingerprints(ctx context.Context) (map[string]string, error)
	// ReplaceDocument swaps all page units of a document in one call.
	ReplaceDocument(ctx context.Context, doc string, units []domain.PageUnit) error
}

// Extractor reads per-page text from a document.
type Extractor interface {
	ExtractPages(path string) ([]string, error)
}

// Embedder vectorizes page texts.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
