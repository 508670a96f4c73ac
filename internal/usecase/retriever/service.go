// Package retriever builds the per-query context window: the top-K most
// similar pages, expanded to their neighbors, deduplicated, sorted into
// reading order, capped, and rendered.
package retriever

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mkraev/mathnotes/internal/domain"
	"github.com/mkraev/mathnotes/internal/metrics"
)

// Context-window defaults, matching what fits a single multimodal prompt.
const (
	DefaultTopK            = 3
	DefaultNeighborRadius  = 1
	DefaultMaxContextPages = 9
)

// Service retrieves and renders the pages most relevant to a question.
type Service struct {
	search   Searcher
	embed    Embedder
	render   Renderer
	topK     int
	radius   int
	maxPages int
	logger   *zap.Logger
}

// New creates a retrieval service with default window settings.
func New(search Searcher, embed Embedder, render Renderer, logger *zap.Logger) *Service {
	return &Service{
		search:   search,
		embed:    embed,
		render:   render,
		topK:     DefaultTopK,
		radius:   DefaultNeighborRadius,
		maxPages: DefaultMaxContextPages,
		logger:   logger,
	}
}

// WithWindow overrides the retrieval window parameters. Non-positive values
// keep the defaults.
func (s *Service) WithWindow(topK, radius, maxPages int) *Service {
	if topK > 0 {
		s.topK = topK
	}
	if radius > 0 {
		s.radius = radius
	}
	if maxPages > 0 {
		s.maxPages = maxPages
	}
	return s
}

// Retrieve returns the rendered context window for a question, in reading
// order. An empty result is a defined state (nothing relevant indexed), not
// an error.
func (s *Service) Retrieve(ctx context.Context, question string) ([]domain.ContextPage, error) {
	embRes, err := s.embed.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("vectorize question: %w", err)
	}

	hits, err := s.search.SearchKNN(ctx, embRes.Embedding, s.topK)
	if err != nil {
		return nil, fmt.Errorf("search page units: %w", err)
	}
	if len(hits) == 0 {
		metrics.ContextPagesPerQuery.Observe(0)
		return nil, nil
	}

	refs := s.expand(hits)

	pages := make([]domain.ContextPage, 0, len(refs))
	for _, ref := range refs {
		// Out-of-range neighbors (page -1, page past the end) and corrupt
		// pages surface here as "no image" and are silently dropped.
		img, ok := s.render.RenderPNG(ref.Path, ref.Page)
		if !ok {
			s.logger.Debug("Dropping unrenderable page",
				zap.String("doc", ref.Doc),
				zap.Int("page", ref.Page),
			)
			continue
		}
		pages = append(pages, domain.ContextPage{
			Ref:      ref,
			ImageB64: img,
			Caption:  ref.Caption(),
		})
	}

	metrics.ContextPagesPerQuery.Observe(float64(len(pages)))
	return pages, nil
}

// expand widens each hit to its page neighborhood, deduplicates the merged
// set, sorts it by (document, page) ascending, and caps it to maxPages.
// The cap applies to the globally sorted order, not per hit: a document that
// sorts early may consume the whole budget.
func (s *Service) expand(hits []domain.PageHit) []domain.PageRef {
	seen := make(map[string]domain.PageRef)
	for _, hit := range hits {
		for d := -s.radius; d <= s.radius; d++ {
			ref := domain.PageRef{
				Doc:  hit.Ref.Doc,
				Page: hit.Ref.Page + d,
				Path: hit.Ref.Path,
			}
			key := fmt.Sprintf("%s\x00%d", ref.Doc, ref.Page)
			if _, ok := seen[key]; !ok {
				seen[key] = ref
			}
		}
	}

	refs := make([]domain.PageRef, 0, len(seen))
	for _, ref := range seen {
		refs = append(refs, ref)
	}
	domain.SortRefs(refs)

	if len(refs) > s.maxPages {
		refs = refs[:s.maxPages]
	}
	return refs
}
