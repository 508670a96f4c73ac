// Package indexer keeps the page-unit index in sync with a folder of PDFs:
// it detects new and changed documents by content fingerprint and replaces
// their indexed pages.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mkraev/mathnotes/internal/domain"
	"github.com/mkraev/mathnotes/internal/metrics"
)

// Status classifies a scanned document against the index.
type Status int

const (
	// StatusUnchanged means the recorded fingerprint matches the file.
	StatusUnchanged Status = iota
	// StatusNew means the document has no page units in the index.
	StatusNew
	// StatusChanged means the file content differs from the indexed fingerprint.
	StatusChanged
)

// Candidate is one scanned document with its detected state.
type Candidate struct {
	Doc         string
	Path        string
	Fingerprint string
	Status      Status
}

// Service indexes documents from a notes folder.
type Service struct {
	repo     Repository
	extract  Extractor
	embed    Embedder
	notesDir string
	minChars int
	logger   *zap.Logger

	// mu serializes the delete+insert pair of a document replacement so a
	// concurrent reader never observes a half-reindexed document.
	mu sync.Mutex
}

// New creates an indexing service.
func New(repo Repository, extract Extractor, embed Embedder, notesDir string, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		extract:  extract,
		embed:    embed,
		notesDir: notesDir,
		minChars: domain.MinPageChars,
		logger:   logger,
	}
}

// WithMinPageChars overrides the minimum normalized text length per page.
func (s *Service) WithMinPageChars(n int) *Service {
	if n > 0 {
		s.minChars = n
	}
	return s
}

// Reindex scans the notes folder and re-indexes every new or changed
// document. A single document's failure is logged and skipped; it never
// aborts the rest of the pass. Running twice with no file changes in between
// performs no writes at all.
func (s *Service) Reindex(ctx context.Context) error {
	candidates, err := s.DetectChanges(ctx)
	if err != nil {
		return err
	}

	for _, c := range candidates {
		switch c.Status {
		case StatusUnchanged:
			metrics.DocumentsIndexedTotal.WithLabelValues("skipped").Inc()
			s.logger.Debug("Skipping document, no changes", zap.String("doc", c.Doc))
			continue
		case StatusNew, StatusChanged:
			if err := s.indexDocument(ctx, c); err != nil {
				metrics.DocumentsIndexedTotal.WithLabelValues("failed").Inc()
				s.logger.Warn("Failed to index document",
					zap.String("doc", c.Doc),
					zap.Error(err),
				)
				continue
			}
			metrics.DocumentsIndexedTotal.WithLabelValues("indexed").Inc()
		}
	}
	return nil
}

// DetectChanges scans the notes folder and classifies every PDF against the
// fingerprints recorded in the index. Pure read: nothing is written. A
// missing folder is created and yields an empty set. Documents that are in
// the index but no longer on disk are not reported; stale entries for
// deleted files are a documented limitation.
func (s *Service) DetectChanges(ctx context.Context) ([]Candidate, error) {
	if err := os.MkdirAll(s.notesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create notes dir %s: %w", s.notesDir, err)
	}

	entries, err := os.ReadDir(s.notesDir)
	if err != nil {
		return nil, fmt.Errorf("read notes dir %s: %w", s.notesDir, err)
	}

	known, err := s.repo.Fingerprints(ctx)
	if err != nil {
		return nil, fmt.Errorf("read indexed fingerprints: %w", err)
	}

	var candidates []Candidate
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}

		path := filepath.Join(s.notesDir, e.Name())
		fp, err := Fingerprint(path)
		if err != nil {
			s.logger.Warn("Failed to fingerprint file", zap.String("path", path), zap.Error(err))
			continue
		}

		c := Candidate{Doc: e.Name(), Path: path, Fingerprint: fp}
		recorded, indexed := known[e.Name()]
		switch {
		case !indexed:
			c.Status = StatusNew
		case recorded != fp:
			c.Status = StatusChanged
		default:
			c.Status = StatusUnchanged
		}
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Doc < candidates[j].Doc })
	return candidates, nil
}

// indexDocument extracts, filters, and embeds all pages of one document,
// then swaps them into the index. Extraction and embedding happen before any
// deletion, so a failure leaves the document's old units intact.
func (s *Service) indexDocument(ctx context.Context, c Candidate) error {
	units, err := s.stageUnits(ctx, c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.ReplaceDocument(ctx, c.Doc, units); err != nil {
		return fmt.Errorf("replace %s: %w", c.Doc, err)
	}

	metrics.PagesIndexedTotal.Add(float64(len(units)))
	s.logger.Info("Indexed document",
		zap.String("doc", c.Doc),
		zap.Int("pages", len(units)),
	)
	return nil
}

// stageUnits builds the full set of qualifying page units for a document.
func (s *Service) stageUnits(ctx context.Context, c Candidate) ([]domain.PageUnit, error) {
	texts, err := s.extract.ExtractPages(c.Path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", c.Doc, err)
	}

	var units []domain.PageUnit
	for page, raw := range texts {
		text := domain.NormalizeText(raw)
		if len(text) < s.minChars {
			continue
		}
		units = append(units, domain.PageUnit{
			Doc:         c.Doc,
			Page:        page,
			Text:        text,
			Path:        c.Path,
			Fingerprint: c.Fingerprint,
		})
	}
	if len(units) == 0 {
		return nil, nil
	}

	embedTexts := make([]string, len(units))
	for i, u := range units {
		embedTexts[i] = u.Text
	}

	res, err := s.embed.BatchEmbed(ctx, embedTexts)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", c.Doc, err)
	}
	if len(res.Embeddings) != len(units) {
		return nil, fmt.Errorf("embed %s: got %d vectors for %d pages", c.Doc, len(res.Embeddings), len(units))
	}
	for i := range units {
		units[i].Vector = res.Embeddings[i]
	}
	return units, nil
}
