package indexer

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/mkraev/mathnotes/internal/domain"
)

// --- Mocks ---

type mockRepo struct {
	fingerprints map[string]string
	fpErr        error

	replaced   map[string][]domain.PageUnit
	replaceErr map[string]error
	calls      []string
}

func (m *mockRepo) Fingerprints(_ context.Context) (map[string]string, error) {
	if m.fpErr != nil {
		return nil, m.fpErr
	}
	if m.fingerprints == nil {
		return map[string]string{}, nil
	}
	return m.fingerprints, nil
}

func (m *mockRepo) ReplaceDocument(_ context.Context, doc string, units []domain.PageUnit) error {
	m.calls = append(m.calls, doc)
	if err := m.replaceErr[doc]; err != nil {
		return err
	}
	if m.replaced == nil {
		m.replaced = make(map[string][]domain.PageUnit)
	}
	m.replaced[doc] = units
	if m.fingerprints == nil {
		m.fingerprints = make(map[string]string)
	}
	if len(units) > 0 {
		m.fingerprints[doc] = units[0].Fingerprint
	}
	return nil
}

type mockExtractor struct {
	pages map[string][]string
	errs  map[string]error
}

func (m *mockExtractor) ExtractPages(path string) ([]string, error) {
	if err := m.errs[path]; err != nil {
		return nil, err
	}
	return m.pages[path], nil
}

type mockBatchEmbedder struct {
	err   error
	calls int
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i := range texts {
		out.Embeddings[i] = []float32{float32(i), 1}
	}
	return out, nil
}

const longText = "this page has well over twenty characters of real content"

func TestDetectChanges_ClassifiesNewChangedUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fresh.pdf", []byte("fresh content"))
	changedPath := writeFile(t, dir, "changed.pdf", []byte("new revision"))
	samePath := writeFile(t, dir, "same.pdf", []byte("stable content"))
	writeFile(t, dir, "notes.txt", []byte("ignored, wrong extension"))

	sameFP, err := Fingerprint(samePath)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	repo := &mockRepo{fingerprints: map[string]string{
		"changed.pdf": "stale-fingerprint",
		"same.pdf":    sameFP,
	}}
	svc := New(repo, &mockExtractor{}, &mockBatchEmbedder{}, dir, zap.NewNop())

	candidates, err := svc.DetectChanges(context.Background())
	if err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("got %d candidates, want 3", len(candidates))
	}

	byDoc := make(map[string]Candidate)
	for _, c := range candidates {
		byDoc[c.Doc] = c
	}
	if byDoc["fresh.pdf"].Status != StatusNew {
		t.Errorf("fresh.pdf status = %v, want StatusNew", byDoc["fresh.pdf"].Status)
	}
	if byDoc["changed.pdf"].Status != StatusChanged {
		t.Errorf("changed.pdf status = %v, want StatusChanged", byDoc["changed.pdf"].Status)
	}
	if byDoc["same.pdf"].Status != StatusUnchanged {
		t.Errorf("same.pdf status = %v, want StatusUnchanged", byDoc["same.pdf"].Status)
	}
	if byDoc["changed.pdf"].Path != changedPath {
		t.Errorf("candidate path = %q, want %q", byDoc["changed.pdf"].Path, changedPath)
	}
}

func TestDetectChanges_CreatesMissingFolder(t *testing.T) {
	dir := t.TempDir() + "/does-not-exist-yet"
	svc := New(&mockRepo{}, &mockExtractor{}, &mockBatchEmbedder{}, dir, zap.NewNop())

	candidates, err := svc.DetectChanges(context.Background())
	if err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("got %d candidates from empty folder, want 0", len(candidates))
	}
}

func TestReindex_IndexesNewDocumentAndFiltersShortPages(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "calc.pdf", []byte("pdf bytes"))

	repo := &mockRepo{}
	extract := &mockExtractor{pages: map[string][]string{
		path: {
			longText,            // page 0: kept
			"   too   short  ",  // page 1: under threshold after normalization
			longText + " more",  // page 2: kept
			"",                  // page 3: empty
		},
	}}
	embed := &mockBatchEmbedder{}
	svc := New(repo, extract, embed, dir, zap.NewNop())

	if err := svc.Reindex(context.Background()); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	units := repo.replaced["calc.pdf"]
	if len(units) != 2 {
		t.Fatalf("indexed %d units, want 2", len(units))
	}
	if units[0].Page != 0 || units[1].Page != 2 {
		t.Errorf("kept pages %d,%d, want 0,2", units[0].Page, units[1].Page)
	}
	for i, u := range units {
		if len(u.Vector) == 0 {
			t.Errorf("unit %d has no vector", i)
		}
		if u.Fingerprint == "" {
			t.Errorf("unit %d has no fingerprint", i)
		}
		if u.Path != path {
			t.Errorf("unit %d path = %q, want %q", i, u.Path, path)
		}
	}
}

func TestReindex_NormalizesWhitespace(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.pdf", []byte("pdf bytes"))

	repo := &mockRepo{}
	extract := &mockExtractor{pages: map[string][]string{
		path: {"  the \n\n quadratic \t formula   solves equations  "},
	}}
	svc := New(repo, extract, &mockBatchEmbedder{}, dir, zap.NewNop())

	if err := svc.Reindex(context.Background()); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	units := repo.replaced["notes.pdf"]
	if len(units) != 1 {
		t.Fatalf("indexed %d units, want 1", len(units))
	}
	want := "the quadratic formula solves equations"
	if units[0].Text != want {
		t.Errorf("text = %q, want %q", units[0].Text, want)
	}
}

func TestReindex_SecondRunPerformsNoWrites(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "calc.pdf", []byte("pdf bytes"))

	repo := &mockRepo{}
	extract := &mockExtractor{pages: map[string][]string{path: {longText}}}
	embed := &mockBatchEmbedder{}
	svc := New(repo, extract, embed, dir, zap.NewNop())

	if err := svc.Reindex(context.Background()); err != nil {
		t.Fatalf("first Reindex: %v", err)
	}
	if len(repo.calls) != 1 {
		t.Fatalf("first run made %d replacements, want 1", len(repo.calls))
	}

	if err := svc.Reindex(context.Background()); err != nil {
		t.Fatalf("second Reindex: %v", err)
	}
	if len(repo.calls) != 1 {
		t.Errorf("second run made %d extra replacements, want 0", len(repo.calls)-1)
	}
	if embed.calls != 1 {
		t.Errorf("second run re-embedded unchanged content (%d embed calls)", embed.calls)
	}
}

func TestReindex_OneFailureDoesNotAbortOthers(t *testing.T) {
	dir := t.TempDir()
	badPath := writeFile(t, dir, "bad.pdf", []byte("corrupt"))
	goodPath := writeFile(t, dir, "good.pdf", []byte("fine"))

	repo := &mockRepo{}
	extract := &mockExtractor{
		pages: map[string][]string{goodPath: {longText}},
		errs:  map[string]error{badPath: errors.New("malformed xref table")},
	}
	svc := New(repo, extract, &mockBatchEmbedder{}, dir, zap.NewNop())

	if err := svc.Reindex(context.Background()); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	if _, ok := repo.replaced["good.pdf"]; !ok {
		t.Error("good.pdf was not indexed after bad.pdf failed")
	}
	if _, ok := repo.replaced["bad.pdf"]; ok {
		t.Error("bad.pdf should not have been written")
	}
}

func TestReindex_EmbeddingFailureLeavesOldUnitsIntact(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "calc.pdf", []byte("revised"))

	// calc.pdf is already indexed under an older fingerprint.
	repo := &mockRepo{fingerprints: map[string]string{"calc.pdf": "old-fingerprint"}}
	extract := &mockExtractor{pages: map[string][]string{path: {longText}}}
	embed := &mockBatchEmbedder{err: errors.New("api down")}
	svc := New(repo, extract, embed, dir, zap.NewNop())

	if err := svc.Reindex(context.Background()); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	// Embedding happens before any deletion, so the replacement is never issued.
	if len(repo.calls) != 0 {
		t.Errorf("replacement issued despite embedding failure (%d calls)", len(repo.calls))
	}
}

func TestReindex_DocumentWithNoQualifyingPagesClearsIndex(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scans.pdf", []byte("image-only pdf"))

	repo := &mockRepo{fingerprints: map[string]string{"scans.pdf": "old"}}
	extract := &mockExtractor{pages: map[string][]string{path: {"", "  ", "tiny"}}}
	embed := &mockBatchEmbedder{}
	svc := New(repo, extract, embed, dir, zap.NewNop())

	if err := svc.Reindex(context.Background()); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	if embed.calls != 0 {
		t.Errorf("embedder called %d times for zero qualifying pages", embed.calls)
	}
	// The replacement still runs with an empty unit set to drop stale pages.
	if len(repo.calls) != 1 {
		t.Fatalf("got %d replacement calls, want 1", len(repo.calls))
	}
	if units := repo.replaced["scans.pdf"]; len(units) != 0 {
		t.Errorf("expected empty replacement, got %d units", len(units))
	}
}

func TestReindex_MinPageCharsOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "short.pdf", []byte("pdf"))

	repo := &mockRepo{}
	extract := &mockExtractor{pages: map[string][]string{path: {"seven ch"}}}
	svc := New(repo, extract, &mockBatchEmbedder{}, dir, zap.NewNop()).WithMinPageChars(5)

	if err := svc.Reindex(context.Background()); err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if len(repo.replaced["short.pdf"]) != 1 {
		t.Errorf("lowered threshold did not keep the short page")
	}
}
