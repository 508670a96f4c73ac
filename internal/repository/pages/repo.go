// Package pages persists page units in a Redis FT index keyed by collection
// name. One hash per page unit, one vector index over all of them.
package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mkraev/mathnotes/internal/db"
	"github.com/mkraev/mathnotes/internal/domain"
)

// store is the consumer interface for page units (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGet(ctx context.Context, key, field string) (string, error)
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo stores and searches page units.
type Repo struct {
	store      store
	collection string
	vectorDim  int
}

// New creates a page-unit repository for the given collection.
func New(s store, collection string, vectorDim int) *Repo {
	return &Repo{store: s, collection: collection, vectorDim: vectorDim}
}

func (r *Repo) keyPrefix() string {
	return "mathnotes:" + r.collection + ":page:"
}

func (r *Repo) indexName() string {
	return "mathnotes_" + r.collection
}

func (r *Repo) unitKey(doc string, page int) string {
	return fmt.Sprintf("%s%s_p%d", r.keyPrefix(), doc, page)
}

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("probe index %s: %w", r.indexName(), err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     r.indexName(),
		Prefixes: []string{r.keyPrefix()},
		Fields: []db.IndexField{
			{Name: "doc", Type: db.IndexFieldTag},
			{Name: "page", Type: db.IndexFieldNumeric},
			{Name: "text", Type: db.IndexFieldText},
			{
				Name:           "vector",
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorFlat,
				VectorDim:      r.vectorDim,
				VectorDistance: db.DistanceCosine,
			},
		},
	}

	// A concurrent creator can still win the race between the probe and
	// FT.CREATE; that outcome is fine.
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.indexName(), err)
	}
	return nil
}

// ReplaceDocument atomically swaps all page units of a document: existing
// units are deleted and the staged ones inserted in one call, under whatever
// serialization the caller provides. Passing no units just deletes.
func (r *Repo) ReplaceDocument(ctx context.Context, doc string, units []domain.PageUnit) error {
	old, err := r.docKeys(ctx, doc)
	if err != nil {
		return fmt.Errorf("list keys for %s: %w", doc, err)
	}
	if err := r.store.DelMulti(ctx, old); err != nil {
		return fmt.Errorf("delete units for %s: %w", doc, err)
	}

	if len(units) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(units))
	for i, u := range units {
		items[i] = db.HashSetItem{
			Key:    r.keyPrefix() + u.ID(),
			Fields: buildHashFields(u),
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("insert units for %s: %w", doc, err)
	}
	return nil
}

// Fingerprints returns the recorded content fingerprint per indexed document,
// read from the metadata of its page units. Documents persist only through
// their units; there is no separate document store.
func (r *Repo) Fingerprints(ctx context.Context) (map[string]string, error) {
	keys, err := r.store.Scan(ctx, r.keyPrefix()+"*")
	if err != nil {
		return nil, fmt.Errorf("scan page units: %w", err)
	}

	out := make(map[string]string)
	for _, key := range keys {
		doc, ok := r.docFromKey(key)
		if !ok {
			continue
		}
		if _, seen := out[doc]; seen {
			continue
		}
		fp, err := r.store.HGet(ctx, key, "fingerprint")
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				continue
			}
			return nil, fmt.Errorf("read fingerprint %s: %w", key, err)
		}
		out[doc] = fp
	}
	return out, nil
}

// SearchKNN returns the k most similar page units by cosine similarity.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, k int) ([]domain.PageHit, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"doc", "page", "path"},
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.indexName(), err)
	}

	hits := make([]domain.PageHit, 0, len(res.Entries))
	for _, e := range res.Entries {
		ref, ok := parseRef(e.Fields)
		if !ok {
			continue
		}
		hits = append(hits, domain.PageHit{Ref: ref, Score: e.Score})
	}
	return hits, nil
}

// Count returns the number of page units in the collection.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.indexName(), err)
	}
	return n, nil
}

// docKeys lists the stored keys of a document's page units.
func (r *Repo) docKeys(ctx context.Context, doc string) ([]string, error) {
	return r.store.Scan(ctx, r.keyPrefix()+escapeGlob(doc)+"_p*")
}

// docFromKey extracts the document name from a unit key
// ("<prefix><doc>_p<page>").
func (r *Repo) docFromKey(key string) (string, bool) {
	id := strings.TrimPrefix(key, r.keyPrefix())
	if id == key {
		return "", false
	}
	i := strings.LastIndex(id, "_p")
	if i <= 0 {
		return "", false
	}
	return id[:i], true
}

// escapeGlob escapes SCAN MATCH metacharacters in a document name.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
