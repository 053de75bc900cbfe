package chunk

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/rfprag/internal/db"
	domchunk "github.com/kailas-cloud/rfprag/internal/domain/chunk"
	"github.com/kailas-cloud/rfprag/internal/domain/search/filter"
)

// store is the consumer interface for chunk queries (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements usecase/retrieval.VectorIndex over a db.Store.
type Repo struct {
	store     store
	indexName string
	keyPrefix string
}

// New creates a chunk repository bound to one index. For names of the form
// "<prefix>:idx" the "<prefix>:" part is stripped from hit keys.
func New(s store, indexName string) *Repo {
	return &Repo{
		store:     s,
		indexName: indexName,
		keyPrefix: keyPrefixOf(indexName),
	}
}

// Query runs a filtered similarity search and decodes the hits.
func (r *Repo) Query(ctx context.Context, vector []float32, filters filter.Expression, topK int) ([]domchunk.Match, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName,
		Filters:      filters,
		Vector:       vector,
		K:            topK,
		ReturnFields: domchunk.Keys(),
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.indexName, err)
	}

	return r.parse(sr), nil
}

func (r *Repo) parse(sr *db.SearchResult) []domchunk.Match {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	matches := make([]domchunk.Match, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := entry.Key
		if r.keyPrefix != "" {
			id = strings.TrimPrefix(id, r.keyPrefix)
		}
		matches = append(matches, domchunk.FromFields(id, entry.Score, entry.Fields))
	}
	return matches
}

func keyPrefixOf(indexName string) string {
	if base, ok := strings.CutSuffix(indexName, ":idx"); ok && base != "" {
		return base + ":"
	}
	return ""
}
