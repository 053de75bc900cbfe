package pinecone

import (
	"context"
	"math"

	"github.com/kailas-cloud/rfprag/internal/db"
	"github.com/kailas-cloud/rfprag/internal/domain/search/filter"
)

type queryRequest struct {
	Namespace       string         `json:"namespace,omitempty"`
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	IncludeMetadata bool           `json:"includeMetadata"`
	IncludeValues   bool           `json:"includeValues"`
	Filter          map[string]any `json:"filter,omitempty"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
	Namespace string `json:"namespace"`
}

// SearchKNN runs a filtered similarity query.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var resp queryResponse
	err := s.post(ctx, db.OpQuery, "/query", queryRequest{
		Namespace:       q.IndexName,
		Vector:          q.Vector,
		TopK:            q.K,
		IncludeMetadata: true,
		Filter:          renderFilter(q.Filters),
	}, &resp)
	if err != nil {
		return nil, err
	}

	entries := make([]db.SearchEntry, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		entries = append(entries, db.SearchEntry{
			Key:    m.ID,
			Score:  math.Max(0, math.Min(1, m.Score)),
			Fields: db.ProjectFields(db.FlattenFields(m.Metadata), q.ReturnFields),
		})
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// renderFilter translates filter.Expression into Pinecone's metadata filter
// language using $eq, $ne and $or only. Clauses over distinct keys are merged
// into one object; overlapping keys fall back to $and.
func renderFilter(expr filter.Expression) map[string]any {
	if expr.IsEmpty() {
		return nil
	}

	var clauses []map[string]any
	for _, c := range expr.Must() {
		clauses = append(clauses, map[string]any{c.Key(): map[string]any{"$eq": c.Match()}})
	}
	if len(expr.Should()) > 0 {
		or := make([]map[string]any, 0, len(expr.Should()))
		for _, c := range expr.Should() {
			or = append(or, map[string]any{c.Key(): map[string]any{"$eq": c.Match()}})
		}
		clauses = append(clauses, map[string]any{"$or": or})
	}
	for _, c := range expr.MustNot() {
		clauses = append(clauses, map[string]any{c.Key(): map[string]any{"$ne": c.Match()}})
	}

	if len(clauses) == 1 {
		return clauses[0]
	}

	merged := make(map[string]any, len(clauses))
	for _, cl := range clauses {
		for k, v := range cl {
			if _, dup := merged[k]; dup {
				return map[string]any{"$and": clauses}
			}
			merged[k] = v
		}
	}
	return merged
}
