package result

import (
	"time"

	"github.com/kailas-cloud/rfprag/internal/domain/search/source"
)

// Metadata is the sanitized, caller-facing view of a chunk's metadata.
// It carries only whitelisted fields.
type Metadata struct {
	DocumentID      string
	TenantID        string
	Category        string
	Text            string
	CreatedAt       time.Time
	DocumentPurpose string
	RfpID           string
	Source          source.Source
}

// Breakdown holds the individual signals the composite score was built from.
type Breakdown struct {
	Semantic      float64
	Outcome       float64
	Recency       float64
	Quality       float64
	SourceBoost   float64
	CategoryBoost float64
}

// Ranked is a single retrieval result after scoring and sanitization.
type Ranked struct {
	id         string
	similarity float64
	composite  float64
	source     source.Source
	metadata   Metadata
	breakdown  Breakdown
}

// New creates a ranked result.
func New(
	id string, similarity, composite float64,
	src source.Source, md Metadata, b Breakdown,
) Ranked {
	md.Source = src
	return Ranked{
		id: id, similarity: similarity, composite: composite,
		source: src, metadata: md, breakdown: b,
	}
}

// ID returns the chunk identifier.
func (r *Ranked) ID() string { return r.id }

// Text returns the chunk text.
func (r *Ranked) Text() string { return r.metadata.Text }

// Source returns the provenance tag.
func (r *Ranked) Source() source.Source { return r.source }

// Similarity returns the raw similarity reported by the index.
func (r *Ranked) Similarity() float64 { return r.similarity }

// CompositeScore returns the final ranking score.
func (r *Ranked) CompositeScore() float64 { return r.composite }

// Metadata returns the sanitized metadata.
func (r *Ranked) Metadata() Metadata { return r.metadata }

// Breakdown returns the scoring signals.
func (r *Ranked) Breakdown() Breakdown { return r.breakdown }

// WithMetadata returns a copy of r carrying md. The source tag is preserved.
func (r Ranked) WithMetadata(md Metadata) Ranked {
	md.Source = r.source
	r.metadata = md
	return r
}

// Group is a set of results that belong to one document.
type Group struct {
	DocumentID string
	Results    []Ranked
}

// GroupByDocument groups results by document id, preserving ranking order both
// across groups (by best result) and within each group.
func GroupByDocument(results []Ranked) []Group {
	idx := make(map[string]int)
	var groups []Group
	for _, r := range results {
		doc := r.metadata.DocumentID
		i, ok := idx[doc]
		if !ok {
			i = len(groups)
			idx[doc] = i
			groups = append(groups, Group{DocumentID: doc})
		}
		groups[i].Results = append(groups[i].Results, r)
	}
	return groups
}

// Available reports whether the best result reaches the availability threshold.
func Available(results []Ranked, threshold float64) bool {
	for _, r := range results {
		if r.composite >= threshold {
			return true
		}
	}
	return false
}

// Stats summarizes one retrieval call.
type Stats struct {
	Total          int
	Pinned         int
	Support        int
	Historical     int
	ForeignDropped int
	Deduplicated   int
	Redacted       int
}

// Count fills the per-source counters from results.
func (s *Stats) Count(results []Ranked) {
	s.Total = len(results)
	s.Pinned, s.Support, s.Historical = 0, 0, 0
	for _, r := range results {
		switch r.source {
		case source.Pinned:
			s.Pinned++
		case source.Support:
			s.Support++
		case source.Historical:
			s.Historical++
		}
	}
}
