package retrieval

import (
	"math"
	"strings"
	"time"

	"github.com/kailas-cloud/rfprag/internal/domain/chunk"
	"github.com/kailas-cloud/rfprag/internal/domain/search/request"
	"github.com/kailas-cloud/rfprag/internal/domain/search/result"
	"github.com/kailas-cloud/rfprag/internal/domain/search/source"
)

// score computes the composite score of one match:
//
//	(wS*semantic + wO*outcome + wR*recency + wQ*quality) * sourceBoost * categoryBoost
func (p Policy) score(m *chunk.Match, src source.Source, category string, now time.Time) (float64, result.Breakdown) {
	md := m.Metadata()

	b := result.Breakdown{
		Semantic:      m.Score(),
		Outcome:       p.outcome(md),
		Recency:       p.recency(md.CreatedAt, now),
		Quality:       p.quality(md.QualityScore),
		SourceBoost:   p.sourceBoost(src),
		CategoryBoost: 1,
	}
	if category != request.DefaultCategory && md.Category != "" && strings.EqualFold(md.Category, category) {
		b.CategoryBoost = p.CategoryBoost
	}

	w := p.Weights
	weighted := w.Semantic*b.Semantic + w.Outcome*b.Outcome + w.Recency*b.Recency + w.Quality*b.Quality
	return weighted * b.SourceBoost * b.CategoryBoost, b
}

func (p Policy) outcome(md chunk.Metadata) float64 {
	if md.OutcomeScore != nil {
		return clamp01(*md.OutcomeScore)
	}
	switch strings.ToLower(md.RfpOutcome) {
	case "won":
		return p.OutcomeWon
	case "lost":
		return p.OutcomeLost
	default:
		return p.OutcomeUnknown
	}
}

func (p Policy) recency(createdAt, now time.Time) float64 {
	if createdAt.IsZero() {
		return p.NeutralRecency
	}
	ageDays := now.Sub(createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-math.Ln2 * ageDays / p.RecencyHalfLifeDays)
}

func (p Policy) quality(q *float64) float64 {
	v := p.DefaultQuality
	if q != nil {
		v = *q
	}
	return clamp01(v / 100)
}

// clamp01 bounds v to [0, 1] and maps NaN to 0.
func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
