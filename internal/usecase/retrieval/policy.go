package retrieval

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/rfprag/internal/domain/search/source"
)

// Weights are the per-signal weights of the composite score.
type Weights struct {
	Semantic float64
	Outcome  float64
	Recency  float64
	Quality  float64
}

// SourceBoosts multiply the weighted score by provenance.
type SourceBoosts struct {
	Pinned     float64
	Support    float64
	Historical float64
}

// Policy holds every tunable of the ranking engine.
type Policy struct {
	Weights     Weights
	SourceBoost SourceBoosts
	// CategoryBoost applies when a chunk's category equals a non-general request category.
	CategoryBoost float64
	// RecencyHalfLifeDays is the age at which the recency signal halves.
	RecencyHalfLifeDays float64
	// NeutralRecency is used for chunks without a creation date.
	NeutralRecency float64
	// DefaultQuality is the 0-100 quality assumed when a chunk has none.
	DefaultQuality float64
	// Outcome signal values by rfpOutcome when no explicit outcome score exists.
	OutcomeWon     float64
	OutcomeLost    float64
	OutcomeUnknown float64
	// AvailabilityThreshold is the composite score a result needs for the
	// "enough context" decision. It does not filter results.
	AvailabilityThreshold float64
}

// DefaultPolicy returns the production defaults.
func DefaultPolicy() Policy {
	return Policy{
		Weights:               Weights{Semantic: 0.40, Outcome: 0.25, Recency: 0.15, Quality: 0.20},
		SourceBoost:           SourceBoosts{Pinned: 1.5, Support: 1.2, Historical: 1.0},
		CategoryBoost:         1.1,
		RecencyHalfLifeDays:   180,
		NeutralRecency:        0.5,
		DefaultQuality:        70,
		OutcomeWon:            1.0,
		OutcomeLost:           0.3,
		OutcomeUnknown:        0.5,
		AvailabilityThreshold: 0.4,
	}
}

// Validate checks the policy is usable.
func (p Policy) Validate() error {
	w := p.Weights
	if w.Semantic < 0 || w.Outcome < 0 || w.Recency < 0 || w.Quality < 0 {
		return errors.New("weights must be non-negative")
	}
	if w.Semantic+w.Outcome+w.Recency+w.Quality <= 0 {
		return errors.New("weights must have a positive sum")
	}
	b := p.SourceBoost
	if b.Pinned <= 0 || b.Support <= 0 || b.Historical <= 0 {
		return errors.New("source boosts must be positive")
	}
	if p.CategoryBoost <= 0 {
		return errors.New("category boost must be positive")
	}
	if p.RecencyHalfLifeDays <= 0 {
		return errors.New("recency half-life must be positive")
	}
	for name, v := range map[string]float64{
		"neutral recency":        p.NeutralRecency,
		"outcome won":            p.OutcomeWon,
		"outcome lost":           p.OutcomeLost,
		"outcome unknown":        p.OutcomeUnknown,
		"availability threshold": p.AvailabilityThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1]", name)
		}
	}
	if p.DefaultQuality < 0 || p.DefaultQuality > 100 {
		return errors.New("default quality must be within [0, 100]")
	}
	return nil
}

func (p Policy) sourceBoost(s source.Source) float64 {
	switch s {
	case source.Pinned:
		return p.SourceBoost.Pinned
	case source.Support:
		return p.SourceBoost.Support
	default:
		return p.SourceBoost.Historical
	}
}
