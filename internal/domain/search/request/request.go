package request

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/rfprag/internal/domain"
	"github.com/kailas-cloud/rfprag/internal/domain/search/depth"
)

// Request limits and defaults.
const (
	DefaultCategory   = "general"
	MaxCategoryLength = 128
	MaxRfpIDLength    = 256
	MaxDimensions     = 8192
)

// Options are the optional retrieval knobs.
type Options struct {
	PinnedSourceRfpID string
	Depth             depth.Depth
}

// Request is a validated retrieval query.
// The tenant id is carried verbatim; it is validated when the tenant filter is built.
type Request struct {
	embedding   []float32
	category    string
	tenantID    string
	pinnedRfpID string
	depth       depth.Depth
}

// New validates and normalizes retrieval parameters.
// Defaults: category=general, depth=detailed.
func New(embedding []float32, category, tenantID string, opts Options) (Request, error) {
	if len(embedding) == 0 {
		return Request{}, fmt.Errorf("%w: embedding is required", domain.ErrInvalidRequest)
	}
	if len(embedding) > MaxDimensions {
		return Request{}, fmt.Errorf("%w: embedding too long (max %d)", domain.ErrInvalidRequest, MaxDimensions)
	}
	for _, v := range embedding {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return Request{}, fmt.Errorf("%w: embedding contains non-finite values", domain.ErrInvalidRequest)
		}
	}

	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}
	if len(category) > MaxCategoryLength {
		return Request{}, fmt.Errorf("%w: category too long (max %d chars)", domain.ErrInvalidRequest, MaxCategoryLength)
	}

	pinned := strings.TrimSpace(opts.PinnedSourceRfpID)
	if len(pinned) > MaxRfpIDLength {
		return Request{}, fmt.Errorf("%w: pinned rfp id too long (max %d chars)", domain.ErrInvalidRequest, MaxRfpIDLength)
	}

	d := opts.Depth
	if d == "" {
		d = depth.Detailed
	}
	if !d.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid depth %q", domain.ErrInvalidRequest, d)
	}

	return Request{
		embedding:   embedding,
		category:    category,
		tenantID:    tenantID,
		pinnedRfpID: pinned,
		depth:       d,
	}, nil
}

// Embedding returns the query vector.
func (r *Request) Embedding() []float32 { return r.embedding }

// Category returns the topical hint.
func (r *Request) Category() string { return r.category }

// TenantID returns the tenant the request is scoped to.
func (r *Request) TenantID() string { return r.tenantID }

// PinnedSourceRfpID returns the pinned RFP id, empty when nothing is pinned.
func (r *Request) PinnedSourceRfpID() string { return r.pinnedRfpID }

// HasPinned reports whether a pinned sub-query should run.
func (r *Request) HasPinned() bool { return r.pinnedRfpID != "" }

// Depth returns the retrieval depth.
func (r *Request) Depth() depth.Depth { return r.depth }

// TopK returns the per-sub-query candidate count.
func (r *Request) TopK() int { return r.depth.TopK() }
