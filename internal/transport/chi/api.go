package chi

import "time"

// ErrorCode is a machine-readable error code in error responses.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest          ErrorCode = "bad_request"
	ErrorCodeUnauthorized        ErrorCode = "unauthorized"
	ErrorCodeInvalidTenant       ErrorCode = "invalid_tenant"
	ErrorCodeValidationFailed    ErrorCode = "validation_failed"
	ErrorCodeVectorDimMismatch   ErrorCode = "vector_dim_mismatch"
	ErrorCodeRateLimited         ErrorCode = "rate_limited"
	ErrorCodeProviderUnavailable ErrorCode = "provider_unavailable"
	ErrorCodeTimeout             ErrorCode = "timeout"
	ErrorCodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// RetrieveRequest is the body of POST /v1/tenants/{tenant}/retrieve.
type RetrieveRequest struct {
	Embedding         []float32 `json:"embedding"`
	Category          string    `json:"category,omitempty"`
	PinnedSourceRfpID string    `json:"pinned_source_rfp_id,omitempty"`
	Depth             string    `json:"depth,omitempty"`
}

// RetrieveResponse carries the ranked context for one question.
type RetrieveResponse struct {
	Results   []RankedResult `json:"results"`
	Stats     RetrievalStats `json:"stats"`
	Available bool           `json:"available"`
	Depth     string         `json:"depth"`
}

// RankedResult is one sanitized chunk.
type RankedResult struct {
	ID             string         `json:"id"`
	Text           string         `json:"text"`
	Source         string         `json:"source"`
	Similarity     float64        `json:"similarity"`
	CompositeScore float64        `json:"composite_score"`
	Metadata       ResultMetadata `json:"metadata"`
	ScoreBreakdown ScoreBreakdown `json:"score_breakdown"`
}

// ResultMetadata is the whitelisted metadata of a result.
type ResultMetadata struct {
	DocumentID      string     `json:"document_id,omitempty"`
	TenantID        string     `json:"tenant_id"`
	Category        string     `json:"category,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	DocumentPurpose string     `json:"document_purpose,omitempty"`
	RfpID           string     `json:"rfp_id,omitempty"`
	Source          string     `json:"source"`
}

// ScoreBreakdown explains a composite score.
type ScoreBreakdown struct {
	Semantic      float64 `json:"semantic"`
	Outcome       float64 `json:"outcome"`
	Recency       float64 `json:"recency"`
	Quality       float64 `json:"quality"`
	SourceBoost   float64 `json:"source_boost"`
	CategoryBoost float64 `json:"category_boost"`
}

// RetrievalStats are per-call counters. They never name a tenant.
type RetrievalStats struct {
	Total          int `json:"total"`
	Pinned         int `json:"pinned"`
	Support        int `json:"support"`
	Historical     int `json:"historical"`
	ForeignDropped int `json:"foreign_dropped"`
	Deduplicated   int `json:"deduplicated"`
	Redacted       int `json:"redacted"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}
