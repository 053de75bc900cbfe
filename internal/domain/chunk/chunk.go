package chunk

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Metadata keys as stored in the vector index.
const (
	KeyDocumentID      = "documentId"
	KeyTenantID        = "tenant_id"
	KeyCategory        = "category"
	KeyText            = "text"
	KeyCreatedAt       = "createdAt"
	KeyDocumentPurpose = "documentPurpose"
	KeyIsPinned        = "isPinned"
	KeyRfpID           = "rfpId"
	KeyIsHistoricalRfp = "isHistoricalRfp"
	KeyQualityScore    = "qualityScore"
	KeyOutcomeScore    = "outcomeScore"
	KeyRfpOutcome      = "rfpOutcome"
	KeyChunkIndex      = "chunkIndex"
)

// Keys lists every metadata key the index is asked to return.
func Keys() []string {
	return []string{
		KeyDocumentID, KeyTenantID, KeyCategory, KeyText, KeyCreatedAt,
		KeyDocumentPurpose, KeyIsPinned, KeyRfpID, KeyIsHistoricalRfp,
		KeyQualityScore, KeyOutcomeScore, KeyRfpOutcome, KeyChunkIndex,
	}
}

// Purpose is the role a document plays in the corpus.
type Purpose string

// Document purposes.
const (
	PurposeSupport     Purpose = "rfp_support"
	PurposeResponse    Purpose = "rfp_response"
	PurposeCompanyInfo Purpose = "company_info"
)

// IsValid reports whether p is a known purpose.
func (p Purpose) IsValid() bool {
	return p == PurposeSupport || p == PurposeResponse || p == PurposeCompanyInfo
}

// Metadata is the typed view of a match's metadata.
// Keys the index returns that are not modelled here end up in Quarantine
// and never leave the retrieval pipeline.
type Metadata struct {
	DocumentID    string
	TenantID      string
	Category      string
	Text          string
	CreatedAt     time.Time // zero when unknown
	Purpose       Purpose
	Pinned        bool
	RfpID         string
	HistoricalRfp bool
	QualityScore  *float64 // 0-100
	OutcomeScore  *float64 // 0-1
	RfpOutcome    string
	ChunkIndex    int
	Quarantine    map[string]string
}

// Match is a single hit returned by the vector index.
type Match struct {
	id       string
	score    float64
	metadata Metadata
}

// New creates a match. score is clamped to [0, 1]; NaN becomes 0.
func New(id string, score float64, md Metadata) Match {
	switch {
	case math.IsNaN(score), score < 0:
		score = 0
	case score > 1:
		score = 1
	}
	return Match{id: id, score: score, metadata: md}
}

// FromFields builds a match from flat string fields as returned by the index drivers.
func FromFields(id string, score float64, fields map[string]string) Match {
	return New(id, score, ParseMetadata(fields))
}

// ID returns the chunk identifier.
func (m *Match) ID() string { return m.id }

// Score returns the similarity score.
func (m *Match) Score() float64 { return m.score }

// Metadata returns the typed metadata.
func (m *Match) Metadata() Metadata { return m.metadata }

// ParseMetadata converts flat index fields into typed metadata.
func ParseMetadata(fields map[string]string) Metadata {
	var md Metadata
	for k, v := range fields {
		switch k {
		case KeyDocumentID:
			md.DocumentID = v
		case KeyTenantID:
			md.TenantID = v
		case KeyCategory:
			md.Category = v
		case KeyText:
			md.Text = v
		case KeyCreatedAt:
			md.CreatedAt = parseTime(v)
		case KeyDocumentPurpose:
			md.Purpose = Purpose(v)
		case KeyIsPinned:
			md.Pinned = parseBool(v)
		case KeyRfpID:
			md.RfpID = v
		case KeyIsHistoricalRfp:
			md.HistoricalRfp = parseBool(v)
		case KeyQualityScore:
			md.QualityScore = parseFloat(v)
		case KeyOutcomeScore:
			md.OutcomeScore = parseFloat(v)
		case KeyRfpOutcome:
			md.RfpOutcome = v
		case KeyChunkIndex:
			if n, err := strconv.Atoi(v); err == nil {
				md.ChunkIndex = n
			}
		default:
			if md.Quarantine == nil {
				md.Quarantine = make(map[string]string)
			}
			md.Quarantine[k] = v
		}
	}
	return md
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

func parseFloat(v string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// parseTime accepts RFC 3339 timestamps, plain dates and unix milliseconds.
func parseTime(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}
