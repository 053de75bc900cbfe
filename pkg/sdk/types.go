package rfprag

import "time"

// Depth controls how many candidates are considered and returned.
type Depth string

// Depth constants.
const (
	DepthBasic         Depth = "basic"         // 5
	DepthDetailed      Depth = "detailed"      // 10, the default
	DepthComprehensive Depth = "comprehensive" // 20
)

// Source is the provenance of a result.
type Source string

// Source constants.
const (
	SourcePinned     Source = "pinned"
	SourceSupport    Source = "support"
	SourceHistorical Source = "historical"
)

// Result is one ranked, sanitized chunk.
type Result struct {
	ID              string
	Text            string
	Source          Source
	Similarity      float64
	CompositeScore  float64
	DocumentID      string
	TenantID        string
	Category        string
	CreatedAt       time.Time // zero when unknown
	DocumentPurpose string
	RfpID           string
	Breakdown       ScoreBreakdown
}

// ScoreBreakdown explains a composite score.
type ScoreBreakdown struct {
	Semantic      float64
	Outcome       float64
	Recency       float64
	Quality       float64
	SourceBoost   float64
	CategoryBoost float64
}

// Stats are per-call counters.
type Stats struct {
	Total          int
	Pinned         int
	Support        int
	Historical     int
	ForeignDropped int
	Deduplicated   int
	Redacted       int
}

// Retrieval is the answer to one Retrieve call.
type Retrieval struct {
	Results []Result
	Stats   Stats
	// Available reports whether any result scored above the availability threshold.
	Available bool
	Depth     Depth
}

// RetrieveOption tunes a single Retrieve call.
type RetrieveOption func(*retrieveOptions)

type retrieveOptions struct {
	pinnedRfpID string
	depth       Depth
}

// PinnedTo runs the pinned sub-query for chunks of the given RFP.
func PinnedTo(rfpID string) RetrieveOption {
	return func(o *retrieveOptions) { o.pinnedRfpID = rfpID }
}

// AtDepth sets the retrieval depth.
func AtDepth(d Depth) RetrieveOption {
	return func(o *retrieveOptions) { o.depth = d }
}
