package depth

// Depth controls how many candidates each sub-query asks the index for.
type Depth string

// Retrieval depths.
const (
	Basic         Depth = "basic"
	Detailed      Depth = "detailed"
	Comprehensive Depth = "comprehensive"
)

// IsValid checks if the depth is one of the supported values.
func (d Depth) IsValid() bool {
	return d == Basic || d == Detailed || d == Comprehensive
}

// TopK returns the per-sub-query candidate count, which is also the final result cap.
func (d Depth) TopK() int {
	switch d {
	case Basic:
		return 5
	case Comprehensive:
		return 20
	default:
		return 10
	}
}
