package source

// Source is the provenance tag of a ranked result.
type Source string

// Provenance tags.
const (
	// Pinned results come from the pinned sub-query.
	Pinned     Source = "pinned"
	Support    Source = "support"
	Historical Source = "historical"
)

// IsValid checks if the source is one of the known tags.
func (s Source) IsValid() bool {
	return s == Pinned || s == Support || s == Historical
}

// Priority orders sources when composite scores tie: pinned > historical > support.
func (s Source) Priority() int {
	switch s {
	case Pinned:
		return 3
	case Historical:
		return 2
	case Support:
		return 1
	default:
		return 0
	}
}
