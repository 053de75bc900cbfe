package db

import "errors"

// Sentinel errors for index operations.
var (
	// ErrInvalidQuery marks a query the driver refused before sending it.
	ErrInvalidQuery = errors.New("db: invalid query")
	// ErrRejected marks a request the backend refused for a non-transient reason.
	ErrRejected = errors.New("db: request rejected")
	// ErrClosed marks use of a closed store.
	ErrClosed = errors.New("db: store closed")
)

// Op names used for error context.
const (
	OpSearch = "FT.SEARCH"
	OpPing   = "PING"
	OpQuery  = "QUERY"
	OpStats  = "DESCRIBE_INDEX_STATS"
	OpSelect = "SELECT"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
