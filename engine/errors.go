package engine

import "errors"

var (
	// ErrNotFound reports a referenced user, ticker or order that does not
	// exist. Recoverable: the caller rejected one request, nothing else.
	ErrNotFound = errors.New("not found")

	// ErrInconsistency reports a violated internal invariant, such as a
	// book order missing from its expected price level or a ledger volume
	// diverging from the book. It marks a bug in the orchestration, not bad
	// input, and is surfaced per-operation so one bad order cannot corrupt
	// unrelated books.
	ErrInconsistency = errors.New("book inconsistency")

	// ErrInvalidOrder reports an order with a non-positive price or volume.
	ErrInvalidOrder = errors.New("invalid order")
)
