package lattice

import (
	"errors"
	"fmt"

	"github.com/xraph/lattice/tuple"
)

var (
	// ErrAccessDenied is returned by Enforce when a check is denied.
	ErrAccessDenied = errors.New("lattice: access denied")

	// ErrTupleNotFound is returned when operating on a missing tuple ID.
	// It re-exports tuple.ErrNotFound, the sentinel the store backends
	// return, so errors.Is matches against either name.
	ErrTupleNotFound = tuple.ErrNotFound

	// ErrZoneIsolation is the sentinel every *ZoneIsolationError unwraps to.
	ErrZoneIsolation = errors.New("lattice: cross-zone write rejected")

	// ErrInvalidRequest is returned for malformed input (empty identifiers).
	ErrInvalidRequest = errors.New("lattice: invalid request")

	// ErrBackendUnavailable wraps storage and distributed-cache I/O failures.
	ErrBackendUnavailable = errors.New("lattice: backend unavailable")

	// ErrGraphDepthExceeded is returned internally when a traversal hits its
	// depth bound. The engine absorbs it as a deny: depth exhaustion on a
	// deep but permission-less graph is indistinguishable from a cycle and
	// must not leak that distinction to callers.
	ErrGraphDepthExceeded = errors.New("lattice: relation graph depth exceeded")
)

// ZoneIsolationError reports a rejected cross-zone write. It carries the
// resolved subject and object zones for diagnostics and unwraps to
// ErrZoneIsolation.
type ZoneIsolationError struct {
	SubjectZone string
	ObjectZone  string
	Relation    string
}

// Error implements the error interface.
func (e *ZoneIsolationError) Error() string {
	return fmt.Sprintf("lattice: relation %q cannot cross zones (subject zone %q, object zone %q)",
		e.Relation, e.SubjectZone, e.ObjectZone)
}

// Is reports true for ErrZoneIsolation so errors.Is works against the sentinel.
func (e *ZoneIsolationError) Is(target error) bool { return target == ErrZoneIsolation }
