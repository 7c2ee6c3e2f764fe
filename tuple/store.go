package tuple

import (
	"context"
	"errors"

	"github.com/xraph/lattice/id"
)

// ErrNotFound is returned by Store implementations when a tuple ID does not
// resolve to a live tuple. The root package re-exports it as
// ErrTupleNotFound; store backends must not import the root package.
var ErrNotFound = errors.New("tuple not found")

// Store defines persistence operations for relationship tuples.
//
// Implementations index both (subject_type, subject_id, zone_id) and
// (object_type, object_id, zone_id) so both directions of a graph
// traversal are efficient, and filter expired tuples out of every read.
type Store interface {
	// CreateTuple persists a new relationship tuple.
	CreateTuple(ctx context.Context, t *Tuple) error

	// CreateTuples persists a batch of tuples in one or few storage calls.
	CreateTuples(ctx context.Context, tuples []*Tuple) error

	// GetTuple returns a tuple by ID.
	GetTuple(ctx context.Context, tupleID id.TupleID) (*Tuple, error)

	// DeleteTuple removes a tuple by ID. Reports whether a row was removed.
	DeleteTuple(ctx context.Context, tupleID id.TupleID) (bool, error)

	// ListTuples returns tuples matching the filter.
	ListTuples(ctx context.Context, filter *ListFilter) ([]*Tuple, error)

	// CountTuples returns the number of tuples matching the filter.
	CountTuples(ctx context.Context, filter *ListFilter) (int64, error)

	// ListSubjectEdges returns tuples where the given subject is on the
	// subject side with a relation in relations (any relation if empty).
	ListSubjectEdges(ctx context.Context, zoneID, subjectType, subjectID string, relations []string) ([]*Tuple, error)

	// ListObjectEdges returns tuples where the given object is on the
	// object side with a relation in relations (any relation if empty).
	ListObjectEdges(ctx context.Context, zoneID, objectType, objectID string, relations []string) ([]*Tuple, error)

	// HasTuple reports whether a live tuple exists for the exact quintuple.
	HasTuple(ctx context.Context, zoneID, subjectType, subjectID, relation, objectType, objectID string) (bool, error)

	// DeleteTuplesByObject removes all tuples referencing an object.
	DeleteTuplesByObject(ctx context.Context, zoneID, objectType, objectID string) error

	// DeleteTuplesBySubject removes all tuples referencing a subject.
	DeleteTuplesBySubject(ctx context.Context, zoneID, subjectType, subjectID string) error

	// DeleteTuplesByZone removes all tuples in a zone.
	DeleteTuplesByZone(ctx context.Context, zoneID string) error
}
