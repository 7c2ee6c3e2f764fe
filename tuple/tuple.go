// Package tuple defines the RelationshipTuple entity, the only persisted
// unit of grant/revoke in Lattice.
//
//	user:alice member-of group:developers        (zone z1)
//	group:developers owner-of path:/workspace    (zone z1)
//	path:/workspace/a parent-of path:/workspace  (zone z1)
package tuple

import (
	"time"

	"github.com/xraph/lattice/id"
)

// Tuple represents a single directed edge from a subject to an object.
// Tuples are never mutated in place; a relation change is a delete plus
// an insert. ZoneID is decided at write time by the zone validator, not
// supplied verbatim by callers.
type Tuple struct {
	ID          id.TupleID `json:"id" db:"id"`
	SubjectType string     `json:"subject_type" db:"subject_type"`
	SubjectID   string     `json:"subject_id" db:"subject_id"`
	Relation    string     `json:"relation" db:"relation"`
	ObjectType  string     `json:"object_type" db:"object_type"`
	ObjectID    string     `json:"object_id" db:"object_id"`
	ZoneID      string     `json:"zone_id" db:"zone_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" db:"expires_at"`
}

// Expired reports whether the tuple is logically absent at the given time.
// Every read path treats expired tuples as deleted without requiring an
// eager sweep.
func (t *Tuple) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

// ListFilter contains filters for listing relationship tuples.
type ListFilter struct {
	ZoneID      string `json:"zone_id,omitempty"`
	SubjectType string `json:"subject_type,omitempty"`
	SubjectID   string `json:"subject_id,omitempty"`
	Relation    string `json:"relation,omitempty"`
	ObjectType  string `json:"object_type,omitempty"`
	ObjectID    string `json:"object_id,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

// Matches reports whether the tuple satisfies every set field of the filter.
func (f *ListFilter) Matches(t *Tuple) bool {
	if f.ZoneID != "" && t.ZoneID != f.ZoneID {
		return false
	}
	if f.SubjectType != "" && t.SubjectType != f.SubjectType {
		return false
	}
	if f.SubjectID != "" && t.SubjectID != f.SubjectID {
		return false
	}
	if f.Relation != "" && t.Relation != f.Relation {
		return false
	}
	if f.ObjectType != "" && t.ObjectType != f.ObjectType {
		return false
	}
	if f.ObjectID != "" && t.ObjectID != f.ObjectID {
		return false
	}
	return true
}
