package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/lattice/id"
	"github.com/xraph/lattice/resourceid"
	"github.com/xraph/lattice/tuple"
)

// ──────────────────────────────────────────────────
// Relationship tuple model
// ──────────────────────────────────────────────────

type tupleModel struct {
	grove.BaseModel `grove:"table:lattice_tuples"`
	ID              string     `grove:"id,pk"`
	ZoneID          string     `grove:"zone_id,notnull"`
	SubjectType     string     `grove:"subject_type,notnull"`
	SubjectID       string     `grove:"subject_id,notnull"`
	Relation        string     `grove:"relation,notnull"`
	ObjectType      string     `grove:"object_type,notnull"`
	ObjectID        string     `grove:"object_id,notnull"`
	ExpiresAt       *time.Time `grove:"expires_at"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
}

func tupleToModel(t *tuple.Tuple) *tupleModel {
	return &tupleModel{
		ID:          t.ID.String(),
		ZoneID:      t.ZoneID,
		SubjectType: t.SubjectType,
		SubjectID:   t.SubjectID,
		Relation:    t.Relation,
		ObjectType:  t.ObjectType,
		ObjectID:    t.ObjectID,
		ExpiresAt:   t.ExpiresAt,
		CreatedAt:   t.CreatedAt,
	}
}

func tupleFromModel(m *tupleModel) *tuple.Tuple {
	tid, _ := id.ParseTupleID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &tuple.Tuple{
		ID:          tid,
		ZoneID:      m.ZoneID,
		SubjectType: m.SubjectType,
		SubjectID:   m.SubjectID,
		Relation:    m.Relation,
		ObjectType:  m.ObjectType,
		ObjectID:    m.ObjectID,
		ExpiresAt:   m.ExpiresAt,
		CreatedAt:   m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Resource int-id mapping model
// ──────────────────────────────────────────────────

type resourceMappingModel struct {
	grove.BaseModel `grove:"table:lattice_resource_ids"`
	ID              string    `grove:"id,pk"`
	IntID           int64     `grove:"int_id,notnull"`
	ResourceType    string    `grove:"resource_type,notnull"`
	ResourceID      string    `grove:"resource_id,notnull"`
	ZoneID          string    `grove:"zone_id,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func mappingFromModel(m *resourceMappingModel) *resourceid.Mapping {
	rid, _ := id.ParseResourceID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &resourceid.Mapping{
		ID:           rid,
		IntID:        uint32(m.IntID),
		ResourceType: m.ResourceType,
		ResourceID:   m.ResourceID,
		ZoneID:       m.ZoneID,
		CreatedAt:    m.CreatedAt,
	}
}
