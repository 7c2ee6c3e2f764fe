package mongo

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
	ID              string     `grove:"id,pk"          bson:"_id"`
	ZoneID          string     `grove:"zone_id"        bson:"zone_id"`
	SubjectType     string     `grove:"subject_type"   bson:"subject_type"`
	SubjectID       string     `grove:"subject_id"     bson:"subject_id"`
	Relation        string     `grove:"relation"       bson:"relation"`
	ObjectType      string     `grove:"object_type"    bson:"object_type"`
	ObjectID        string     `grove:"object_id"      bson:"object_id"`
	ExpiresAt       *time.Time `grove:"expires_at"     bson:"expires_at,omitempty"`
	CreatedAt       time.Time  `grove:"created_at"     bson:"created_at"`
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
	ID              string    `grove:"id,pk"          bson:"_id"`
	IntID           int64     `grove:"int_id"         bson:"int_id"`
	ResourceType    string    `grove:"resource_type"  bson:"resource_type"`
	ResourceID      string    `grove:"resource_id"    bson:"resource_id"`
	ZoneID          string    `grove:"zone_id"        bson:"zone_id"`
	CreatedAt       time.Time `grove:"created_at"     bson:"created_at"`
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
