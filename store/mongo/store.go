// Package mongo provides a MongoDB implementation of the Lattice composite
// store backed by grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/lattice/id"
	"github.com/xraph/lattice/resourceid"
	"github.com/xraph/lattice/store"
	"github.com/xraph/lattice/tuple"
)

// Collection name constants.
const (
	colTuples      = "lattice_tuples"
	colResourceIDs = "lattice_resource_ids"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entities.
var errNotFound = fmt.Errorf("not found")

// Store is a MongoDB implementation of the composite Lattice store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all lattice collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("lattice/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// live extends a filter so expired tuples are excluded from reads.
func live(f bson.M) bson.M {
	f["$or"] = []bson.M{
		{"expires_at": bson.M{"$exists": false}},
		{"expires_at": nil},
		{"expires_at": bson.M{"$gt": now()}},
	}
	return f
}

// migrationIndexes returns the index definitions for all lattice collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colTuples: {
			{Keys: bson.D{{Key: "zone_id", Value: 1}, {Key: "subject_type", Value: 1}, {Key: "subject_id", Value: 1}, {Key: "relation", Value: 1}}},
			{Keys: bson.D{{Key: "zone_id", Value: 1}, {Key: "object_type", Value: 1}, {Key: "object_id", Value: 1}, {Key: "relation", Value: 1}}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		},
		colResourceIDs: {
			{
				Keys:    bson.D{{Key: "zone_id", Value: 1}, {Key: "resource_type", Value: 1}, {Key: "resource_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "zone_id", Value: 1}, {Key: "int_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}

// ──────────────────────────────────────────────────
// Tuple operations
// ──────────────────────────────────────────────────

func (s *Store) CreateTuple(ctx context.Context, t *tuple.Tuple) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}
	m := tupleToModel(t)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("lattice: create tuple: %w", err)
	}
	return nil
}

func (s *Store) CreateTuples(ctx context.Context, tuples []*tuple.Tuple) error {
	if len(tuples) == 0 {
		return nil
	}
	t := now()
	models := make([]tupleModel, len(tuples))
	for i, tt := range tuples {
		if tt.CreatedAt.IsZero() {
			tt.CreatedAt = t
		}
		models[i] = *tupleToModel(tt)
	}
	if _, err := s.mdb.NewInsert(&models).Exec(ctx); err != nil {
		return fmt.Errorf("lattice: create tuples: %w", err)
	}
	return nil
}

func (s *Store) GetTuple(ctx context.Context, tupleID id.TupleID) (*tuple.Tuple, error) {
	var m tupleModel
	err := s.mdb.NewFind(&m).
		Filter(live(bson.M{"_id": tupleID.String()})).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("tuple %s: %w", tupleID, tuple.ErrNotFound)
		}
		return nil, fmt.Errorf("lattice: get tuple: %w", err)
	}
	return tupleFromModel(&m), nil
}

func (s *Store) DeleteTuple(ctx context.Context, tupleID id.TupleID) (bool, error) {
	res, err := s.mdb.NewDelete((*tupleModel)(nil)).
		Filter(bson.M{"_id": tupleID.String()}).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("lattice: delete tuple: %w", err)
	}
	return res.DeletedCount() > 0, nil
}

func tupleFilter(filter *tuple.ListFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.ZoneID != "" {
		f["zone_id"] = filter.ZoneID
	}
	if filter.SubjectType != "" {
		f["subject_type"] = filter.SubjectType
	}
	if filter.SubjectID != "" {
		f["subject_id"] = filter.SubjectID
	}
	if filter.Relation != "" {
		f["relation"] = filter.Relation
	}
	if filter.ObjectType != "" {
		f["object_type"] = filter.ObjectType
	}
	if filter.ObjectID != "" {
		f["object_id"] = filter.ObjectID
	}
	return f
}

func (s *Store) ListTuples(ctx context.Context, filter *tuple.ListFilter) ([]*tuple.Tuple, error) {
	var models []tupleModel
	q := s.mdb.NewFind(&models).
		Filter(live(tupleFilter(filter))).
		Sort(bson.D{{Key: "_id", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("lattice: list tuples: %w", err)
	}
	result := make([]*tuple.Tuple, len(models))
	for i := range models {
		result[i] = tupleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountTuples(ctx context.Context, filter *tuple.ListFilter) (int64, error) {
	count, err := s.mdb.NewFind((*tupleModel)(nil)).
		Filter(live(tupleFilter(filter))).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("lattice: count tuples: %w", err)
	}
	return count, nil
}

func (s *Store) ListSubjectEdges(ctx context.Context, zoneID, subjectType, subjectID string, relations []string) ([]*tuple.Tuple, error) {
	f := bson.M{
		"zone_id":      zoneID,
		"subject_type": subjectType,
		"subject_id":   subjectID,
	}
	if len(relations) > 0 {
		f["relation"] = bson.M{"$in": relations}
	}
	var models []tupleModel
	if err := s.mdb.NewFind(&models).
		Filter(live(f)).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("lattice: list subject edges: %w", err)
	}
	result := make([]*tuple.Tuple, len(models))
	for i := range models {
		result[i] = tupleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) ListObjectEdges(ctx context.Context, zoneID, objectType, objectID string, relations []string) ([]*tuple.Tuple, error) {
	f := bson.M{
		"zone_id":     zoneID,
		"object_type": objectType,
		"object_id":   objectID,
	}
	if len(relations) > 0 {
		f["relation"] = bson.M{"$in": relations}
	}
	var models []tupleModel
	if err := s.mdb.NewFind(&models).
		Filter(live(f)).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("lattice: list object edges: %w", err)
	}
	result := make([]*tuple.Tuple, len(models))
	for i := range models {
		result[i] = tupleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) HasTuple(ctx context.Context, zoneID, subjectType, subjectID, relation, objectType, objectID string) (bool, error) {
	count, err := s.mdb.NewFind((*tupleModel)(nil)).
		Filter(live(bson.M{
			"zone_id":      zoneID,
			"subject_type": subjectType,
			"subject_id":   subjectID,
			"relation":     relation,
			"object_type":  objectType,
			"object_id":    objectID,
		})).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("lattice: has tuple: %w", err)
	}
	return count > 0, nil
}

func (s *Store) DeleteTuplesByObject(ctx context.Context, zoneID, objectType, objectID string) error {
	_, err := s.mdb.NewDelete((*tupleModel)(nil)).
		Filter(bson.M{"zone_id": zoneID, "object_type": objectType, "object_id": objectID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("lattice: delete tuples by object: %w", err)
	}
	return nil
}

func (s *Store) DeleteTuplesBySubject(ctx context.Context, zoneID, subjectType, subjectID string) error {
	_, err := s.mdb.NewDelete((*tupleModel)(nil)).
		Filter(bson.M{"zone_id": zoneID, "subject_type": subjectType, "subject_id": subjectID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("lattice: delete tuples by subject: %w", err)
	}
	return nil
}

func (s *Store) DeleteTuplesByZone(ctx context.Context, zoneID string) error {
	_, err := s.mdb.NewDelete((*tupleModel)(nil)).
		Filter(bson.M{"zone_id": zoneID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("lattice: delete tuples by zone: %w", err)
	}
	return nil
}

// DeleteExpiredTuples removes tuples whose expiry has passed.
func (s *Store) DeleteExpiredTuples(ctx context.Context, t time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*tupleModel)(nil)).
		Filter(bson.M{"expires_at": bson.M{"$ne": nil, "$lt": t}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("lattice: delete expired tuples: %w", err)
	}
	return res.DeletedCount(), nil
}

// ──────────────────────────────────────────────────
// Resource int-id operations
// ──────────────────────────────────────────────────

func (s *Store) EnsureResourceIntID(ctx context.Context, resourceType, resourceID, zoneID string) (uint32, error) {
	existing, ok, err := s.GetResourceIntID(ctx, resourceType, resourceID, zoneID)
	if err != nil {
		return 0, err
	}
	if ok {
		return existing, nil
	}

	// Assign max+1; the unique index on (zone_id, resource_type, resource_id)
	// turns a concurrent duplicate into an insert error, and the loser then
	// re-reads the winner's assignment.
	var maxModels []resourceMappingModel
	err = s.mdb.NewFind(&maxModels).
		Filter(bson.M{"zone_id": zoneID}).
		Sort(bson.D{{Key: "int_id", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil && !isNoDocuments(err) {
		return 0, fmt.Errorf("lattice: next resource int id: %w", err)
	}
	var next int64 = 1
	if len(maxModels) > 0 {
		next = maxModels[0].IntID + 1
	}

	m := &resourceMappingModel{
		ID:           id.NewResourceID().String(),
		IntID:        next,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ZoneID:       zoneID,
		CreatedAt:    now(),
	}
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		got, ok, rerr := s.GetResourceIntID(ctx, resourceType, resourceID, zoneID)
		if rerr == nil && ok {
			return got, nil
		}
		return 0, fmt.Errorf("lattice: insert resource int id: %w", err)
	}
	return uint32(next), nil
}

func (s *Store) GetResourceIntID(ctx context.Context, resourceType, resourceID, zoneID string) (uint32, bool, error) {
	var m resourceMappingModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"zone_id": zoneID, "resource_type": resourceType, "resource_id": resourceID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lattice: get resource int id: %w", err)
	}
	return uint32(m.IntID), true, nil
}

func (s *Store) GetResourceByIntID(ctx context.Context, zoneID string, intID uint32) (*resourceid.Mapping, error) {
	var m resourceMappingModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"zone_id": zoneID, "int_id": int64(intID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("resource int id %d in zone %s: %w", intID, zoneID, errNotFound)
		}
		return nil, fmt.Errorf("lattice: get resource by int id: %w", err)
	}
	return mappingFromModel(&m), nil
}

func (s *Store) ListResourceMappings(ctx context.Context, zoneID, resourceType string) ([]*resourceid.Mapping, error) {
	var models []resourceMappingModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"zone_id": zoneID, "resource_type": resourceType}).
		Sort(bson.D{{Key: "int_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("lattice: list resource mappings: %w", err)
	}
	result := make([]*resourceid.Mapping, len(models))
	for i := range models {
		result[i] = mappingFromModel(&models[i])
	}
	return result, nil
}
