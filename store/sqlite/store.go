// Package sqlite provides a SQLite implementation of the Lattice composite
// store, suited for single-node deployments and local development.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/lattice/id"
	"github.com/xraph/lattice/resourceid"
	"github.com/xraph/lattice/store"
	"github.com/xraph/lattice/tuple"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entities.
var errNotFound = fmt.Errorf("not found")

// Store is a SQLite implementation of the composite Lattice store.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("lattice/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("lattice/sqlite: migration failed: %w", err)
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ──────────────────────────────────────────────────
// Tuple operations
// ──────────────────────────────────────────────────

func (s *Store) CreateTuple(ctx context.Context, t *tuple.Tuple) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m := tupleToModel(t)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("lattice/sqlite: create tuple: %w", err)
	}
	return nil
}

func (s *Store) CreateTuples(ctx context.Context, tuples []*tuple.Tuple) error {
	if len(tuples) == 0 {
		return nil
	}
	now := time.Now().UTC()
	models := make([]tupleModel, len(tuples))
	for i, t := range tuples {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		models[i] = *tupleToModel(t)
	}
	_, err := s.sdb.NewInsert(&models).Exec(ctx)
	if err != nil {
		return fmt.Errorf("lattice/sqlite: create tuples: %w", err)
	}
	return nil
}

func (s *Store) GetTuple(ctx context.Context, tupleID id.TupleID) (*tuple.Tuple, error) {
	m := new(tupleModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", tupleID.String()).
		Where("(expires_at IS NULL OR expires_at > ?)", time.Now().UTC()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("tuple %s: %w", tupleID, tuple.ErrNotFound)
		}
		return nil, fmt.Errorf("lattice/sqlite: get tuple: %w", err)
	}
	return tupleFromModel(m), nil
}

func (s *Store) DeleteTuple(ctx context.Context, tupleID id.TupleID) (bool, error) {
	res, err := s.sdb.NewDelete((*tupleModel)(nil)).
		Where("id = ?", tupleID.String()).Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("lattice/sqlite: delete tuple: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("lattice/sqlite: delete tuple rows: %w", err)
	}
	return n > 0, nil
}

func (s *Store) ListTuples(ctx context.Context, filter *tuple.ListFilter) ([]*tuple.Tuple, error) {
	var models []tupleModel
	q := s.sdb.NewSelect(&models).
		Where("(expires_at IS NULL OR expires_at > ?)", time.Now().UTC()).
		OrderExpr("id ASC")
	if filter != nil {
		if filter.ZoneID != "" {
			q = q.Where("zone_id = ?", filter.ZoneID)
		}
		if filter.SubjectType != "" {
			q = q.Where("subject_type = ?", filter.SubjectType)
		}
		if filter.SubjectID != "" {
			q = q.Where("subject_id = ?", filter.SubjectID)
		}
		if filter.Relation != "" {
			q = q.Where("relation = ?", filter.Relation)
		}
		if filter.ObjectType != "" {
			q = q.Where("object_type = ?", filter.ObjectType)
		}
		if filter.ObjectID != "" {
			q = q.Where("object_id = ?", filter.ObjectID)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("lattice/sqlite: list tuples: %w", err)
	}
	result := make([]*tuple.Tuple, len(models))
	for i := range models {
		result[i] = tupleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountTuples(ctx context.Context, filter *tuple.ListFilter) (int64, error) {
	q := s.sdb.NewSelect((*tupleModel)(nil)).
		Where("(expires_at IS NULL OR expires_at > ?)", time.Now().UTC())
	if filter != nil {
		if filter.ZoneID != "" {
			q = q.Where("zone_id = ?", filter.ZoneID)
		}
		if filter.SubjectType != "" {
			q = q.Where("subject_type = ?", filter.SubjectType)
		}
		if filter.SubjectID != "" {
			q = q.Where("subject_id = ?", filter.SubjectID)
		}
		if filter.Relation != "" {
			q = q.Where("relation = ?", filter.Relation)
		}
		if filter.ObjectType != "" {
			q = q.Where("object_type = ?", filter.ObjectType)
		}
		if filter.ObjectID != "" {
			q = q.Where("object_id = ?", filter.ObjectID)
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("lattice/sqlite: count tuples: %w", err)
	}
	return count, nil
}

func (s *Store) ListSubjectEdges(ctx context.Context, zoneID, subjectType, subjectID string, relations []string) ([]*tuple.Tuple, error) {
	var models []tupleModel
	q := s.sdb.NewSelect(&models).
		Where("zone_id = ?", zoneID).
		Where("subject_type = ?", subjectType).
		Where("subject_id = ?", subjectID).
		Where("(expires_at IS NULL OR expires_at > ?)", time.Now().UTC())
	if len(relations) > 0 {
		q = q.Where("relation IN (?)", relations)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("lattice/sqlite: list subject edges: %w", err)
	}
	result := make([]*tuple.Tuple, len(models))
	for i := range models {
		result[i] = tupleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) ListObjectEdges(ctx context.Context, zoneID, objectType, objectID string, relations []string) ([]*tuple.Tuple, error) {
	var models []tupleModel
	q := s.sdb.NewSelect(&models).
		Where("zone_id = ?", zoneID).
		Where("object_type = ?", objectType).
		Where("object_id = ?", objectID).
		Where("(expires_at IS NULL OR expires_at > ?)", time.Now().UTC())
	if len(relations) > 0 {
		q = q.Where("relation IN (?)", relations)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("lattice/sqlite: list object edges: %w", err)
	}
	result := make([]*tuple.Tuple, len(models))
	for i := range models {
		result[i] = tupleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) HasTuple(ctx context.Context, zoneID, subjectType, subjectID, relation, objectType, objectID string) (bool, error) {
	count, err := s.sdb.NewSelect((*tupleModel)(nil)).
		Where("zone_id = ?", zoneID).
		Where("subject_type = ?", subjectType).
		Where("subject_id = ?", subjectID).
		Where("relation = ?", relation).
		Where("object_type = ?", objectType).
		Where("object_id = ?", objectID).
		Where("(expires_at IS NULL OR expires_at > ?)", time.Now().UTC()).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("lattice/sqlite: has tuple: %w", err)
	}
	return count > 0, nil
}

func (s *Store) DeleteTuplesByObject(ctx context.Context, zoneID, objectType, objectID string) error {
	_, err := s.sdb.NewDelete((*tupleModel)(nil)).
		Where("zone_id = ?", zoneID).
		Where("object_type = ?", objectType).
		Where("object_id = ?", objectID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("lattice/sqlite: delete tuples by object: %w", err)
	}
	return nil
}

func (s *Store) DeleteTuplesBySubject(ctx context.Context, zoneID, subjectType, subjectID string) error {
	_, err := s.sdb.NewDelete((*tupleModel)(nil)).
		Where("zone_id = ?", zoneID).
		Where("subject_type = ?", subjectType).
		Where("subject_id = ?", subjectID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("lattice/sqlite: delete tuples by subject: %w", err)
	}
	return nil
}

func (s *Store) DeleteTuplesByZone(ctx context.Context, zoneID string) error {
	_, err := s.sdb.NewDelete((*tupleModel)(nil)).
		Where("zone_id = ?", zoneID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("lattice/sqlite: delete tuples by zone: %w", err)
	}
	return nil
}

// DeleteExpiredTuples removes tuples whose expiry has passed.
func (s *Store) DeleteExpiredTuples(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*tupleModel)(nil)).
		Where("expires_at IS NOT NULL").
		Where("expires_at < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("lattice/sqlite: delete expired tuples: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("lattice/sqlite: delete expired tuples rows: %w", err)
	}
	return n, nil
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

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("lattice/sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	var maxModels []resourceMappingModel
	err = tx.NewSelect(&maxModels).
		Where("zone_id = ?", zoneID).
		OrderExpr("int_id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil && !isNoRows(err) {
		return 0, fmt.Errorf("lattice/sqlite: next resource int id: %w", err)
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
		CreatedAt:    time.Now().UTC(),
	}
	_, err = tx.NewInsert(m).
		OnConflict("(zone_id, resource_type, resource_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("lattice/sqlite: insert resource int id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("lattice/sqlite: commit tx: %w", err)
	}

	got, ok, err := s.GetResourceIntID(ctx, resourceType, resourceID, zoneID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("lattice/sqlite: resource int id not assigned for %s/%s in zone %s", resourceType, resourceID, zoneID)
	}
	return got, nil
}

func (s *Store) GetResourceIntID(ctx context.Context, resourceType, resourceID, zoneID string) (uint32, bool, error) {
	m := new(resourceMappingModel)
	err := s.sdb.NewSelect(m).
		Where("zone_id = ?", zoneID).
		Where("resource_type = ?", resourceType).
		Where("resource_id = ?", resourceID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lattice/sqlite: get resource int id: %w", err)
	}
	return uint32(m.IntID), true, nil
}

func (s *Store) GetResourceByIntID(ctx context.Context, zoneID string, intID uint32) (*resourceid.Mapping, error) {
	m := new(resourceMappingModel)
	err := s.sdb.NewSelect(m).
		Where("zone_id = ?", zoneID).
		Where("int_id = ?", int64(intID)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("resource int id %d in zone %s: %w", intID, zoneID, errNotFound)
		}
		return nil, fmt.Errorf("lattice/sqlite: get resource by int id: %w", err)
	}
	return mappingFromModel(m), nil
}

func (s *Store) ListResourceMappings(ctx context.Context, zoneID, resourceType string) ([]*resourceid.Mapping, error) {
	var models []resourceMappingModel
	err := s.sdb.NewSelect(&models).
		Where("zone_id = ?", zoneID).
		Where("resource_type = ?", resourceType).
		OrderExpr("int_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("lattice/sqlite: list resource mappings: %w", err)
	}
	result := make([]*resourceid.Mapping, len(models))
	for i := range models {
		result[i] = mappingFromModel(&models[i])
	}
	return result, nil
}
