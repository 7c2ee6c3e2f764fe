// Package memory provides an in-memory implementation of the Lattice
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xraph/lattice/id"
	"github.com/xraph/lattice/resourceid"
	"github.com/xraph/lattice/tuple"
)

// Compile-time interface checks.
var (
	_ tuple.Store      = (*Store)(nil)
	_ resourceid.Store = (*Store)(nil)
)

var errNotFound = fmt.Errorf("not found")

// Store is a thread-safe in-memory store for tuples and resource mappings.
type Store struct {
	mu sync.RWMutex

	tuples   map[string]*tuple.Tuple
	mappings map[string]*resourceid.Mapping // triple key -> mapping
	byIntID  map[string]*resourceid.Mapping // zone:intID -> mapping
	nextInt  map[string]uint32              // per-zone counter
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		tuples:   make(map[string]*tuple.Tuple),
		mappings: make(map[string]*resourceid.Mapping),
		byIntID:  make(map[string]*resourceid.Mapping),
		nextInt:  make(map[string]uint32),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Tuple store
// ──────────────────────────────────────────────────

func (s *Store) CreateTuple(_ context.Context, t *tuple.Tuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuples[t.ID.String()] = copyTuple(t)
	return nil
}

func (s *Store) CreateTuples(ctx context.Context, tuples []*tuple.Tuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tuples {
		s.tuples[t.ID.String()] = copyTuple(t)
	}
	return nil
}

func (s *Store) GetTuple(_ context.Context, tupleID id.TupleID) (*tuple.Tuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tuples[tupleID.String()]
	if !ok || t.Expired(time.Now()) {
		return nil, fmt.Errorf("tuple %s: %w", tupleID, tuple.ErrNotFound)
	}
	return copyTuple(t), nil
}

func (s *Store) DeleteTuple(_ context.Context, tupleID id.TupleID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tuples[tupleID.String()]; !ok {
		return false, nil
	}
	delete(s.tuples, tupleID.String())
	return true, nil
}

func (s *Store) ListTuples(_ context.Context, filter *tuple.ListFilter) ([]*tuple.Tuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var result []*tuple.Tuple
	for _, t := range s.tuples {
		if t.Expired(now) || !filter.Matches(t) {
			continue
		}
		result = append(result, copyTuple(t))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID.String() < result[j].ID.String()
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) CountTuples(ctx context.Context, filter *tuple.ListFilter) (int64, error) {
	list, err := s.ListTuples(ctx, &tuple.ListFilter{
		ZoneID:      filter.ZoneID,
		SubjectType: filter.SubjectType,
		SubjectID:   filter.SubjectID,
		Relation:    filter.Relation,
		ObjectType:  filter.ObjectType,
		ObjectID:    filter.ObjectID,
	})
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) ListSubjectEdges(_ context.Context, zoneID, subjectType, subjectID string, relations []string) ([]*tuple.Tuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	relSet := toSet(relations)
	now := time.Now()
	var result []*tuple.Tuple
	for _, t := range s.tuples {
		if t.ZoneID != zoneID || t.SubjectType != subjectType || t.SubjectID != subjectID {
			continue
		}
		if t.Expired(now) {
			continue
		}
		if len(relSet) > 0 {
			if _, ok := relSet[t.Relation]; !ok {
				continue
			}
		}
		result = append(result, copyTuple(t))
	}
	return result, nil
}

func (s *Store) ListObjectEdges(_ context.Context, zoneID, objectType, objectID string, relations []string) ([]*tuple.Tuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	relSet := toSet(relations)
	now := time.Now()
	var result []*tuple.Tuple
	for _, t := range s.tuples {
		if t.ZoneID != zoneID || t.ObjectType != objectType || t.ObjectID != objectID {
			continue
		}
		if t.Expired(now) {
			continue
		}
		if len(relSet) > 0 {
			if _, ok := relSet[t.Relation]; !ok {
				continue
			}
		}
		result = append(result, copyTuple(t))
	}
	return result, nil
}

func (s *Store) HasTuple(_ context.Context, zoneID, subjectType, subjectID, relation, objectType, objectID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	for _, t := range s.tuples {
		if t.ZoneID == zoneID &&
			t.SubjectType == subjectType && t.SubjectID == subjectID &&
			t.Relation == relation &&
			t.ObjectType == objectType && t.ObjectID == objectID &&
			!t.Expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DeleteTuplesByObject(_ context.Context, zoneID, objectType, objectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.tuples {
		if t.ZoneID == zoneID && t.ObjectType == objectType && t.ObjectID == objectID {
			delete(s.tuples, k)
		}
	}
	return nil
}

func (s *Store) DeleteTuplesBySubject(_ context.Context, zoneID, subjectType, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.tuples {
		if t.ZoneID == zoneID && t.SubjectType == subjectType && t.SubjectID == subjectID {
			delete(s.tuples, k)
		}
	}
	return nil
}

func (s *Store) DeleteTuplesByZone(_ context.Context, zoneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.tuples {
		if t.ZoneID == zoneID {
			delete(s.tuples, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Resource int-id mapper
// ──────────────────────────────────────────────────

func tripleKey(resourceType, resourceID, zoneID string) string {
	return zoneID + ":" + resourceType + ":" + resourceID
}

func intKey(zoneID string, intID uint32) string {
	return fmt.Sprintf("%s:%d", zoneID, intID)
}

func (s *Store) EnsureResourceIntID(_ context.Context, resourceType, resourceID, zoneID string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tripleKey(resourceType, resourceID, zoneID)
	if m, ok := s.mappings[key]; ok {
		return m.IntID, nil
	}

	s.nextInt[zoneID]++
	m := &resourceid.Mapping{
		ID:           id.NewResourceID(),
		IntID:        s.nextInt[zoneID],
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ZoneID:       zoneID,
		CreatedAt:    time.Now().UTC(),
	}
	s.mappings[key] = m
	s.byIntID[intKey(zoneID, m.IntID)] = m
	return m.IntID, nil
}

func (s *Store) GetResourceIntID(_ context.Context, resourceType, resourceID, zoneID string) (uint32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[tripleKey(resourceType, resourceID, zoneID)]
	if !ok {
		return 0, false, nil
	}
	return m.IntID, true, nil
}

func (s *Store) GetResourceByIntID(_ context.Context, zoneID string, intID uint32) (*resourceid.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byIntID[intKey(zoneID, intID)]
	if !ok {
		return nil, fmt.Errorf("resource int id %d in zone %s: %w", intID, zoneID, errNotFound)
	}
	c := *m
	return &c, nil
}

func (s *Store) ListResourceMappings(_ context.Context, zoneID, resourceType string) ([]*resourceid.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*resourceid.Mapping
	for _, m := range s.mappings {
		if m.ZoneID != zoneID || m.ResourceType != resourceType {
			continue
		}
		c := *m
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].IntID < result[j].IntID })
	return result, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func copyTuple(t *tuple.Tuple) *tuple.Tuple {
	c := *t
	if t.ExpiresAt != nil {
		exp := *t.ExpiresAt
		c.ExpiresAt = &exp
	}
	return &c
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
