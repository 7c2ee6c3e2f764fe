package lattice

import (
	"context"
	"time"
)

// CacheKey identifies one cached check result. L1 and L2 share the shape.
type CacheKey struct {
	ZoneID      string
	SubjectType string
	SubjectID   string
	Permission  string
	ObjectType  string
	ObjectID    string
}

// CacheEntry is a cached check outcome. Allowed and the producing relation
// travel together so a re-populated tier keeps its TTL tiering.
type CacheEntry struct {
	Allowed   bool   `json:"allowed"`
	Relation  string `json:"relation,omitempty"`
	Inherited bool   `json:"inherited,omitempty"`
}

// Cache is one tier of check-result caching. Implementations must degrade
// to a miss on backend failure: the cache is an accelerator, never an
// authority, so a broken tier falls through to the graph.
type Cache interface {
	// Get returns a cached entry, if present and live.
	Get(ctx context.Context, key CacheKey) (*CacheEntry, bool)

	// Set stores an entry with the given lifetime.
	Set(ctx context.Context, key CacheKey, entry *CacheEntry, ttl time.Duration)

	// InvalidateSubject evicts entries keyed by the subject in the zone.
	// Entries of other subjects must not be touched.
	InvalidateSubject(ctx context.Context, zoneID, subjectType, subjectID string)

	// InvalidateObject evicts entries keyed by the object in the zone.
	InvalidateObject(ctx context.Context, zoneID, objectType, objectID string)

	// InvalidateZone evicts every entry in the zone.
	InvalidateZone(ctx context.Context, zoneID string)
}
