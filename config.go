package lattice

import "time"

// CacheBackend selects which L2 implementation the cache factory builds.
type CacheBackend string

const (
	// CacheBackendAuto picks redis when a client is configured, the
	// relational fallback when a pool is, and in-process memory otherwise.
	CacheBackendAuto CacheBackend = "auto"

	// CacheBackendRedis forces the distributed redis cache.
	CacheBackendRedis CacheBackend = "redis"

	// CacheBackendRelational forces the Postgres-backed fallback cache.
	CacheBackendRelational CacheBackend = "relational"

	// CacheBackendMemory forces a process-local L2 (single-node setups).
	CacheBackendMemory CacheBackend = "memory"
)

// InvalidationMode controls how a write evicts cache entries.
type InvalidationMode string

const (
	// InvalidationTargeted evicts only entries keyed by the written
	// subject or object. This is the default.
	InvalidationTargeted InvalidationMode = "targeted"

	// InvalidationZoneWide blankets the whole zone on every write.
	InvalidationZoneWide InvalidationMode = "zone_wide"
)

// Config holds configuration for the Lattice engine. It is immutable once
// the engine is constructed; no component reads environment state directly.
type Config struct {
	// MaxGraphDepth bounds BFS traversal hops. Defaults to 10.
	MaxGraphDepth int `json:"max_graph_depth,omitempty"`

	// CacheBackend selects the L2 implementation. Defaults to auto.
	CacheBackend CacheBackend `json:"cache_backend,omitempty"`

	// InvalidationMode selects targeted or zone-wide eviction on write.
	InvalidationMode InvalidationMode `json:"invalidation_mode,omitempty"`

	// EnableL1 toggles the in-process result cache. Defaults to true.
	EnableL1 *bool `json:"enable_l1,omitempty"`

	// L1MaxSize bounds the in-process cache entry count. Defaults to 10000.
	L1MaxSize int `json:"l1_max_size,omitempty"`

	// TTLOwner is the cache lifetime for ownership grants, the most
	// stable signal. Defaults to 1h.
	TTLOwner time.Duration `json:"ttl_owner,omitempty"`

	// TTLEditor is the cache lifetime for editor grants. Defaults to 10m.
	TTLEditor time.Duration `json:"ttl_editor,omitempty"`

	// TTLViewer is the cache lifetime for viewer grants. Defaults to 10m.
	TTLViewer time.Duration `json:"ttl_viewer,omitempty"`

	// TTLInherited is the cache lifetime for grants found through a group
	// or ancestor hop; shortest of the positive tiers because any ancestor
	// change invalidates them. Defaults to 5m.
	TTLInherited time.Duration `json:"ttl_inherited,omitempty"`

	// DenialTTL bounds how long a denial stays cached if an explicit
	// invalidation is missed, while still giving repeated-denial hot paths
	// a cheap early-out. Defaults to 30s.
	DenialTTL time.Duration `json:"denial_ttl,omitempty"`

	// CacheOpTimeout bounds each distributed-cache call. A timeout demotes
	// the tier to a miss, never an authoritative answer. Defaults to 250ms.
	CacheOpTimeout time.Duration `json:"cache_op_timeout,omitempty"`

	// CachePoolSize sizes the distributed cache client connection pool.
	CachePoolSize int `json:"cache_pool_size,omitempty"`

	// EnforceZones rejects cross-zone writes outside the shared-* allow
	// list. Construction-time kill switch; never overridable per call.
	// Defaults to true.
	EnforceZones *bool `json:"enforce_zones,omitempty"`

	// EnableHierarchy toggles parent-of batch derivation. When false the
	// hierarchy manager is a no-op returning zero. Defaults to true.
	EnableHierarchy *bool `json:"enable_hierarchy,omitempty"`

	// HierarchyChunkSize bounds tuples per batched insert. Defaults to 500.
	HierarchyChunkSize int `json:"hierarchy_chunk_size,omitempty"`

	// FlushInterval is the deferred buffer wake period. Defaults to 100ms.
	FlushInterval time.Duration `json:"flush_interval,omitempty"`

	// MaxBatchSize triggers an immediate flush when the deferred queue
	// reaches it. Defaults to 1000.
	MaxBatchSize int `json:"max_batch_size,omitempty"`

	// ExpandMaxResults caps subjects returned by Expand. Defaults to 1000.
	ExpandMaxResults int `json:"expand_max_results,omitempty"`

	// ExpandMaxVisited caps nodes visited by Expand on highly connected
	// group graphs. Defaults to 10000.
	ExpandMaxVisited int `json:"expand_max_visited,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	t := true
	return Config{
		MaxGraphDepth:      10,
		CacheBackend:       CacheBackendAuto,
		InvalidationMode:   InvalidationTargeted,
		EnableL1:           &t,
		L1MaxSize:          10000,
		TTLOwner:           time.Hour,
		TTLEditor:          10 * time.Minute,
		TTLViewer:          10 * time.Minute,
		TTLInherited:       5 * time.Minute,
		DenialTTL:          30 * time.Second,
		CacheOpTimeout:     250 * time.Millisecond,
		EnforceZones:       &t,
		EnableHierarchy:    &t,
		HierarchyChunkSize: 500,
		FlushInterval:      100 * time.Millisecond,
		MaxBatchSize:       1000,
		ExpandMaxResults:   1000,
		ExpandMaxVisited:   10000,
	}
}

func (c Config) l1Enabled() bool        { return c.EnableL1 == nil || *c.EnableL1 }
func (c Config) zonesEnforced() bool    { return c.EnforceZones == nil || *c.EnforceZones }
func (c Config) hierarchyEnabled() bool { return c.EnableHierarchy == nil || *c.EnableHierarchy }

// ttlFor selects the cache lifetime tier for a resolved check result.
func (c Config) ttlFor(result *CheckResult) time.Duration {
	if !result.Allowed {
		return c.DenialTTL
	}
	if result.Inherited {
		return c.TTLInherited
	}
	if _, ok := ownerRelations[result.Relation]; ok {
		return c.TTLOwner
	}
	if _, ok := editorRelations[result.Relation]; ok {
		return c.TTLEditor
	}
	return c.TTLViewer
}
