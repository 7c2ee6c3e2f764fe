package extension

// Config holds the Lattice extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.lattice" or "lattice" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for lattice routes (default: "/lattice").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// MaxGraphDepth controls the maximum depth for graph traversal.
	MaxGraphDepth int `json:"max_graph_depth" mapstructure:"max_graph_depth" yaml:"max_graph_depth"`

	// CacheBackend selects the distributed cache tier: auto, redis,
	// relational, or memory. Defaults to auto.
	CacheBackend string `json:"cache_backend" mapstructure:"cache_backend" yaml:"cache_backend"`

	// CacheRedisAddr, when set, constructs a dedicated redis client for the
	// cache tier instead of resolving one from the DI container.
	CacheRedisAddr string `json:"cache_redis_addr" mapstructure:"cache_redis_addr" yaml:"cache_redis_addr"`

	// CacheDSN, when set, constructs a pgx pool for the relational fallback
	// cache tier instead of resolving one from the DI container.
	CacheDSN string `json:"cache_dsn" mapstructure:"cache_dsn" yaml:"cache_dsn"`

	// CachePoolSize sizes the connection pool of cache clients constructed
	// from CacheRedisAddr or CacheDSN.
	CachePoolSize int `json:"cache_pool_size" mapstructure:"cache_pool_size" yaml:"cache_pool_size"`

	// DisableL1 turns off the in-process result cache tier.
	DisableL1 bool `json:"disable_l1" mapstructure:"disable_l1" yaml:"disable_l1"`

	// L1MaxSize bounds the in-process cache entry count.
	L1MaxSize int `json:"l1_max_size" mapstructure:"l1_max_size" yaml:"l1_max_size"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// When set, the extension resolves this named database and auto-constructs
	// the appropriate store based on the driver type (pg/sqlite/mongo).
	// When empty and WithGroveDatabase was called, the default (unnamed) DB is used.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxGraphDepth: 10,
	}
}
