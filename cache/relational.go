package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xraph/lattice"
)

// Compile-time interface check.
var _ lattice.Cache = (*Relational)(nil)

// Relational is the Postgres-backed L2 fallback for deployments without a
// distributed cache. Same degrade-to-miss contract as the redis tier.
type Relational struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRelational creates a Postgres-backed cache tier over the given pool.
func NewRelational(pool *pgxpool.Pool, logger *slog.Logger) *Relational {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relational{pool: pool, logger: logger}
}

// Migrate creates the cache table and its eviction indexes.
func (r *Relational) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS lattice_check_cache (
    cache_key    TEXT PRIMARY KEY,
    zone_id      TEXT NOT NULL,
    subject_key  TEXT NOT NULL,
    object_key   TEXT NOT NULL,
    allowed      BOOLEAN NOT NULL,
    relation     TEXT NOT NULL DEFAULT '',
    inherited    BOOLEAN NOT NULL DEFAULT FALSE,
    expires_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lattice_check_cache_subject ON lattice_check_cache (zone_id, subject_key);
CREATE INDEX IF NOT EXISTS idx_lattice_check_cache_object ON lattice_check_cache (zone_id, object_key);
CREATE INDEX IF NOT EXISTS idx_lattice_check_cache_expiry ON lattice_check_cache (expires_at);
`)
	return err
}

func relKey(key lattice.CacheKey) string {
	return strings.Join([]string{
		key.ZoneID, key.SubjectType, key.SubjectID,
		key.Permission, key.ObjectType, key.ObjectID,
	}, "|")
}

// Get returns a cached entry, if present and unexpired.
func (r *Relational) Get(ctx context.Context, key lattice.CacheKey) (*lattice.CacheEntry, bool) {
	var entry lattice.CacheEntry
	err := r.pool.QueryRow(ctx, `
SELECT allowed, relation, inherited FROM lattice_check_cache
WHERE cache_key = $1 AND expires_at > now()`,
		relKey(key)).Scan(&entry.Allowed, &entry.Relation, &entry.Inherited)
	if err != nil {
		if err != pgx.ErrNoRows {
			r.logger.Warn("lattice: relational cache get failed", slog.Any("error", err))
		}
		return nil, false
	}
	return &entry, true
}

// Set upserts an entry with the given lifetime.
func (r *Relational) Set(ctx context.Context, key lattice.CacheKey, entry *lattice.CacheEntry, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO lattice_check_cache (cache_key, zone_id, subject_key, object_key, allowed, relation, inherited, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (cache_key) DO UPDATE SET
    allowed = EXCLUDED.allowed,
    relation = EXCLUDED.relation,
    inherited = EXCLUDED.inherited,
    expires_at = EXCLUDED.expires_at`,
		relKey(key),
		key.ZoneID,
		key.SubjectType+"|"+key.SubjectID,
		key.ObjectType+"|"+key.ObjectID,
		entry.Allowed,
		entry.Relation,
		entry.Inherited,
		time.Now().Add(ttl),
	)
	if err != nil {
		r.logger.Warn("lattice: relational cache set failed", slog.Any("error", err))
	}
}

// InvalidateSubject evicts entries keyed by the subject in the zone.
func (r *Relational) InvalidateSubject(ctx context.Context, zoneID, subjectType, subjectID string) {
	r.exec(ctx, `DELETE FROM lattice_check_cache WHERE zone_id = $1 AND subject_key = $2`,
		zoneID, subjectType+"|"+subjectID)
}

// InvalidateObject evicts entries keyed by the object in the zone.
func (r *Relational) InvalidateObject(ctx context.Context, zoneID, objectType, objectID string) {
	r.exec(ctx, `DELETE FROM lattice_check_cache WHERE zone_id = $1 AND object_key = $2`,
		zoneID, objectType+"|"+objectID)
}

// InvalidateZone evicts every entry in the zone.
func (r *Relational) InvalidateZone(ctx context.Context, zoneID string) {
	r.exec(ctx, `DELETE FROM lattice_check_cache WHERE zone_id = $1`, zoneID)
}

// Sweep removes expired rows; run periodically by the operator.
func (r *Relational) Sweep(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM lattice_check_cache WHERE expires_at <= now()`)
	return err
}

func (r *Relational) exec(ctx context.Context, sql string, args ...any) {
	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		r.logger.Warn("lattice: relational cache invalidation failed", slog.Any("error", err))
	}
}
