package lattice

import (
	"context"

	"github.com/xraph/forge"
)

// resolveZone picks the zone for an operation: the explicit request value,
// then the forge scope's org, then the standalone context value, then the
// default zone.
func resolveZone(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if s, ok := forge.ScopeFrom(ctx); ok && s.OrgID() != "" {
		return s.OrgID()
	}
	if z := zoneIDFromContext(ctx); z != "" {
		return z
	}
	return DefaultZone
}
