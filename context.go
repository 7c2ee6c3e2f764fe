package lattice

import "context"

type contextKey int

const ctxKeyZoneID contextKey = iota

// WithZone returns a context carrying a zone ID. Use this in standalone
// mode (without Forge) when requests do not set ZoneID explicitly.
func WithZone(ctx context.Context, zoneID string) context.Context {
	return context.WithValue(ctx, ctxKeyZoneID, zoneID)
}

func zoneIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxKeyZoneID).(string)
	if !ok {
		return ""
	}
	return v
}
