package lattice

// DefaultZone is the zone unset identifiers resolve to.
const DefaultZone = "default"

// crossZoneRelations is the fixed allow list of relations that may span
// zones. Everything else must keep subject and object in the same zone.
var crossZoneRelations = map[string]struct{}{
	RelationSharedViewer: {},
	RelationSharedEditor: {},
	RelationSharedOwner:  {},
}

// IsCrossZoneReadable reports whether a relation may cross zone boundaries.
// It is a pure predicate for callers that reason about cross-zone
// visibility without performing a write.
func IsCrossZoneReadable(relation string) bool {
	_, ok := crossZoneRelations[relation]
	return ok
}

// ZoneResolution is the outcome of validating a prospective write.
type ZoneResolution struct {
	// EffectiveZoneID is the zone the tuple is stored under. Cross-zone
	// shares land in the object's zone so listing a zone's tuples captures
	// inbound shares.
	EffectiveZoneID string

	// SubjectZone and ObjectZone are the resolved per-side zones.
	SubjectZone string
	ObjectZone  string

	// CrossZone marks an allowed cross-zone share, for auditing.
	CrossZone bool
}

// ZoneValidator validates and resolves zone placement for writes. The
// enforce flag is fixed at construction: an operational kill switch, never
// a per-call override, so it cannot be bypassed accidentally.
type ZoneValidator struct {
	enforce bool
}

// NewZoneValidator creates a validator. With enforce false all zone
// defaulting still happens but the cross-zone rejection is skipped.
func NewZoneValidator(enforce bool) *ZoneValidator {
	return &ZoneValidator{enforce: enforce}
}

// ValidateWriteZones resolves the zones of a prospective write. An absent
// zoneID defaults to DefaultZone; absent subject/object zones default to
// the resolved zoneID. Differing resolved zones are rejected with a
// *ZoneIsolationError unless the relation is cross-zone readable, in which
// case the tuple stores under the object's zone.
func (v *ZoneValidator) ValidateWriteZones(zoneID, subjectZoneID, objectZoneID, relation string) (ZoneResolution, error) {
	if zoneID == "" {
		zoneID = DefaultZone
	}
	if subjectZoneID == "" {
		subjectZoneID = zoneID
	}
	if objectZoneID == "" {
		objectZoneID = zoneID
	}

	res := ZoneResolution{
		EffectiveZoneID: zoneID,
		SubjectZone:     subjectZoneID,
		ObjectZone:      objectZoneID,
	}

	if subjectZoneID == objectZoneID {
		res.EffectiveZoneID = objectZoneID
		return res, nil
	}

	if IsCrossZoneReadable(relation) {
		res.EffectiveZoneID = objectZoneID
		res.CrossZone = true
		return res, nil
	}

	if v.enforce {
		return ZoneResolution{}, &ZoneIsolationError{
			SubjectZone: subjectZoneID,
			ObjectZone:  objectZoneID,
			Relation:    relation,
		}
	}

	// Kill switch engaged: keep the object-zone placement without rejecting.
	res.EffectiveZoneID = objectZoneID
	res.CrossZone = true
	return res, nil
}
