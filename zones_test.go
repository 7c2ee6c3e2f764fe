package lattice

import (
	"context"
	"errors"
	"testing"
)

func TestValidateWriteZones(t *testing.T) {
	v := NewZoneValidator(true)

	tests := []struct {
		name          string
		zone          string
		subjectZone   string
		objectZone    string
		relation      string
		wantErr       bool
		wantEffective string
		wantCross     bool
	}{
		{
			name: "all empty defaults to default zone",
			relation: RelationViewer, wantEffective: DefaultZone,
		},
		{
			name: "sides default to the request zone",
			zone: "z1", relation: RelationViewer, wantEffective: "z1",
		},
		{
			name: "same explicit zones",
			zone: "z1", subjectZone: "z1", objectZone: "z1",
			relation: RelationViewer, wantEffective: "z1",
		},
		{
			name: "cross-zone plain relation rejected",
			subjectZone: "z1", objectZone: "z2",
			relation: RelationViewer, wantErr: true,
		},
		{
			name: "cross-zone member rejected",
			subjectZone: "z1", objectZone: "z2",
			relation: RelationMember, wantErr: true,
		},
		{
			name: "shared-viewer crosses zones into the object zone",
			subjectZone: "z1", objectZone: "z2",
			relation: RelationSharedViewer, wantEffective: "z2", wantCross: true,
		},
		{
			name: "shared-owner crosses zones",
			subjectZone: "z1", objectZone: "z2",
			relation: RelationSharedOwner, wantEffective: "z2", wantCross: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.ValidateWriteZones(tt.zone, tt.subjectZone, tt.objectZone, tt.relation)
			if tt.wantErr {
				if !errors.Is(err, ErrZoneIsolation) {
					t.Fatalf("expected ErrZoneIsolation, got %v", err)
				}
				var zerr *ZoneIsolationError
				if !errors.As(err, &zerr) {
					t.Fatalf("expected *ZoneIsolationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if res.EffectiveZoneID != tt.wantEffective {
				t.Fatalf("effective zone = %q, want %q", res.EffectiveZoneID, tt.wantEffective)
			}
			if res.CrossZone != tt.wantCross {
				t.Fatalf("cross zone = %v, want %v", res.CrossZone, tt.wantCross)
			}
		})
	}
}

func TestZoneValidatorKillSwitch(t *testing.T) {
	v := NewZoneValidator(false)

	res, err := v.ValidateWriteZones("", "z1", "z2", RelationViewer)
	if err != nil {
		t.Fatal(err)
	}
	if res.EffectiveZoneID != "z2" {
		t.Fatalf("expected object zone placement, got %q", res.EffectiveZoneID)
	}
	if !res.CrossZone {
		t.Fatal("unenforced cross-zone write should still be flagged")
	}
}

func TestIsCrossZoneReadable(t *testing.T) {
	for _, rel := range []string{RelationSharedViewer, RelationSharedEditor, RelationSharedOwner} {
		if !IsCrossZoneReadable(rel) {
			t.Fatalf("%s should be cross-zone readable", rel)
		}
	}
	for _, rel := range []string{RelationViewer, RelationOwner, RelationMember, RelationParent} {
		if IsCrossZoneReadable(rel) {
			t.Fatalf("%s should not be cross-zone readable", rel)
		}
	}
}

func TestWriteTupleCrossZoneRejected(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.WriteTuple(context.Background(), &WriteRequest{
		Subject:       Subject{Type: SubjectUser, ID: "alice"},
		Relation:      RelationViewer,
		Object:        Object{Type: ObjectPath, ID: "/doc"},
		SubjectZoneID: "z1",
		ObjectZoneID:  "z2",
	})
	if !errors.Is(err, ErrZoneIsolation) {
		t.Fatalf("expected ErrZoneIsolation, got %v", err)
	}
}

func TestCrossZoneShareVisibleInObjectZone(t *testing.T) {
	eng, _ := newTestEngine(t)

	// alice in z1 is granted a shared view of a z2 document. The tuple
	// lands in z2, so checks scoped to z2 see it.
	if _, err := eng.WriteTuple(context.Background(), &WriteRequest{
		Subject:       Subject{Type: SubjectUser, ID: "alice"},
		Relation:      RelationSharedViewer,
		Object:        Object{Type: ObjectPath, ID: "/doc"},
		SubjectZoneID: "z1",
		ObjectZoneID:  "z2",
	}); err != nil {
		t.Fatal(err)
	}

	if !checkAllowed(t, eng, "alice", PermissionViewer, "/doc", "z2").Allowed {
		t.Fatal("expected shared grant visible in the object zone")
	}
	if checkAllowed(t, eng, "alice", PermissionViewer, "/doc", "z1").Allowed {
		t.Fatal("shared grant must not appear in the subject zone")
	}
}

func TestChecksAreZoneScoped(t *testing.T) {
	eng, _ := newTestEngine(t)

	mustWrite(t, eng, SubjectUser, "alice", RelationViewer, ObjectPath, "/doc", "z1")

	if !checkAllowed(t, eng, "alice", PermissionViewer, "/doc", "z1").Allowed {
		t.Fatal("expected allow in the granting zone")
	}
	if checkAllowed(t, eng, "alice", PermissionViewer, "/doc", "z2").Allowed {
		t.Fatal("grant in z1 must not leak into z2")
	}
}
