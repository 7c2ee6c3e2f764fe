package id_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/xraph/lattice/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"TupleID", id.NewTupleID, "tup_"},
		{"ResourceID", id.NewResourceID, "res_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixTuple)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixTuple {
		t.Errorf("expected prefix %q, got %q", id.PrefixTuple, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"TupleID", id.NewTupleID, id.ParseTupleID},
		{"ResourceID", id.NewResourceID, id.ParseResourceID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseTupleID rejects res_", id.NewResourceID().String(), id.ParseTupleID},
		{"ParseResourceID rejects tup_", id.NewTupleID().String(), id.ParseResourceID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parseFn(tt.input)
			if err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Fatal("expected error for empty string")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	original := id.NewTupleID()

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}

	var parsed id.ID
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}
	if !parsed.Equal(original) {
		t.Errorf("round-trip mismatch: %q != %q", parsed, original)
	}
}

func TestScanValue(t *testing.T) {
	original := id.NewTupleID()

	v, err := original.Value()
	if err != nil {
		t.Fatal(err)
	}

	var scanned id.ID
	if err := scanned.Scan(v); err != nil {
		t.Fatal(err)
	}
	if !scanned.Equal(original) {
		t.Errorf("scan mismatch: %q != %q", scanned, original)
	}

	var nilID id.ID
	if err := nilID.Scan(nil); err != nil {
		t.Fatal(err)
	}
	if !nilID.IsNil() {
		t.Error("expected nil ID after scanning nil")
	}
}
