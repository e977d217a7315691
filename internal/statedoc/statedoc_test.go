package statedoc

import (
	"errors"
	"testing"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
)

func TestMerge_NestedAndDelete(t *testing.T) {
	base := models.State{
		"turn":      float64(3),
		"log_index": float64(5),
		"hp":        float64(10),
		"flags":     map[string]any{"met_miller": true, "angry_ogre": false},
		"location":  "bridge",
	}
	patch := map[string]any{
		"hp":       float64(7),
		"flags":    map[string]any{"angry_ogre": true},
		"location": nil,
	}

	merged := Merge(base, patch)

	if merged["hp"] != float64(7) {
		t.Errorf("expected hp 7, got %v", merged["hp"])
	}
	flags := merged["flags"].(map[string]any)
	if flags["met_miller"] != true || flags["angry_ogre"] != true {
		t.Errorf("nested merge wrong: %v", flags)
	}
	if _, ok := merged["location"]; ok {
		t.Error("null patch value should delete the key")
	}
	// base must not be mutated
	if base["hp"] != float64(10) || base["location"] != "bridge" {
		t.Error("Merge mutated the base document")
	}
}

func TestDiff_AddChangeRemove(t *testing.T) {
	base := models.State{"hp": float64(12), "location": "camp", "gone": "yes"}
	next := models.State{"hp": float64(9), "location": "camp", "scene_id": "ambush"}

	diffs := Diff(base, next)
	got := map[string]string{}
	for _, d := range diffs {
		got[d.Path] = d.Changes
	}

	if got["hp"] != "12→9" {
		t.Errorf("hp diff = %q", got["hp"])
	}
	if got["scene_id"] != "→ambush" {
		t.Errorf("scene_id diff = %q", got["scene_id"])
	}
	if got["gone"] != "yes→" {
		t.Errorf("gone diff = %q", got["gone"])
	}
	if _, ok := got["location"]; ok {
		t.Error("unchanged key should not appear in diff")
	}
}

func TestDiff_NestedPaths(t *testing.T) {
	base := models.State{"flags": map[string]any{"door": "locked"}}
	next := models.State{"flags": map[string]any{"door": "open"}}

	diffs := Diff(base, next)
	if len(diffs) != 1 || diffs[0].Path != "flags.door" || diffs[0].Changes != "locked→open" {
		t.Fatalf("unexpected diff: %+v", diffs)
	}
}

func TestStableHash_KeyOrderIndependent(t *testing.T) {
	a := models.State{"hp": float64(10), "location": "camp", "turn": float64(1)}
	b := models.State{"turn": float64(1), "location": "camp", "hp": float64(10)}
	if StableHash(a) != StableHash(b) {
		t.Error("hash must not depend on map iteration order")
	}
}

func TestStableHash_NumberNormalization(t *testing.T) {
	a := models.State{"hp": float64(3)}
	b := models.State{"hp": 3}
	if StableHash(a) != StableHash(b) {
		t.Error("3 and 3.0 must hash identically")
	}
}

func TestStableHash_VolatileFieldsExcluded(t *testing.T) {
	a := models.State{"hp": float64(3), "updated_at": "2024-01-01T00:00:00Z"}
	b := models.State{"hp": float64(3), "updated_at": "2029-06-06T06:06:06Z"}
	if StableHash(a) != StableHash(b) {
		t.Error("updated_at is volatile and must not affect the hash")
	}
}

func TestStableHash_DetectsChange(t *testing.T) {
	a := models.State{"hp": float64(3)}
	b := models.State{"hp": float64(4)}
	if StableHash(a) == StableHash(b) {
		t.Error("different documents must hash differently")
	}
}

func TestValidateState(t *testing.T) {
	tests := []struct {
		name    string
		state   models.State
		wantErr bool
	}{
		{"valid minimal", models.State{"turn": float64(0), "log_index": float64(0)}, false},
		{"missing turn", models.State{"log_index": float64(0)}, true},
		{"negative log_index", models.State{"turn": float64(0), "log_index": float64(-1)}, true},
		{"fractional turn", models.State{"turn": 1.5, "log_index": float64(0)}, true},
		{"bad hp type", models.State{"turn": float64(0), "log_index": float64(0), "hp": "full"}, true},
		{"bad conditions", models.State{"turn": float64(0), "log_index": float64(0), "conditions": []any{1}}, true},
		{"open-ended extras pass", models.State{"turn": float64(0), "log_index": float64(0), "weather": "raining"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateState(tt.state)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr && err != nil && !errors.Is(err, domain.ErrSchemaViolation) {
				t.Errorf("error should wrap ErrSchemaViolation, got %v", err)
			}
		})
	}
}

func TestValidatePatch_RejectsEngineFields(t *testing.T) {
	if err := ValidatePatch(map[string]any{"turn": float64(9)}); err == nil {
		t.Error("patching turn must be rejected")
	}
	if err := ValidatePatch(map[string]any{"log_index": float64(9)}); err == nil {
		t.Error("patching log_index must be rejected")
	}
	if err := ValidatePatch(map[string]any{"hp": float64(9)}); err != nil {
		t.Errorf("ordinary patch rejected: %v", err)
	}
}

func TestValidateSlug(t *testing.T) {
	for _, good := range []string{"abc", "my-session_2", "a1"} {
		if err := ValidateSlug(good); err != nil {
			t.Errorf("slug %q rejected: %v", good, err)
		}
	}
	for _, bad := range []string{"", "Has Space", "UPPER", "-leading", "path/../escape"} {
		if err := ValidateSlug(bad); err == nil {
			t.Errorf("slug %q accepted", bad)
		}
	}
}
