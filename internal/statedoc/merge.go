// Package statedoc implements the document operations the turn engine needs
// on the open-ended session state: JSON merge patching, leaf-path diffing, a
// drift-detecting stable hash, and schema validation.
package statedoc

import "wayfarer/internal/domain/models"

// Merge applies an RFC 7396-style merge patch to base and returns the merged
// document. Objects merge recursively, explicit nulls delete, every other
// value replaces. Neither input is mutated.
func Merge(base models.State, patch map[string]any) models.State {
	if patch == nil {
		return base.Clone()
	}
	merged := mergeMaps(map[string]any(base.Clone()), patch)
	return models.State(merged)
}

func mergeMaps(base, patch map[string]any) map[string]any {
	if base == nil {
		base = make(map[string]any, len(patch))
	}
	for key, pv := range patch {
		if pv == nil {
			delete(base, key)
			continue
		}
		pm, pIsMap := pv.(map[string]any)
		bm, bIsMap := base[key].(map[string]any)
		if pIsMap && bIsMap {
			base[key] = mergeMaps(bm, pm)
			continue
		}
		if pIsMap {
			base[key] = mergeMaps(nil, pm)
			continue
		}
		base[key] = copyValue(pv)
	}
	return base
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return mergeMaps(nil, t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
