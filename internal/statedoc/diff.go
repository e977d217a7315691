package statedoc

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"wayfarer/internal/domain/models"
)

// Diff enumerates leaf-level changes from base to next as dotted paths.
// Arrays are treated as leaves: any element change rewrites the whole path.
func Diff(base, next models.State) []models.DiffEntry {
	var out []models.DiffEntry
	diffMaps("", map[string]any(base), map[string]any(next), &out)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func diffMaps(prefix string, base, next map[string]any, out *[]models.DiffEntry) {
	keys := make(map[string]struct{}, len(base)+len(next))
	for k := range base {
		keys[k] = struct{}{}
	}
	for k := range next {
		keys[k] = struct{}{}
	}

	for k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		bv, inBase := base[k]
		nv, inNext := next[k]

		switch {
		case !inBase:
			*out = append(*out, models.DiffEntry{Path: path, Changes: "→" + render(nv)})
		case !inNext:
			*out = append(*out, models.DiffEntry{Path: path, Changes: render(bv) + "→"})
		default:
			bm, bIsMap := bv.(map[string]any)
			nm, nIsMap := nv.(map[string]any)
			if bIsMap && nIsMap {
				diffMaps(path, bm, nm, out)
				continue
			}
			if !equalValue(bv, nv) {
				*out = append(*out, models.DiffEntry{Path: path, Changes: render(bv) + "→" + render(nv)})
			}
		}
	}
}

func equalValue(a, b any) bool {
	return canonical(a) == canonical(b)
}

// render formats a leaf value for the human-facing diff summary.
func render(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case float64:
		return formatNumber(t)
	case bool:
		return fmt.Sprintf("%t", t)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = render(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
