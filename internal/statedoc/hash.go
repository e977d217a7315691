package statedoc

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"wayfarer/internal/domain/models"
)

// volatileFields are excluded from the stable hash: they change without the
// session semantically drifting.
var volatileFields = map[string]struct{}{
	"updated_at": {},
}

// StableHash returns a hex sha256 of the state's canonical serialization:
// keys sorted, numbers in their shortest round-trip form, no whitespace.
// Two states with the same hash are the same document for concurrency
// purposes.
func StableHash(state models.State) string {
	filtered := make(map[string]any, len(state))
	for k, v := range state {
		if _, volatile := volatileFields[k]; volatile {
			continue
		}
		filtered[k] = v
	}
	sum := sha256.Sum256([]byte(canonical(filtered)))
	return hex.EncodeToString(sum[:])
}

// canonical renders any JSON-shaped value deterministically.
func canonical(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		b, _ := json.Marshal(t)
		return string(b)
	case float64:
		return formatNumber(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return formatNumber(f)
		}
		return t.String()
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = canonical(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			kb, _ := json.Marshal(k)
			parts[i] = string(kb) + ":" + canonical(t[k])
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		// Fall back to encoding/json for exotic types that slipped in.
		b, err := json.Marshal(t)
		if err != nil {
			return "null"
		}
		return string(b)
	}
}

// formatNumber keeps integral values free of a decimal point so 3 and 3.0
// hash identically regardless of how they entered the document.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
