package models

// DocKind identifies one auxiliary per-session document. Aux docs are plain
// JSON blobs with whole-document replace semantics.
type DocKind string

const (
	DocMood             DocKind = "mood"
	DocDiscoveries      DocKind = "discoveries"
	DocNPCMemory        DocKind = "npc-memory"
	DocNPCRelationships DocKind = "npc-relationships"
	DocLastDiscovery    DocKind = "last-discovery"
	DocAutosaveMeta     DocKind = "autosave-meta"
)

// KnownDocKinds lists every kind the service accepts.
var KnownDocKinds = []DocKind{
	DocMood,
	DocDiscoveries,
	DocNPCMemory,
	DocNPCRelationships,
	DocLastDiscovery,
	DocAutosaveMeta,
}

// ValidDocKind reports whether k names a known aux document.
func ValidDocKind(k DocKind) bool {
	for _, known := range KnownDocKinds {
		if k == known {
			return true
		}
	}
	return false
}
