package models

// EntryDelta carries the log lines appended since a subscriber's last
// observed position.
type EntryDelta struct {
	Lines  []Entry `json:"lines"`
	Cursor int     `json:"cursor"`
}

// UpdateEvent is the payload of one SSE "update" event. Sub-objects are
// present only when that artifact changed.
type UpdateEvent struct {
	Turn       int         `json:"turn,omitempty"`
	Transcript *EntryDelta `json:"transcript,omitempty"`
	Changelog  *EntryDelta `json:"changelog,omitempty"`
	Rolls      *RollsDelta `json:"rolls,omitempty"`
}
