package models

import "time"

// Session is the root record for one playthrough. The slug doubles as the
// storage key for every artifact the session owns.
type Session struct {
	Slug      string    `json:"slug"`
	World     string    `json:"world"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionInfo is the listing shape returned by GET /sessions.
type SessionInfo struct {
	Slug      string    `json:"slug"`
	World     string    `json:"world"`
	HasLock   bool      `json:"has_lock"`
	UpdatedAt time.Time `json:"updated_at"`
}
