package sqlite

// schema is applied on open; every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	slug       TEXT NOT NULL UNIQUE,
	world      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session_state (
	session_id  INTEGER PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
	state_json  TEXT NOT NULL,
	turn_number INTEGER NOT NULL DEFAULT 0,
	log_index   INTEGER NOT NULL DEFAULT 0,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS text_entries (
	session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	kind       TEXT NOT NULL CHECK (kind IN ('transcript', 'changelog')),
	position   INTEGER NOT NULL,
	content    TEXT NOT NULL,
	PRIMARY KEY (session_id, kind, position)
);

CREATE TABLE IF NOT EXISTS turns (
	session_id       INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	turn_number      INTEGER NOT NULL,
	turn_record_json TEXT NOT NULL,
	created_at       TEXT NOT NULL,
	PRIMARY KEY (session_id, turn_number)
);

CREATE TABLE IF NOT EXISTS previews (
	session_id   INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	preview_id   TEXT NOT NULL,
	payload_json TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	PRIMARY KEY (session_id, preview_id)
);

CREATE TABLE IF NOT EXISTS locks (
	session_id  INTEGER PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
	owner       TEXT NOT NULL,
	ttl_seconds INTEGER NOT NULL,
	acquired_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS characters (
	session_id     INTEGER NOT NULL,
	slug           TEXT NOT NULL,
	character_json TEXT NOT NULL,
	is_shared      INTEGER NOT NULL DEFAULT 0,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL,
	PRIMARY KEY (session_id, slug)
);

CREATE TABLE IF NOT EXISTS entropy (
	entropy_index INTEGER PRIMARY KEY,
	entropy_json  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	session_id    INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	save_id       TEXT NOT NULL,
	save_type     TEXT NOT NULL,
	snapshot_json TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	PRIMARY KEY (session_id, save_id)
);

CREATE TABLE IF NOT EXISTS session_docs (
	session_id   INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	kind         TEXT NOT NULL,
	payload_json TEXT NOT NULL,
	PRIMARY KEY (session_id, kind)
);
`
