package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
)

const timeFormat = time.RFC3339Nano

func (s *Store) ListSessions(ctx context.Context) ([]models.SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.slug, s.world, s.updated_at, l.session_id IS NOT NULL
		FROM sessions s
		LEFT JOIN locks l ON l.session_id = s.id
		ORDER BY s.slug`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var infos []models.SessionInfo
	for rows.Next() {
		var info models.SessionInfo
		var updatedAt string
		if err := rows.Scan(&info.Slug, &info.World, &updatedAt, &info.HasLock); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		info.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *Store) CreateSession(ctx context.Context, sess *models.Session, state models.State, character *models.CharacterRecord, initLine string) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create session: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(timeFormat)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (slug, world, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		sess.Slug, sess.World, sess.CreatedAt.UTC().Format(timeFormat), sess.UpdatedAt.UTC().Format(timeFormat))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: session %s already exists", domain.ErrConflict, sess.Slug)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("session id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO session_state (session_id, state_json, turn_number, log_index, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, string(stateJSON), state.Turn(), state.LogIndex(), now); err != nil {
		return fmt.Errorf("insert state: %w", err)
	}

	if character != nil {
		sheetJSON, err := json.Marshal(character)
		if err != nil {
			return fmt.Errorf("marshal character: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO characters (session_id, slug, character_json, is_shared, created_at, updated_at)
			VALUES (?, ?, ?, 0, ?, ?)`,
			id, character.Slug, string(sheetJSON), now, now); err != nil {
			return fmt.Errorf("insert character: %w", err)
		}
	}

	if line := models.NormalizeEntryText(initLine); line != "" {
		if err := appendEntriesTx(ctx, tx, id, models.KindTranscript, []string{line}); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) LoadSession(ctx context.Context, slug string) (*models.Session, error) {
	var sess models.Session
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT slug, world, created_at, updated_at FROM sessions WHERE slug = ?`, slug).
		Scan(&sess.Slug, &sess.World, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionMissing, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	sess.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	sess.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
	return &sess, nil
}

func (s *Store) LoadState(ctx context.Context, slug string) (models.State, error) {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	return loadStateByID(ctx, s.db, id)
}

func loadStateByID(ctx context.Context, q queryer, id int64) (models.State, error) {
	var stateJSON string
	err := q.QueryRowContext(ctx, `SELECT state_json FROM session_state WHERE session_id = ?`, id).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: state row missing", domain.ErrInternal)
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	var state models.State
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return state, nil
}

func (s *Store) SaveState(ctx context.Context, slug string, state models.State) error {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save state: %w", err)
	}
	defer tx.Rollback()
	if err := saveStateTx(ctx, tx, id, state); err != nil {
		return err
	}
	return tx.Commit()
}

// saveStateTx writes the state document and mirrors turn/log_index for
// indexing, bumping the session's updated_at.
func saveStateTx(ctx context.Context, tx *sql.Tx, id int64, state models.State) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	now := time.Now().UTC().Format(timeFormat)
	if _, err := tx.ExecContext(ctx, `
		UPDATE session_state
		SET state_json = ?, turn_number = ?, log_index = ?, updated_at = ?
		WHERE session_id = ?`,
		string(stateJSON), state.Turn(), state.LogIndex(), now, id); err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, now, id); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}
