package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"wayfarer/internal/domain/models"
)

func (s *Store) AppendTranscript(ctx context.Context, slug string, lines ...string) (int, error) {
	return s.appendLog(ctx, slug, models.KindTranscript, lines)
}

func (s *Store) AppendChangelog(ctx context.Context, slug string, lines ...string) (int, error) {
	return s.appendLog(ctx, slug, models.KindChangelog, lines)
}

func (s *Store) appendLog(ctx context.Context, slug, kind string, lines []string) (int, error) {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	if err := appendEntriesTx(ctx, tx, id, kind, lines); err != nil {
		return 0, err
	}
	count, err := countEntries(ctx, tx, id, kind)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append: %w", err)
	}
	return count, nil
}

// appendEntriesTx inserts normalized, non-empty lines at dense positions
// continuing from the current count.
func appendEntriesTx(ctx context.Context, tx *sql.Tx, id int64, kind string, lines []string) error {
	position, err := countEntries(ctx, tx, id, kind)
	if err != nil {
		return err
	}
	for _, line := range lines {
		normalized := models.NormalizeEntryText(line)
		if normalized == "" {
			continue
		}
		position++
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO text_entries (session_id, kind, position, content) VALUES (?, ?, ?, ?)`,
			id, kind, position, normalized); err != nil {
			return fmt.Errorf("insert %s entry: %w", kind, err)
		}
	}
	return nil
}

func countEntries(ctx context.Context, q queryer, id int64, kind string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM text_entries WHERE session_id = ? AND kind = ?`, id, kind).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s entries: %w", kind, err)
	}
	return count, nil
}

func (s *Store) LoadTranscript(ctx context.Context, slug string, tail, cursor int) (*models.EntryPage, error) {
	return s.loadLog(ctx, slug, models.KindTranscript, tail, cursor)
}

func (s *Store) LoadChangelog(ctx context.Context, slug string, tail, cursor int) (*models.EntryPage, error) {
	return s.loadLog(ctx, slug, models.KindChangelog, tail, cursor)
}

func (s *Store) loadLog(ctx context.Context, slug, kind string, tail, cursor int) (*models.EntryPage, error) {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	total, err := countEntries(ctx, s.db, id, kind)
	if err != nil {
		return nil, err
	}

	// Positions are dense from 1; cursor wins over tail, matching the
	// filesystem backend's pagination.
	after := 0
	switch {
	case cursor > 0:
		after = cursor
	case tail > 0 && tail < total:
		after = total - tail
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, content FROM text_entries
		WHERE session_id = ? AND kind = ? AND position > ?
		ORDER BY position`, id, kind, after)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}
	defer rows.Close()

	items := make([]models.Entry, 0)
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.ID, &e.Text); err != nil {
			return nil, fmt.Errorf("scan %s entry: %w", kind, err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &models.EntryPage{Items: items, Cursor: total}, nil
}

func (s *Store) LogLengths(ctx context.Context, slug string) (int, int, error) {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return 0, 0, err
	}
	transcript, err := countEntries(ctx, s.db, id, models.KindTranscript)
	if err != nil {
		return 0, 0, err
	}
	changelog, err := countEntries(ctx, s.db, id, models.KindChangelog)
	if err != nil {
		return 0, 0, err
	}
	return transcript, changelog, nil
}
