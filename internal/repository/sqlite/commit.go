package sqlite

import (
	"context"
	"fmt"

	"wayfarer/internal/domain/models"
	"wayfarer/internal/domain/repositories"
)

// CommitTurn applies the whole turn write set inside one transaction: state
// update, log appends, optional turn record insert, preview delete. sqlite
// serializes writers, so the transaction is serializable by construction;
// any failure rolls the whole set back.
func (s *Store) CommitTurn(ctx context.Context, slug string, commit *repositories.TurnCommit) (*repositories.CommitPositions, error) {
	id, err := s.sessionID(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin turn commit: %w", err)
	}
	defer tx.Rollback()

	if err := saveStateTx(ctx, tx, id, commit.State); err != nil {
		return nil, err
	}
	if err := appendEntriesTx(ctx, tx, id, models.KindTranscript, commit.TranscriptLines); err != nil {
		return nil, err
	}
	if err := appendEntriesTx(ctx, tx, id, models.KindChangelog, commit.ChangelogLines); err != nil {
		return nil, err
	}
	if commit.TurnRecord != nil {
		if err := persistTurnRecordTx(ctx, tx, id, commit.TurnRecord); err != nil {
			return nil, err
		}
	}
	if commit.PreviewID != "" {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM previews WHERE session_id = ? AND preview_id = ?`, id, commit.PreviewID); err != nil {
			return nil, fmt.Errorf("delete preview: %w", err)
		}
	}

	transcript, err := countEntries(ctx, tx, id, models.KindTranscript)
	if err != nil {
		return nil, err
	}
	changelog, err := countEntries(ctx, tx, id, models.KindChangelog)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit turn: %w", err)
	}
	return &repositories.CommitPositions{Transcript: transcript, Changelog: changelog}, nil
}
