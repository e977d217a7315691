package file

import (
	"context"
	"fmt"
	"os"

	"wayfarer/internal/domain/repositories"
)

// CommitTurn applies the turn write set in the fixed order: state, transcript
// appends, changelog appends, turn record, preview delete. The previous state
// bytes and log lengths are captured first; if any step after the state write
// fails, everything written so far is reversed so readers only ever observe
// the before- or after-image.
func (s *Store) CommitTurn(ctx context.Context, slug string, commit *repositories.TurnCommit) (*repositories.CommitPositions, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := s.requireSession(slug); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prevState, err := os.ReadFile(s.sessionPath(slug, stateFile))
	if err != nil {
		return nil, fmt.Errorf("read prior state: %w", err)
	}
	prevTranscript, err := readLogEntries(s.sessionPath(slug, transcriptFile))
	if err != nil {
		return nil, err
	}
	prevChangelog, err := readLogEntries(s.sessionPath(slug, changelogFile))
	if err != nil {
		return nil, err
	}

	if err := writeJSONAtomic(s.sessionPath(slug, stateFile), commit.State); err != nil {
		return nil, fmt.Errorf("commit state: %w", err)
	}

	transcriptCount, err := s.appendLogLocked(slug, transcriptFile, commit.TranscriptLines)
	if err != nil {
		s.reverseCommit(slug, prevState, len(prevTranscript), len(prevChangelog), 0)
		return nil, fmt.Errorf("commit transcript: %w", err)
	}
	changelogCount, err := s.appendLogLocked(slug, changelogFile, commit.ChangelogLines)
	if err != nil {
		s.reverseCommit(slug, prevState, len(prevTranscript), len(prevChangelog), 0)
		return nil, fmt.Errorf("commit changelog: %w", err)
	}

	if commit.TurnRecord != nil {
		if err := s.persistTurnRecordLocked(slug, commit.TurnRecord); err != nil {
			s.reverseCommit(slug, prevState, len(prevTranscript), len(prevChangelog), 0)
			return nil, fmt.Errorf("commit turn record: %w", err)
		}
	}

	if commit.PreviewID != "" {
		err := os.Remove(s.previewPath(slug, commit.PreviewID))
		if err != nil && !os.IsNotExist(err) {
			turn := 0
			if commit.TurnRecord != nil {
				turn = commit.TurnRecord.Turn
			}
			s.reverseCommit(slug, prevState, len(prevTranscript), len(prevChangelog), turn)
			return nil, fmt.Errorf("commit preview delete: %w", err)
		}
	}

	if err := s.touchSession(slug); err != nil {
		s.logger.Warn("session touch after commit failed", "slug", slug, "error", err)
	}

	return &repositories.CommitPositions{
		Transcript: transcriptCount,
		Changelog:  changelogCount,
	}, nil
}

// reverseCommit restores the pre-commit image: prior state bytes, truncated
// logs, and no turn record. Best effort; failures are logged, not returned,
// since the commit error is already on its way to the caller.
func (s *Store) reverseCommit(slug string, prevState []byte, transcriptLen, changelogLen, turn int) {
	if err := writeFileAtomic(s.sessionPath(slug, stateFile), prevState); err != nil {
		s.logger.Error("commit reversal: state restore failed", "slug", slug, "error", err)
	}
	if err := s.truncateLog(slug, transcriptFile, transcriptLen); err != nil {
		s.logger.Error("commit reversal: transcript truncate failed", "slug", slug, "error", err)
	}
	if err := s.truncateLog(slug, changelogFile, changelogLen); err != nil {
		s.logger.Error("commit reversal: changelog truncate failed", "slug", slug, "error", err)
	}
	if turn > 0 {
		if err := os.Remove(s.turnPath(slug, turn)); err != nil && !os.IsNotExist(err) {
			s.logger.Error("commit reversal: turn record delete failed", "slug", slug, "turn", turn, "error", err)
		}
	}
}
