package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
)

func (s *Store) ListSessions(ctx context.Context) ([]models.SessionInfo, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, sessionsDir))
	if err != nil {
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	infos := make([]models.SessionInfo, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		slug := e.Name()
		var sess models.Session
		if err := readJSON(s.sessionPath(slug, sessionFile), &sess); err != nil {
			// A half-created directory is not a listable session.
			continue
		}
		_, lockErr := os.Stat(s.sessionPath(slug, lockFile))
		infos = append(infos, models.SessionInfo{
			Slug:      sess.Slug,
			World:     sess.World,
			HasLock:   lockErr == nil,
			UpdatedAt: sess.UpdatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Slug < infos[j].Slug })
	return infos, nil
}

func (s *Store) CreateSession(ctx context.Context, sess *models.Session, state models.State, character *models.CharacterRecord, initLine string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.sessionDir(sess.Slug)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%w: session %s already exists", domain.ErrConflict, sess.Slug)
	}
	for _, sub := range []string{dir, dir + "/" + turnsDir, dir + "/" + previewsDir, dir + "/" + savesDir, dir + "/" + docsDir} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return fmt.Errorf("create session dirs: %w", err)
		}
	}

	if err := writeJSONAtomic(s.sessionPath(sess.Slug, sessionFile), sess); err != nil {
		return err
	}
	if err := writeJSONAtomic(s.sessionPath(sess.Slug, stateFile), state); err != nil {
		return err
	}
	if character != nil {
		if err := writeJSONAtomic(s.sessionPath(sess.Slug, characterFile), character); err != nil {
			return err
		}
	}
	if initLine != "" {
		if err := appendLines(s.sessionPath(sess.Slug, transcriptFile), []string{models.NormalizeEntryText(initLine)}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) LoadSession(ctx context.Context, slug string) (*models.Session, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	var sess models.Session
	if err := readJSON(s.sessionPath(slug, sessionFile), &sess); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionMissing, slug)
		}
		return nil, err
	}
	return &sess, nil
}

func (s *Store) LoadState(ctx context.Context, slug string) (models.State, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	var state models.State
	if err := readJSON(s.sessionPath(slug, stateFile), &state); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionMissing, slug)
		}
		return nil, err
	}
	return state, nil
}

func (s *Store) SaveState(ctx context.Context, slug string, state models.State) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := s.requireSession(slug); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSONAtomic(s.sessionPath(slug, stateFile), state); err != nil {
		return err
	}
	return s.touchSession(slug)
}

// touchSession bumps updated_at on the session record.
func (s *Store) touchSession(slug string) error {
	var sess models.Session
	if err := readJSON(s.sessionPath(slug, sessionFile), &sess); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", domain.ErrSessionMissing, slug)
		}
		return err
	}
	sess.UpdatedAt = time.Now().UTC()
	return writeJSONAtomic(s.sessionPath(slug, sessionFile), &sess)
}
