package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
)

func (s *Store) sharedCharacterPath(slug string) string {
	return filepath.Join(s.root, sharedCharactersDir, slug+".json")
}

func (s *Store) LoadCharacter(ctx context.Context, slug string) (*models.CharacterRecord, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := s.requireSession(slug); err != nil {
		return nil, err
	}
	var rec models.CharacterRecord
	if err := readJSON(s.sessionPath(slug, characterFile), &rec); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *Store) SaveCharacter(ctx context.Context, slug string, rec *models.CharacterRecord, persistShared bool) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := s.requireSession(slug); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSONAtomic(s.sessionPath(slug, characterFile), rec); err != nil {
		return err
	}
	if persistShared {
		return writeJSONAtomic(s.sharedCharacterPath(rec.Slug), rec)
	}
	return nil
}

func (s *Store) LoadSharedCharacter(ctx context.Context, slug string) (*models.CharacterRecord, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	var rec models.CharacterRecord
	if err := readJSON(s.sharedCharacterPath(slug), &rec); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: shared character %s", domain.ErrSessionMissing, slug)
		}
		return nil, err
	}
	return &rec, nil
}

func (s *Store) SaveSharedCharacter(ctx context.Context, rec *models.CharacterRecord) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.sharedCharacterPath(rec.Slug), rec)
}
