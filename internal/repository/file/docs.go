package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"wayfarer/internal/domain/models"
)

func (s *Store) docPath(slug string, kind models.DocKind) string {
	return filepath.Join(s.sessionDir(slug), docsDir, string(kind)+".json")
}

func (s *Store) LoadDoc(ctx context.Context, slug string, kind models.DocKind) (map[string]any, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := s.requireSession(slug); err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := readJSON(s.docPath(slug, kind), &payload); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return payload, nil
}

func (s *Store) SaveDoc(ctx context.Context, slug string, kind models.DocKind, payload map[string]any) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := s.requireSession(slug); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(s.sessionDir(slug), docsDir), 0o755); err != nil {
		return fmt.Errorf("create docs dir: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.docPath(slug, kind), payload)
}
