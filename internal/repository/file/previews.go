package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
)

func (s *Store) previewPath(slug, id string) string {
	return filepath.Join(s.sessionDir(slug), previewsDir, id+".json")
}

func (s *Store) SavePreview(ctx context.Context, slug string, p *models.Preview) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := s.requireSession(slug); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(s.sessionDir(slug), previewsDir), 0o755); err != nil {
		return fmt.Errorf("create previews dir: %w", err)
	}
	return writeJSONAtomic(s.previewPath(slug, p.ID), p)
}

func (s *Store) LoadPreview(ctx context.Context, slug, previewID string) (*models.Preview, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := s.requireSession(slug); err != nil {
		return nil, err
	}
	var p models.Preview
	if err := readJSON(s.previewPath(slug, previewID), &p); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPreviewMissing, previewID)
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) DeletePreview(ctx context.Context, slug, previewID string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := s.requireSession(slug); err != nil {
		return err
	}
	err := os.Remove(s.previewPath(slug, previewID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete preview: %w", err)
	}
	return nil
}

func (s *Store) ListPreviews(ctx context.Context, slug string) ([]models.Preview, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := s.requireSession(slug); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.sessionDir(slug), previewsDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read previews dir: %w", err)
	}

	previews := make([]models.Preview, 0, len(entries))
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var p models.Preview
		if err := readJSON(filepath.Join(dir, e.Name()), &p); err != nil {
			continue
		}
		previews = append(previews, p)
	}
	sort.Slice(previews, func(i, j int) bool { return previews[i].CreatedAt.Before(previews[j].CreatedAt) })
	return previews, nil
}
