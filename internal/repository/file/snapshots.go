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

func (s *Store) savePath(slug, saveID string) string {
	return filepath.Join(s.sessionDir(slug), savesDir, saveID+".json")
}

func (s *Store) CreateSnapshot(ctx context.Context, slug string, snap *models.Snapshot) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := s.requireSession(slug); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(s.sessionDir(slug), savesDir), 0o755); err != nil {
		return fmt.Errorf("create saves dir: %w", err)
	}
	path := s.savePath(slug, snap.SaveID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: save %s already exists", domain.ErrConflict, snap.SaveID)
	}
	return writeJSONAtomic(path, snap)
}

func (s *Store) ListSnapshots(ctx context.Context, slug string, limit int) ([]models.SnapshotInfo, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := s.requireSession(slug); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.sessionDir(slug), savesDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read saves dir: %w", err)
	}

	infos := make([]models.SnapshotInfo, 0, len(entries))
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var snap models.Snapshot
		if err := readJSON(filepath.Join(dir, e.Name()), &snap); err != nil {
			continue
		}
		infos = append(infos, models.SnapshotInfo{
			SaveID:    snap.SaveID,
			SaveType:  snap.SaveType,
			Turn:      snap.State.Turn(),
			CreatedAt: snap.CreatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.After(infos[j].CreatedAt) })
	if limit > 0 && limit < len(infos) {
		infos = infos[:limit]
	}
	return infos, nil
}

func (s *Store) LoadSnapshot(ctx context.Context, slug, saveID string) (*models.Snapshot, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := s.requireSession(slug); err != nil {
		return nil, err
	}
	var snap models.Snapshot
	if err := readJSON(s.savePath(slug, saveID), &snap); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: save %s", domain.ErrSessionMissing, saveID)
		}
		return nil, err
	}
	return &snap, nil
}
