package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
)

func (s *Store) turnPath(slug string, turn int) string {
	return filepath.Join(s.sessionDir(slug), turnsDir, strconv.Itoa(turn)+".json")
}

func (s *Store) PersistTurnRecord(ctx context.Context, slug string, rec *models.TurnRecord) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := s.requireSession(slug); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistTurnRecordLocked(slug, rec)
}

func (s *Store) persistTurnRecordLocked(slug string, rec *models.TurnRecord) error {
	path := s.turnPath(slug, rec.Turn)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: turn record %d already exists", domain.ErrConflict, rec.Turn)
	}
	return writeJSONAtomic(path, rec)
}

func (s *Store) LoadTurnRecords(ctx context.Context, slug string, limit int) ([]models.TurnRecord, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := s.requireSession(slug); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.sessionDir(slug), turnsDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read turns dir: %w", err)
	}

	turns := make([]int, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".json")
		if n, err := strconv.Atoi(name); err == nil {
			turns = append(turns, n)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(turns)))
	if limit > 0 && limit < len(turns) {
		turns = turns[:limit]
	}

	records := make([]models.TurnRecord, 0, len(turns))
	for _, n := range turns {
		var rec models.TurnRecord
		if err := readJSON(s.turnPath(slug, n), &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Store) LoadTurnRecord(ctx context.Context, slug string, turn int) (*models.TurnRecord, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := s.requireSession(slug); err != nil {
		return nil, err
	}
	var rec models.TurnRecord
	if err := readJSON(s.turnPath(slug, turn), &rec); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *Store) AppendRollsToTurn(ctx context.Context, slug string, turn int, rolls []models.RollResult) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := s.requireSession(slug); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec models.TurnRecord
	if err := readJSON(s.turnPath(slug, turn), &rec); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: no turn record %d", domain.ErrConflict, turn)
		}
		return err
	}
	rec.Rolls = append(rec.Rolls, rolls...)
	return writeJSONAtomic(s.turnPath(slug, turn), &rec)
}
