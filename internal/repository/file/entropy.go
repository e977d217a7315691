package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"wayfarer/internal/domain/models"
)

// The entropy stream lives outside any session: one JSON entry per line,
// index dense from 1, append-only.
func (s *Store) entropyPath() string {
	return filepath.Join(s.root, entropyFile)
}

func (s *Store) AppendEntropy(ctx context.Context, entries []models.EntropyEntry) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readEntropy()
	if err != nil {
		return err
	}
	next := len(existing) + 1
	lines := make([]string, 0, len(entries))
	for i, e := range entries {
		if e.Index != next+i {
			return fmt.Errorf("entropy append out of order: got index %d, want %d", e.Index, next+i)
		}
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal entropy entry: %w", err)
		}
		lines = append(lines, string(data))
	}
	return appendLines(s.entropyPath(), lines)
}

func (s *Store) LoadEntropy(ctx context.Context, index int) (*models.EntropyEntry, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	entries, err := s.readEntropy()
	if err != nil {
		return nil, err
	}
	if index < 1 || index > len(entries) {
		return nil, nil
	}
	entry := entries[index-1]
	return &entry, nil
}

func (s *Store) PeekEntropy(ctx context.Context, limit int) ([]models.EntropyEntry, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	entries, err := s.readEntropy()
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Store) EntropyLength(ctx context.Context) (int, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}
	entries, err := s.readEntropy()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *Store) readEntropy() ([]models.EntropyEntry, error) {
	f, err := os.Open(s.entropyPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open entropy stream: %w", err)
	}
	defer f.Close()

	var entries []models.EntropyEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry models.EntropyEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("parse entropy entry %d: %w", len(entries)+1, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan entropy stream: %w", err)
	}
	return entries, nil
}
