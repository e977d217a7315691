package file

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"wayfarer/internal/domain/models"
)

func (s *Store) AppendTranscript(ctx context.Context, slug string, lines ...string) (int, error) {
	return s.appendLog(ctx, slug, transcriptFile, lines)
}

func (s *Store) AppendChangelog(ctx context.Context, slug string, lines ...string) (int, error) {
	return s.appendLog(ctx, slug, changelogFile, lines)
}

func (s *Store) appendLog(ctx context.Context, slug, name string, lines []string) (int, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}
	if err := s.requireSession(slug); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLogLocked(slug, name, lines)
}

func (s *Store) appendLogLocked(slug, name string, lines []string) (int, error) {
	normalized := make([]string, 0, len(lines))
	for _, line := range lines {
		if n := models.NormalizeEntryText(line); n != "" {
			normalized = append(normalized, n)
		}
	}
	if len(normalized) > 0 {
		if err := appendLines(s.sessionPath(slug, name), normalized); err != nil {
			return 0, err
		}
	}
	entries, err := readLogEntries(s.sessionPath(slug, name))
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *Store) LoadTranscript(ctx context.Context, slug string, tail, cursor int) (*models.EntryPage, error) {
	return s.loadLog(ctx, slug, transcriptFile, tail, cursor)
}

func (s *Store) LoadChangelog(ctx context.Context, slug string, tail, cursor int) (*models.EntryPage, error) {
	return s.loadLog(ctx, slug, changelogFile, tail, cursor)
}

func (s *Store) loadLog(ctx context.Context, slug, name string, tail, cursor int) (*models.EntryPage, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if err := s.requireSession(slug); err != nil {
		return nil, err
	}
	entries, err := readLogEntries(s.sessionPath(slug, name))
	if err != nil {
		return nil, err
	}
	return pageEntries(entries, tail, cursor), nil
}

func (s *Store) LogLengths(ctx context.Context, slug string) (int, int, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, 0, err
	}
	if err := s.requireSession(slug); err != nil {
		return 0, 0, err
	}
	transcript, err := readLogEntries(s.sessionPath(slug, transcriptFile))
	if err != nil {
		return 0, 0, err
	}
	changelog, err := readLogEntries(s.sessionPath(slug, changelogFile))
	if err != nil {
		return 0, 0, err
	}
	return len(transcript), len(changelog), nil
}

// readLogEntries reads a log file, skipping blank lines so positions match
// the relational backend, which stores only non-empty entries.
func readLogEntries(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log: %w", err)
	}
	return entries, nil
}

// pageEntries applies cursor/tail pagination over the in-order entry list.
// Positions are 1-based; cursor wins over tail when both are set.
func pageEntries(entries []string, tail, cursor int) *models.EntryPage {
	start := 0
	switch {
	case cursor > 0:
		if cursor > len(entries) {
			start = len(entries)
		} else {
			start = cursor
		}
	case tail > 0 && tail < len(entries):
		start = len(entries) - tail
	}

	items := make([]models.Entry, 0, len(entries)-start)
	for i := start; i < len(entries); i++ {
		items = append(items, models.Entry{ID: i + 1, Text: entries[i]})
	}
	page := &models.EntryPage{Items: items, Cursor: len(entries)}
	return page
}

// truncateLog rewrites a log keeping only the first keep entries. Used by the
// commit reversal path.
func (s *Store) truncateLog(slug, name string, keep int) error {
	path := s.sessionPath(slug, name)
	entries, err := readLogEntries(path)
	if err != nil {
		return err
	}
	if len(entries) <= keep {
		return nil
	}
	var b strings.Builder
	for _, e := range entries[:keep] {
		b.WriteString(e)
		b.WriteByte('\n')
	}
	return writeFileAtomic(path, []byte(b.String()))
}
