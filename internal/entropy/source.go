// Package entropy manages the global, append-only stream of pre-rolled dice
// values. Every random outcome in the engine is drawn from this stream by
// index, which is what makes committed turns replayable.
package entropy

import (
	"context"
	"fmt"

	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
	"wayfarer/internal/domain/repositories"
)

// Source reads and extends the entropy stream. Reads are safe concurrently;
// extension is an operator action and never rewrites existing entries.
type Source struct {
	store repositories.EntropyStore
}

// NewSource wraps the backing store.
func NewSource(store repositories.EntropyStore) *Source {
	return &Source{store: store}
}

// Peek returns the first limit entries of the stream.
func (s *Source) Peek(ctx context.Context, limit int) ([]models.EntropyEntry, error) {
	return s.store.PeekEntropy(ctx, limit)
}

// Load returns the entry at a 1-based index.
func (s *Source) Load(ctx context.Context, index int) (*models.EntropyEntry, error) {
	if index < 1 {
		return nil, fmt.Errorf("%w: index %d", domain.ErrEntropyMissing, index)
	}
	entry, err := s.store.LoadEntropy(ctx, index)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: index %d", domain.ErrEntropyMissing, index)
	}
	return entry, nil
}

// Length returns the highest stored index.
func (s *Source) Length(ctx context.Context) (int, error) {
	return s.store.EntropyLength(ctx)
}

// EnsureAvailable verifies the stream reaches targetIndex. The source never
// auto-extends; a short stream is an operator problem.
func (s *Source) EnsureAvailable(ctx context.Context, targetIndex int) error {
	length, err := s.store.EntropyLength(ctx)
	if err != nil {
		return err
	}
	if targetIndex > length {
		return &domain.EntropyExhaustedError{Need: targetIndex, Have: length}
	}
	return nil
}

// Extend deterministically appends count entries derived from seed. Each
// entry depends only on (seed, index), so extending a stream later reproduces
// exactly the entries a longer initial generation would have produced.
func (s *Source) Extend(ctx context.Context, seed int64, count int) (int, error) {
	if count <= 0 {
		return s.store.EntropyLength(ctx)
	}
	length, err := s.store.EntropyLength(ctx)
	if err != nil {
		return 0, err
	}
	entries := Generate(seed, length+1, count)
	if err := s.store.AppendEntropy(ctx, entries); err != nil {
		return 0, err
	}
	return length + count, nil
}
