package service

import (
	"context"
	"fmt"
	"log/slog"

	"wayfarer/internal/assets"
	"wayfarer/internal/domain"
	"wayfarer/internal/domain/models"
	"wayfarer/internal/domain/repositories"
	"wayfarer/internal/service/narrator"
)

// transcriptTailForNarrator bounds how much recent context the producer sees.
const transcriptTailForNarrator = 12

// NarrateService calls the narration producer outside the session lock and
// handles the discovery side effects of narrated commits.
type NarrateService struct {
	store    repositories.Storage
	producer narrator.Narrator
	catalog  *assets.Catalog
	engine   *TurnEngine
	logger   *slog.Logger
}

// NewNarrateService wires the narrate flow. producer may be nil, in which
// case Propose fails with ErrUnavailable.
func NewNarrateService(store repositories.Storage, producer narrator.Narrator, catalog *assets.Catalog, engine *TurnEngine, logger *slog.Logger) *NarrateService {
	return &NarrateService{store: store, producer: producer, catalog: catalog, engine: engine, logger: logger}
}

// Propose asks the producer for a turn proposal. No lock is held during the
// round-trip; the caller previews and commits the proposal afterwards.
func (s *NarrateService) Propose(ctx context.Context, slug, playerIntent string) (*narrator.Proposal, error) {
	if s.producer == nil {
		return nil, fmt.Errorf("%w: no narrator configured", domain.ErrUnavailable)
	}

	state, err := s.store.LoadState(ctx, slug)
	if err != nil {
		return nil, err
	}
	sess, err := s.store.LoadSession(ctx, slug)
	if err != nil {
		return nil, err
	}
	tail, err := s.store.LoadTranscript(ctx, slug, transcriptTailForNarrator, 0)
	if err != nil {
		return nil, err
	}

	var hooks []string
	if world := s.catalog.World(sess.World); world != nil {
		for _, h := range world.Hooks {
			hooks = append(hooks, h.Title+": "+h.Text)
		}
	}

	return s.producer.ProposeTurn(ctx, &narrator.Input{
		Slug:           slug,
		State:          state,
		TranscriptTail: tail.Items,
		PlayerIntent:   playerIntent,
		Hooks:          hooks,
	})
}

// CommitAndNarrate commits the preview with its turn record and applies the
// conditional discovery writes: when the DM payload carries a non-empty
// discovery_added object, it is appended to the discovery log and becomes the
// last-discovery document.
func (s *NarrateService) CommitAndNarrate(ctx context.Context, slug, previewID, lockOwner string, record *models.TurnRecord) (*CommitResult, error) {
	result, err := s.engine.Commit(ctx, slug, previewID, lockOwner, record)
	if err != nil {
		return nil, err
	}

	if len(record.DM.Discovery) > 0 {
		s.recordDiscovery(ctx, slug, record.Turn, record.DM.Discovery)
	}
	return result, nil
}

func (s *NarrateService) recordDiscovery(ctx context.Context, slug string, turn int, discovery map[string]any) {
	entry := map[string]any{"turn": turn}
	for k, v := range discovery {
		entry[k] = v
	}

	doc, err := s.store.LoadDoc(ctx, slug, models.DocDiscoveries)
	if err != nil {
		s.logger.Warn("discovery log read failed", "slug", slug, "error", err)
		return
	}
	if doc == nil {
		doc = map[string]any{}
	}
	items, _ := doc["items"].([]any)
	doc["items"] = append(items, entry)

	if err := s.store.SaveDoc(ctx, slug, models.DocDiscoveries, doc); err != nil {
		s.logger.Warn("discovery log write failed", "slug", slug, "error", err)
		return
	}
	if err := s.store.SaveDoc(ctx, slug, models.DocLastDiscovery, entry); err != nil {
		s.logger.Warn("last-discovery write failed", "slug", slug, "error", err)
	}
	s.logger.Info("discovery recorded", "slug", slug, "turn", turn)
}
