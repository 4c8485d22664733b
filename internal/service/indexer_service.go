package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tokenbay/marketd/internal/domain"
)

// defaultBatchSize bounds how many journal events one sync pass drains.
const defaultBatchSize = 256

// JournalSource is the committed-transaction journal's read surface.
type JournalSource interface {
	Since(afterSeq uint64, limit int) []domain.Event
}

// IndexerService mirrors committed ledger state into the persistent index
// stores for display-layer and off-ledger consumers. It resumes from the
// last persisted sequence, so restarting never drops or duplicates events.
type IndexerService struct {
	journal  JournalSource
	views    *QueryService
	listings domain.ListingIndexStore
	events   domain.EventStore
	interval time.Duration
	logger   *slog.Logger
}

// NewIndexerService creates an IndexerService polling the journal every
// interval.
func NewIndexerService(
	journal JournalSource,
	views *QueryService,
	listings domain.ListingIndexStore,
	events domain.EventStore,
	interval time.Duration,
	logger *slog.Logger,
) *IndexerService {
	return &IndexerService{
		journal:  journal,
		views:    views,
		listings: listings,
		events:   events,
		interval: interval,
		logger:   logger.With(slog.String("component", "indexer")),
	}
}

// Run polls the journal until the context is cancelled.
func (s *IndexerService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "indexer started", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.Sync(ctx); err != nil {
			s.logger.WarnContext(ctx, "sync pass failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sync drains journal events newer than the last persisted sequence, appends
// them to the event store, and upserts the affected listing views.
func (s *IndexerService) Sync(ctx context.Context) error {
	last, err := s.events.LastSequence(ctx)
	if err != nil {
		return fmt.Errorf("indexer: last sequence: %w", err)
	}

	for {
		batch := s.journal.Since(last, defaultBatchSize)
		if len(batch) == 0 {
			return nil
		}

		if err := s.events.InsertBatch(ctx, batch); err != nil {
			return fmt.Errorf("indexer: insert events: %w", err)
		}

		for _, e := range batch {
			if e.ListingID == 0 {
				continue
			}
			view, err := s.views.ListingView(ctx, e.ListingID)
			if err != nil {
				return fmt.Errorf("indexer: view listing %d: %w", e.ListingID, err)
			}
			if err := s.listings.Upsert(ctx, view); err != nil {
				return fmt.Errorf("indexer: upsert listing %d: %w", e.ListingID, err)
			}
		}

		last = batch[len(batch)-1].Sequence
		s.logger.DebugContext(ctx, "synced journal batch",
			slog.Int("events", len(batch)),
			slog.Uint64("through", last),
		)
	}
}
