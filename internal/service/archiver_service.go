package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tokenbay/marketd/internal/domain"
)

// ArchiverService ships journal segments to object storage as JSONL, one
// object per archive pass, under a date-partitioned prefix. Segments are cut
// at the sequence reached by the previous pass, so the archive is an exact,
// gap-free copy of the journal.
type ArchiverService struct {
	journal  JournalSource
	blob     domain.BlobWriter
	prefix   string
	interval time.Duration
	logger   *slog.Logger

	archived uint64 // highest sequence already shipped
}

// NewArchiverService creates an ArchiverService writing under prefix every
// interval.
func NewArchiverService(
	journal JournalSource,
	blob domain.BlobWriter,
	prefix string,
	interval time.Duration,
	logger *slog.Logger,
) *ArchiverService {
	return &ArchiverService{
		journal:  journal,
		blob:     blob,
		prefix:   prefix,
		interval: interval,
		logger:   logger.With(slog.String("component", "archiver")),
	}
}

// Run archives on a fixed interval until the context is cancelled.
func (s *ArchiverService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "archiver started",
		slog.String("prefix", s.prefix),
		slog.Duration("interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := s.Archive(ctx); err != nil {
			s.logger.WarnContext(ctx, "archive pass failed", slog.String("error", err.Error()))
		}
	}
}

// Archive uploads all journal events newer than the last shipped sequence as
// a single JSONL object. It is a no-op when there is nothing new.
func (s *ArchiverService) Archive(ctx context.Context) error {
	events := s.journal.Since(s.archived, 0)
	if len(events) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("archiver: encode event %d: %w", e.Sequence, err)
		}
	}

	first := events[0].Sequence
	last := events[len(events)-1].Sequence
	path := fmt.Sprintf("%s/%s/events-%010d-%010d.jsonl",
		s.prefix,
		time.Now().UTC().Format("2006/01/02"),
		first, last,
	)

	if err := s.blob.Put(ctx, path, &buf, "application/x-ndjson"); err != nil {
		return fmt.Errorf("archiver: upload segment %s: %w", path, err)
	}

	s.archived = last
	s.logger.InfoContext(ctx, "archived journal segment",
		slog.String("path", path),
		slog.Int("events", len(events)),
	)
	return nil
}
