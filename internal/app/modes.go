package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tokenbay/marketd/internal/service"
)

// IndexMode runs the journal-to-postgres indexer until the context is
// cancelled.
func (a *App) IndexMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting index mode")

	g, ctx := errgroup.WithContext(ctx)

	indexer := service.NewIndexerService(
		deps.Journal, deps.Query, deps.ListingIndex, deps.Events,
		a.cfg.Indexer.PollInterval.Duration, a.logger,
	)
	g.Go(func() error {
		return indexer.Run(ctx)
	})

	return g.Wait()
}

// ArchiveMode runs the journal archiver until the context is cancelled.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	g, ctx := errgroup.WithContext(ctx)

	archiver := service.NewArchiverService(
		deps.Journal, deps.BlobWriter,
		a.cfg.Archiver.Prefix, a.cfg.Archiver.Interval.Duration, a.logger,
	)
	g.Go(func() error {
		return archiver.Run(ctx)
	})

	return g.Wait()
}

// FullMode runs the indexer and the archiver together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	indexer := service.NewIndexerService(
		deps.Journal, deps.Query, deps.ListingIndex, deps.Events,
		a.cfg.Indexer.PollInterval.Duration, a.logger,
	)
	g.Go(func() error {
		return indexer.Run(ctx)
	})

	archiver := service.NewArchiverService(
		deps.Journal, deps.BlobWriter,
		a.cfg.Archiver.Prefix, a.cfg.Archiver.Interval.Duration, a.logger,
	)
	g.Go(func() error {
		return archiver.Run(ctx)
	})

	return g.Wait()
}
