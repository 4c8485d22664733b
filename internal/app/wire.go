package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/tokenbay/marketd/internal/blob/s3"
	"github.com/tokenbay/marketd/internal/cache/redis"
	"github.com/tokenbay/marketd/internal/config"
	"github.com/tokenbay/marketd/internal/domain"
	"github.com/tokenbay/marketd/internal/ledger"
	"github.com/tokenbay/marketd/internal/registry"
	"github.com/tokenbay/marketd/internal/service"
	"github.com/tokenbay/marketd/internal/store/postgres"
)

// Dependencies bundles the ledger core and every consumer-side dependency
// the application modes need. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Core
	Registry *registry.Registry
	Ledger   *ledger.Ledger
	Journal  *ledger.Journal

	// Services
	Query *service.QueryService

	// Stores
	ListingIndex domain.ListingIndexStore
	Events       domain.EventStore

	// Caches
	URICache domain.URICache

	// Blob storage
	BlobWriter domain.BlobWriter
}

// needsPostgres returns true for modes that mirror state into the database.
func needsPostgres(mode string) bool {
	switch mode {
	case "index", "full":
		return true
	default:
		return false
	}
}

// needsRedis returns true for modes that serve resolved listing views.
func needsRedis(mode string) bool {
	switch mode {
	case "index", "full":
		return true
	default:
		return false
	}
}

// needsS3 returns true for modes that archive the journal.
func needsS3(mode string) bool {
	switch mode {
	case "archive", "full":
		return true
	default:
		return false
	}
}

// Wire constructs the ledger core and all concrete dependency
// implementations from the given configuration and returns them together
// with a cleanup function that should be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Ledger core ---
	fee, err := cfg.ListingFee()
	if err != nil {
		return nil, nil, fmt.Errorf("wire: %w", err)
	}

	journal := ledger.NewJournal()
	reg := registry.New(cfg.Account(), journal, logger)
	led := ledger.New(reg, cfg.Authority(), cfg.Account(), fee, journal, logger)

	deps.Registry = reg
	deps.Ledger = led
	deps.Journal = journal

	// --- PostgreSQL (only for modes that mirror state) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.ListingIndex = postgres.NewListingIndexStore(pool)
		deps.Events = postgres.NewEventStore(pool)
	}

	// --- Redis ---
	if needsRedis(cfg.Mode) {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.URICache = redis.NewURICache(redisClient)
	}

	// --- S3 (only for modes that archive) ---
	if needsS3(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// Query service works with or without the URI cache.
	deps.Query = service.NewQueryService(led, reg, deps.URICache, logger)

	return deps, cleanup, nil
}
