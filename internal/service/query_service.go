// Package service contains the consumer-side services built around the
// ledger core: the query surface that joins listings with item metadata, the
// indexer that mirrors committed state into PostgreSQL, and the archiver that
// ships journal segments to object storage.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tokenbay/marketd/internal/domain"
)

// ListingSource is the ledger's read surface.
type ListingSource interface {
	GetListing(listingID uint64) (domain.Listing, error)
	FetchUnsoldMarketItems() []domain.Listing
	FetchMyPurchases(owner common.Address) []domain.Listing
	FetchItemsListedBy(seller common.Address) []domain.Listing
}

// URIResolver is the slice of the token registry the query layer needs.
type URIResolver interface {
	TokenURI(id uint64) (string, error)
}

// QueryService resolves listings into display records by joining each
// listing's item against the registry's metadata URI. The join is cached per
// item id; since URIs are immutable the cache never serves stale data.
type QueryService struct {
	ledger   ListingSource
	registry URIResolver
	uris     domain.URICache
	logger   *slog.Logger
}

// NewQueryService creates a QueryService. uris may be nil, in which case
// every lookup goes to the registry.
func NewQueryService(ledger ListingSource, registry URIResolver, uris domain.URICache, logger *slog.Logger) *QueryService {
	return &QueryService{
		ledger:   ledger,
		registry: registry,
		uris:     uris,
		logger:   logger.With(slog.String("component", "query_service")),
	}
}

// UnsoldListings returns every unsold listing as a display record, in
// creation order.
func (s *QueryService) UnsoldListings(ctx context.Context) ([]domain.ListingView, error) {
	return s.views(ctx, s.ledger.FetchUnsoldMarketItems())
}

// PurchasesOf returns the listings owned by owner as display records.
func (s *QueryService) PurchasesOf(ctx context.Context, owner common.Address) ([]domain.ListingView, error) {
	return s.views(ctx, s.ledger.FetchMyPurchases(owner))
}

// ListedBy returns the listings created by seller as display records.
func (s *QueryService) ListedBy(ctx context.Context, seller common.Address) ([]domain.ListingView, error) {
	return s.views(ctx, s.ledger.FetchItemsListedBy(seller))
}

// ListingView resolves a single listing into a display record.
func (s *QueryService) ListingView(ctx context.Context, listingID uint64) (domain.ListingView, error) {
	listing, err := s.ledger.GetListing(listingID)
	if err != nil {
		return domain.ListingView{}, fmt.Errorf("query_service: listing %d: %w", listingID, err)
	}
	return s.view(ctx, listing)
}

func (s *QueryService) views(ctx context.Context, listings []domain.Listing) ([]domain.ListingView, error) {
	out := make([]domain.ListingView, 0, len(listings))
	for _, listing := range listings {
		v, err := s.view(ctx, listing)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *QueryService) view(ctx context.Context, listing domain.Listing) (domain.ListingView, error) {
	uri, err := s.resolveURI(ctx, listing.ItemID)
	if err != nil {
		return domain.ListingView{}, err
	}
	return domain.ListingView{
		ListingID:   listing.ID,
		ItemID:      listing.ItemID,
		MetadataURI: uri,
		Seller:      listing.Seller,
		Owner:       listing.Owner,
		Price:       listing.Price,
		Sold:        listing.Sold,
	}, nil
}

// resolveURI checks the cache first and falls back to the registry on a
// miss, back-filling the cache on the way out. Cache failures are logged but
// never fail the query.
func (s *QueryService) resolveURI(ctx context.Context, itemID uint64) (string, error) {
	if s.uris != nil {
		uri, err := s.uris.GetURI(ctx, itemID)
		if err == nil {
			return uri, nil
		}
	}

	uri, err := s.registry.TokenURI(itemID)
	if err != nil {
		return "", fmt.Errorf("query_service: resolve uri for item %d: %w", itemID, err)
	}

	if s.uris != nil {
		if cacheErr := s.uris.SetURI(ctx, itemID, uri); cacheErr != nil {
			s.logger.WarnContext(ctx, "uri cache set failed",
				slog.Uint64("item_id", itemID),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	return uri, nil
}
