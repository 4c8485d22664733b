package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// ListOpts provides pagination for list queries against the index stores.
// A zero Limit means no limit.
type ListOpts struct {
	Limit  int
	Offset int
}

// ListingIndexStore mirrors committed listings for the display layer and
// other off-ledger consumers. It is written by the indexer only; the ledger
// itself never reads it back.
type ListingIndexStore interface {
	Upsert(ctx context.Context, v ListingView) error
	GetByID(ctx context.Context, listingID uint64) (ListingView, error)
	ListUnsold(ctx context.Context, opts ListOpts) ([]ListingView, error)
	ListBySeller(ctx context.Context, seller common.Address, opts ListOpts) ([]ListingView, error)
	ListByOwner(ctx context.Context, owner common.Address, opts ListOpts) ([]ListingView, error)
	Count(ctx context.Context) (int64, error)
}

// EventStore persists the committed-transaction journal.
type EventStore interface {
	InsertBatch(ctx context.Context, events []Event) error
	LastSequence(ctx context.Context) (uint64, error)
	ListSince(ctx context.Context, afterSeq uint64, opts ListOpts) ([]Event, error)
}
