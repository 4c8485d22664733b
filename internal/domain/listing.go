package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Listing is a ledger record offering one item for sale at a fixed price.
// A listing is created unsold with the item escrowed under the ledger's own
// custody account, and flips to sold exactly once. Sold listings are kept
// forever for historical queries.
type Listing struct {
	ID        uint64
	ItemID    uint64
	Seller    common.Address
	Owner     common.Address // the ledger's custody account while unsold, the buyer once sold
	Price     *big.Int
	Fee       *big.Int // fee captured at creation, disbursed to the authority on sale
	Sold      bool
	CreatedAt time.Time
	SoldAt    *time.Time
}

// Clone returns an independent copy of the listing, including its amounts.
// The ledger hands out clones so callers can never reach its internal state.
func (l Listing) Clone() Listing {
	c := l
	if l.Price != nil {
		c.Price = new(big.Int).Set(l.Price)
	}
	if l.Fee != nil {
		c.Fee = new(big.Int).Set(l.Fee)
	}
	if l.SoldAt != nil {
		t := *l.SoldAt
		c.SoldAt = &t
	}
	return c
}

// ListingView is the record handed to display and indexing consumers: a
// listing joined with its item's metadata URI.
type ListingView struct {
	ListingID   uint64         `json:"listing_id"`
	ItemID      uint64         `json:"item_id"`
	MetadataURI string         `json:"metadata_uri"`
	Seller      common.Address `json:"seller"`
	Owner       common.Address `json:"owner"`
	Price       *big.Int       `json:"price"`
	Sold        bool           `json:"sold"`
}
