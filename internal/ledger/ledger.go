// Package ledger implements the marketplace ledger: the catalog of listed
// items, escrow of their custody, fee capture, and atomic sale execution.
//
// Each listing moves through exactly one transition, Listed -> Sold. Every
// mutating call serializes behind a single lock and either commits all of its
// effects or none of them: all preconditions are checked, the single fallible
// sub-step (the registry custody transfer) runs next, and only then is local
// state touched. A failed call leaves the listing table, the balances, and
// the journal exactly as they were.
package ledger

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tokenbay/marketd/internal/domain"
)

// CustodyRegistry is the slice of the token registry the ledger depends on:
// the capability to move a specific item's custody on a seller's behalf.
type CustodyRegistry interface {
	TransferCustody(caller common.Address, id uint64, from, to common.Address) error
}

// Ledger owns the listing table, the captured fees, and the credit balances.
// No external caller can write any of them directly.
type Ledger struct {
	mu        sync.RWMutex
	registry  CustodyRegistry
	authority common.Address // deploying authority; sets the fee and receives disbursed fees
	account   common.Address // the ledger's own custody account, holder of escrowed items
	fee       *big.Int
	listings  []*domain.Listing // index i holds listing id i+1; ids are never reused
	balances  map[common.Address]*big.Int
	journal   *Journal
	logger    *slog.Logger
}

// New creates a Ledger bound to one registry. authority is the deploying
// account, account is the ledger's own custody address, and listingFee is the
// initial fee charged for every listing.
func New(registry CustodyRegistry, authority, account common.Address, listingFee *big.Int, journal *Journal, logger *slog.Logger) *Ledger {
	if listingFee == nil {
		listingFee = new(big.Int)
	}
	if journal == nil {
		journal = NewJournal()
	}
	return &Ledger{
		registry:  registry,
		authority: authority,
		account:   account,
		fee:       new(big.Int).Set(listingFee),
		balances:  make(map[common.Address]*big.Int),
		journal:   journal,
		logger:    logger.With(slog.String("component", "ledger")),
	}
}

// Account returns the ledger's own custody address.
func (l *Ledger) Account() common.Address {
	return l.account
}

// Journal returns the committed-transaction journal.
func (l *Ledger) Journal() *Journal {
	return l.journal
}

// GetListingPrice returns the fee currently required to create a listing.
func (l *Ledger) GetListingPrice() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.fee)
}

// SetListingPrice updates the listing fee. Only the deploying authority may
// call it; the amount itself is unconstrained.
func (l *Ledger) SetListingPrice(caller common.Address, amount *big.Int) error {
	if caller != l.authority {
		return fmt.Errorf("ledger: set listing price by %s: %w", caller, domain.ErrNotAuthorized)
	}
	if amount == nil {
		amount = new(big.Int)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.fee = new(big.Int).Set(amount)
	l.journal.Record(domain.Event{
		Type:   domain.EventFeeUpdated,
		Actor:  caller,
		Amount: new(big.Int).Set(amount),
	})

	l.logger.Info("listing fee updated", slog.String("fee", amount.String()))
	return nil
}

// CreateMarketItem lists an item for sale. The caller must attach exactly the
// current listing fee; the item's custody moves into escrow under the
// ledger's account, and the fee is captured against the listing, to be
// disbursed to the authority only when the listing sells.
func (l *Ledger) CreateMarketItem(caller common.Address, itemID uint64, price, paidFee *big.Int) (uint64, error) {
	if price == nil || price.Sign() <= 0 {
		return 0, fmt.Errorf("ledger: list item %d: %w", itemID, domain.ErrInvalidPrice)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if paidFee == nil || paidFee.Cmp(l.fee) != 0 {
		return 0, fmt.Errorf("ledger: list item %d: %w", itemID, domain.ErrIncorrectFee)
	}

	// Escrow is the only sub-step that can fail; nothing is staged before it
	// succeeds, so a rejection leaves the ledger untouched.
	if err := l.registry.TransferCustody(l.account, itemID, caller, l.account); err != nil {
		return 0, fmt.Errorf("ledger: escrow item %d: %w", itemID, err)
	}

	id := uint64(len(l.listings)) + 1
	listing := &domain.Listing{
		ID:        id,
		ItemID:    itemID,
		Seller:    caller,
		Owner:     l.account,
		Price:     new(big.Int).Set(price),
		Fee:       new(big.Int).Set(paidFee),
		CreatedAt: time.Now().UTC(),
	}
	l.listings = append(l.listings, listing)

	l.journal.Record(domain.Event{
		Type:      domain.EventItemListed,
		ListingID: id,
		ItemID:    itemID,
		Actor:     caller,
		Amount:    new(big.Int).Set(price),
	})

	l.logger.Info("item listed",
		slog.Uint64("listing_id", id),
		slog.Uint64("item_id", itemID),
		slog.String("seller", caller.Hex()),
		slog.String("price", price.String()),
	)

	return id, nil
}

// CreateMarketSale purchases an unsold listing. The caller must attach
// exactly the listing price. On commit the price is credited to the seller,
// the fee captured at listing time is credited to the authority, custody
// moves from escrow to the buyer, and the listing becomes permanently sold.
func (l *Ledger) CreateMarketSale(caller common.Address, listingID uint64, paidPrice *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	listing, err := l.lookup(listingID)
	if err != nil {
		return fmt.Errorf("ledger: sale: %w", err)
	}
	if listing.Sold {
		return fmt.Errorf("ledger: sale of listing %d: %w", listingID, domain.ErrAlreadySold)
	}
	if paidPrice == nil || paidPrice.Cmp(listing.Price) != 0 {
		return fmt.Errorf("ledger: sale of listing %d: %w", listingID, domain.ErrIncorrectPayment)
	}

	if err := l.registry.TransferCustody(l.account, listing.ItemID, l.account, caller); err != nil {
		return fmt.Errorf("ledger: release item %d: %w", listing.ItemID, err)
	}

	l.credit(listing.Seller, listing.Price)
	l.credit(l.authority, listing.Fee)

	now := time.Now().UTC()
	listing.Owner = caller
	listing.Sold = true
	listing.SoldAt = &now

	l.journal.Record(domain.Event{
		Type:      domain.EventItemSold,
		ListingID: listingID,
		ItemID:    listing.ItemID,
		Actor:     caller,
		Amount:    new(big.Int).Set(listing.Price),
	})

	l.logger.Info("item sold",
		slog.Uint64("listing_id", listingID),
		slog.String("buyer", caller.Hex()),
		slog.String("price", listing.Price.String()),
	)

	return nil
}

// GetListing returns a copy of a single listing.
func (l *Ledger) GetListing(listingID uint64) (domain.Listing, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	listing, err := l.lookup(listingID)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("ledger: get: %w", err)
	}
	return listing.Clone(), nil
}

// FetchUnsoldMarketItems returns every unsold listing in creation order.
func (l *Ledger) FetchUnsoldMarketItems() []domain.Listing {
	return l.fetch(func(listing *domain.Listing) bool {
		return !listing.Sold
	})
}

// FetchMyPurchases returns the listings owned by owner, in creation order.
// Ownership implies the listing has sold; escrowed listings belong to the
// ledger's own account.
func (l *Ledger) FetchMyPurchases(owner common.Address) []domain.Listing {
	return l.fetch(func(listing *domain.Listing) bool {
		return listing.Owner == owner
	})
}

// FetchItemsListedBy returns the listings created by seller, sold or not, in
// creation order.
func (l *Ledger) FetchItemsListedBy(seller common.Address) []domain.Listing {
	return l.fetch(func(listing *domain.Listing) bool {
		return listing.Seller == seller
	})
}

// BalanceOf returns the credit the ledger holds for account: sale proceeds
// for sellers and disbursed fees for the authority.
func (l *Ledger) BalanceOf(account common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if b, ok := l.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// EscrowedFees returns the total of fees captured at listing time that have
// not yet been disbursed through a sale.
func (l *Ledger) EscrowedFees() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := new(big.Int)
	for _, listing := range l.listings {
		if !listing.Sold {
			total.Add(total, listing.Fee)
		}
	}
	return total
}

func (l *Ledger) lookup(listingID uint64) (*domain.Listing, error) {
	if listingID == 0 || listingID > uint64(len(l.listings)) {
		return nil, fmt.Errorf("listing %d: %w", listingID, domain.ErrUnknownListing)
	}
	return l.listings[listingID-1], nil
}

func (l *Ledger) fetch(keep func(*domain.Listing) bool) []domain.Listing {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Listing
	for _, listing := range l.listings {
		if keep(listing) {
			out = append(out, listing.Clone())
		}
	}
	return out
}

func (l *Ledger) credit(account common.Address, amount *big.Int) {
	b, ok := l.balances[account]
	if !ok {
		b = new(big.Int)
		l.balances[account] = b
	}
	b.Add(b, amount)
}
