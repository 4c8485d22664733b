package service

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tokenbay/marketd/internal/domain"
	"github.com/tokenbay/marketd/internal/ledger"
	"github.com/tokenbay/marketd/internal/registry"
)

var (
	testAuthority = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	testMarket    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testSeller    = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	testBuyer     = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

var (
	feeWei   = big.NewInt(25_000_000)
	priceWei = big.NewInt(100_000_000)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newCore builds a real registry and ledger sharing one journal.
func newCore(t *testing.T) (*registry.Registry, *ledger.Ledger, *ledger.Journal) {
	t.Helper()
	journal := ledger.NewJournal()
	reg := registry.New(testMarket, journal, discardLogger())
	led := ledger.New(reg, testAuthority, testMarket, feeWei, journal, discardLogger())
	return reg, led, journal
}

// listItem mints an item for testSeller and lists it, returning the listing id.
func listItem(t *testing.T, reg *registry.Registry, led *ledger.Ledger, uri string) uint64 {
	t.Helper()
	itemID, err := reg.CreateToken(testSeller, uri)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	listingID, err := led.CreateMarketItem(testSeller, itemID, priceWei, feeWei)
	if err != nil {
		t.Fatalf("CreateMarketItem: %v", err)
	}
	return listingID
}

// countingResolver wraps a URIResolver and counts lookups.
type countingResolver struct {
	inner URIResolver
	calls int
}

func (r *countingResolver) TokenURI(id uint64) (string, error) {
	r.calls++
	return r.inner.TokenURI(id)
}

// memURICache is an in-process URICache for tests.
type memURICache struct {
	mu   sync.Mutex
	uris map[uint64]string
}

func newMemURICache() *memURICache {
	return &memURICache{uris: make(map[uint64]string)}
}

func (c *memURICache) SetURI(_ context.Context, itemID uint64, uri string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uris[itemID] = uri
	return nil
}

func (c *memURICache) GetURI(_ context.Context, itemID uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	uri, ok := c.uris[itemID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return uri, nil
}

func (c *memURICache) Invalidate(_ context.Context, itemID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.uris, itemID)
	return nil
}

func TestUnsoldListingsJoinsMetadata(t *testing.T) {
	reg, led, _ := newCore(t)
	l1 := listItem(t, reg, led, "https://tokens.example/1.json")
	l2 := listItem(t, reg, led, "https://tokens.example/2.json")

	svc := NewQueryService(led, reg, nil, discardLogger())

	views, err := svc.UnsoldListings(context.Background())
	if err != nil {
		t.Fatalf("UnsoldListings: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if views[0].ListingID != l1 || views[1].ListingID != l2 {
		t.Errorf("views out of creation order: %d, %d", views[0].ListingID, views[1].ListingID)
	}
	if views[0].MetadataURI != "https://tokens.example/1.json" {
		t.Errorf("view 1 uri %q", views[0].MetadataURI)
	}
	if views[1].MetadataURI != "https://tokens.example/2.json" {
		t.Errorf("view 2 uri %q", views[1].MetadataURI)
	}
	if views[0].Seller != testSeller || views[0].Owner != testMarket {
		t.Errorf("view 1 parties: seller %s owner %s", views[0].Seller, views[0].Owner)
	}
}

func TestPurchasesOfAndListedBy(t *testing.T) {
	reg, led, _ := newCore(t)
	l1 := listItem(t, reg, led, "https://tokens.example/1.json")
	listItem(t, reg, led, "https://tokens.example/2.json")

	if err := led.CreateMarketSale(testBuyer, l1, priceWei); err != nil {
		t.Fatalf("CreateMarketSale: %v", err)
	}

	svc := NewQueryService(led, reg, nil, discardLogger())
	ctx := context.Background()

	purchases, err := svc.PurchasesOf(ctx, testBuyer)
	if err != nil {
		t.Fatalf("PurchasesOf: %v", err)
	}
	if len(purchases) != 1 || purchases[0].ListingID != l1 || !purchases[0].Sold {
		t.Errorf("purchases %+v", purchases)
	}

	listed, err := svc.ListedBy(ctx, testSeller)
	if err != nil {
		t.Fatalf("ListedBy: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("expected 2 listings by seller, got %d", len(listed))
	}
}

func TestResolveURIUsesCache(t *testing.T) {
	reg, led, _ := newCore(t)
	listItem(t, reg, led, "https://tokens.example/1.json")

	resolver := &countingResolver{inner: reg}
	cache := newMemURICache()
	svc := NewQueryService(led, resolver, cache, discardLogger())
	ctx := context.Background()

	if _, err := svc.UnsoldListings(ctx); err != nil {
		t.Fatalf("UnsoldListings: %v", err)
	}
	if resolver.calls != 1 {
		t.Fatalf("expected one registry lookup, got %d", resolver.calls)
	}

	// Second query is served entirely from the cache back-fill.
	if _, err := svc.UnsoldListings(ctx); err != nil {
		t.Fatalf("UnsoldListings: %v", err)
	}
	if resolver.calls != 1 {
		t.Errorf("expected cache hit, registry lookups %d", resolver.calls)
	}
}

func TestListingViewUnknownListing(t *testing.T) {
	reg, led, _ := newCore(t)
	svc := NewQueryService(led, reg, nil, discardLogger())

	if _, err := svc.ListingView(context.Background(), 7); err == nil {
		t.Error("expected error for unknown listing")
	}
}
