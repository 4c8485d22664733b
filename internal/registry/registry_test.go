package registry

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tokenbay/marketd/internal/domain"
)

var (
	market = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice  = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob    = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func newTestRegistry() *Registry {
	return New(market, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateTokenRoundTrip(t *testing.T) {
	r := newTestRegistry()

	id1, err := r.CreateToken(alice, "https://tokens.example/1.json")
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	id2, err := r.CreateToken(alice, "https://tokens.example/2.json")
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	if id1 != 1 || id2 != 2 {
		t.Errorf("expected sequential ids 1, 2, got %d, %d", id1, id2)
	}

	uri, err := r.TokenURI(id1)
	if err != nil {
		t.Fatalf("TokenURI: %v", err)
	}
	if uri != "https://tokens.example/1.json" {
		t.Errorf("unexpected uri %q", uri)
	}

	custodian, err := r.Custodian(id1)
	if err != nil {
		t.Fatalf("Custodian: %v", err)
	}
	if custodian != alice {
		t.Errorf("expected custodian %s, got %s", alice, custodian)
	}
}

func TestCreateTokenEmptyURI(t *testing.T) {
	r := newTestRegistry()

	if _, err := r.CreateToken(alice, ""); !errors.Is(err, domain.ErrInvalidMetadata) {
		t.Errorf("expected ErrInvalidMetadata, got %v", err)
	}
}

func TestTokenURIUnknownItem(t *testing.T) {
	r := newTestRegistry()

	if _, err := r.TokenURI(42); !errors.Is(err, domain.ErrUnknownItem) {
		t.Errorf("expected ErrUnknownItem, got %v", err)
	}
}

func TestTransferCustodyByOperator(t *testing.T) {
	r := newTestRegistry()
	id, _ := r.CreateToken(alice, "https://tokens.example/1.json")

	// The market address holds the standing capability granted at mint.
	if err := r.TransferCustody(market, id, alice, market); err != nil {
		t.Fatalf("TransferCustody: %v", err)
	}

	custodian, _ := r.Custodian(id)
	if custodian != market {
		t.Errorf("expected custodian %s, got %s", market, custodian)
	}
}

func TestTransferCustodyByCustodian(t *testing.T) {
	r := newTestRegistry()
	id, _ := r.CreateToken(alice, "https://tokens.example/1.json")

	if err := r.TransferCustody(alice, id, alice, bob); err != nil {
		t.Fatalf("TransferCustody: %v", err)
	}

	custodian, _ := r.Custodian(id)
	if custodian != bob {
		t.Errorf("expected custodian %s, got %s", bob, custodian)
	}
}

func TestTransferCustodyNotAuthorized(t *testing.T) {
	r := newTestRegistry()
	id, _ := r.CreateToken(alice, "https://tokens.example/1.json")

	// Bob holds no capability over Alice's item.
	if err := r.TransferCustody(bob, id, alice, bob); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}

	// Even the operator cannot transfer from the wrong account.
	if err := r.TransferCustody(market, id, bob, market); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized for wrong from, got %v", err)
	}

	custodian, _ := r.Custodian(id)
	if custodian != alice {
		t.Errorf("failed transfer must not move custody, got %s", custodian)
	}
}

func TestTransferCustodyUnknownItem(t *testing.T) {
	r := newTestRegistry()

	if err := r.TransferCustody(market, 7, alice, market); !errors.Is(err, domain.ErrUnknownItem) {
		t.Errorf("expected ErrUnknownItem, got %v", err)
	}
}
