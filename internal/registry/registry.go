// Package registry implements the token registry: it mints uniquely
// identified items with immutable metadata URIs and tracks their custody.
// Custody moves only through capability-checked transfers; the marketplace
// ledger holds a standing operator capability granted at construction so it
// can escrow items on a seller's behalf.
package registry

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tokenbay/marketd/internal/domain"
)

// Registry owns the item table. Mutations serialize behind a single lock and
// either commit fully or leave the table untouched.
type Registry struct {
	mu        sync.RWMutex
	items     map[uint64]*domain.Item
	nextID    uint64
	operators map[common.Address]struct{}
	events    domain.EventSink
	logger    *slog.Logger
}

// New creates a Registry. The operator address (the marketplace ledger's
// custody account) is granted a standing capability to transfer custody of
// every item minted here. events may be nil when no journal is attached.
func New(operator common.Address, events domain.EventSink, logger *slog.Logger) *Registry {
	return &Registry{
		items:     make(map[uint64]*domain.Item),
		nextID:    1,
		operators: map[common.Address]struct{}{operator: {}},
		events:    events,
		logger:    logger.With(slog.String("component", "registry")),
	}
}

// CreateToken mints a new item with the next sequential id. The metadata URI
// is stored immutably and custody starts with the caller.
func (r *Registry) CreateToken(caller common.Address, metadataURI string) (uint64, error) {
	if metadataURI == "" {
		return 0, fmt.Errorf("registry: mint for %s: %w", caller, domain.ErrInvalidMetadata)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.items[id] = &domain.Item{
		ID:          id,
		MetadataURI: metadataURI,
		Minter:      caller,
		Custodian:   caller,
		MintedAt:    time.Now().UTC(),
	}

	if r.events != nil {
		r.events.Record(domain.Event{
			Type:   domain.EventTokenMinted,
			ItemID: id,
			Actor:  caller,
		})
	}

	r.logger.Info("minted token",
		slog.Uint64("item_id", id),
		slog.String("minter", caller.Hex()),
	)

	return id, nil
}

// TokenURI returns the metadata URI recorded at mint time.
func (r *Registry) TokenURI(id uint64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return "", fmt.Errorf("registry: token uri %d: %w", id, domain.ErrUnknownItem)
	}
	return item.MetadataURI, nil
}

// Custodian returns the current holder of the item.
func (r *Registry) Custodian(id uint64) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return common.Address{}, fmt.Errorf("registry: custodian %d: %w", id, domain.ErrUnknownItem)
	}
	return item.Custodian, nil
}

// Item returns a copy of the item record.
func (r *Registry) Item(id uint64) (domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return domain.Item{}, fmt.Errorf("registry: item %d: %w", id, domain.ErrUnknownItem)
	}
	return *item, nil
}

// TransferCustody moves custody of id from the current custodian to another
// account. The caller must hold a transfer capability over the item: either
// the standing operator capability or custody of the item itself. The from
// account must match the current custodian exactly.
func (r *Registry) TransferCustody(caller common.Address, id uint64, from, to common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("registry: transfer %d: %w", id, domain.ErrUnknownItem)
	}

	if _, operator := r.operators[caller]; !operator && caller != item.Custodian {
		return fmt.Errorf("registry: transfer %d by %s: %w", id, caller, domain.ErrNotAuthorized)
	}
	if from != item.Custodian {
		return fmt.Errorf("registry: transfer %d from %s: %w", id, from, domain.ErrNotAuthorized)
	}

	item.Custodian = to

	r.logger.Debug("custody transferred",
		slog.Uint64("item_id", id),
		slog.String("from", from.Hex()),
		slog.String("to", to.Hex()),
	)

	return nil
}
