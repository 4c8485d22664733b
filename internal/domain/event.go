package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// EventType names a committed mutation.
type EventType string

const (
	EventTokenMinted EventType = "token_minted"
	EventItemListed  EventType = "item_listed"
	EventItemSold    EventType = "item_sold"
	EventFeeUpdated  EventType = "fee_updated"
)

// Event is one entry of the committed-transaction journal. Failed calls never
// produce events; the sequence therefore numbers exactly the mutations that
// took effect, in the order they were serialized.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Sequence   uint64         `json:"sequence"`
	Type       EventType      `json:"type"`
	ListingID  uint64         `json:"listing_id,omitempty"`
	ItemID     uint64         `json:"item_id,omitempty"`
	Actor      common.Address `json:"actor"`
	Amount     *big.Int       `json:"amount,omitempty"`
	Hash       common.Hash    `json:"hash"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// EventSink receives events for committed mutations. Implementations must not
// fail: by the time an event is recorded the transaction has already
// committed.
type EventSink interface {
	Record(e Event) Event
}
