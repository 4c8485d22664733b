package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/tokenbay/marketd/internal/domain"
)

// Journal is the in-memory committed-transaction log shared by the registry
// and the ledger. Entries are appended only after a mutation has committed,
// so consumers polling Since observe a prefix of the serialized history and
// never a transaction mid-flight.
type Journal struct {
	mu     sync.RWMutex
	events []domain.Event
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record assigns the next sequence number, an id, a content hash, and a
// timestamp to e, appends it, and returns the completed event.
func (j *Journal) Record(e domain.Event) domain.Event {
	j.mu.Lock()
	defer j.mu.Unlock()

	e.Sequence = uint64(len(j.events)) + 1
	e.ID = uuid.New()
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	e.Hash = crypto.Keccak256Hash(fmt.Appendf(nil,
		"%d|%s|%d|%d|%s|%s",
		e.Sequence, e.Type, e.ListingID, e.ItemID, e.Actor.Hex(), e.Amount,
	))

	j.events = append(j.events, e)
	return e
}

// Since returns events with a sequence number greater than afterSeq, in
// sequence order. A zero limit returns all of them.
func (j *Journal) Since(afterSeq uint64, limit int) []domain.Event {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if afterSeq >= uint64(len(j.events)) {
		return nil
	}

	tail := j.events[afterSeq:]
	if limit > 0 && len(tail) > limit {
		tail = tail[:limit]
	}

	out := make([]domain.Event, len(tail))
	copy(out, tail)
	return out
}

// LastSequence returns the sequence number of the newest event, or zero for
// an empty journal.
func (j *Journal) LastSequence() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return uint64(len(j.events))
}
