package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tokenbay/marketd/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL. The table is an
// append-only copy of the in-process journal.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates an EventStore backed by the given pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// InsertBatch appends a batch of journal events. Re-inserting an already
// persisted sequence is a no-op, which makes indexer retries idempotent.
func (s *EventStore) InsertBatch(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	const query = `
		INSERT INTO ledger_events (
			sequence, id, type, listing_id, item_id, actor, amount, hash, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (sequence) DO NOTHING`

	batch := &pgx.Batch{}
	for _, e := range events {
		var amount *string
		if e.Amount != nil {
			v := e.Amount.String()
			amount = &v
		}
		batch.Queue(query,
			e.Sequence, e.ID, string(e.Type), nullableID(e.ListingID), nullableID(e.ItemID),
			e.Actor.Hex(), amount, e.Hash.Hex(), e.OccurredAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert event batch item %d: %w", i, err)
		}
	}
	return nil
}

// LastSequence returns the highest persisted sequence, or zero for an empty
// table.
func (s *EventStore) LastSequence(ctx context.Context) (uint64, error) {
	var seq uint64
	err := s.pool.QueryRow(ctx,
		"SELECT COALESCE(MAX(sequence), 0) FROM ledger_events",
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("postgres: last event sequence: %w", err)
	}
	return seq, nil
}

// ListSince returns events with a sequence greater than afterSeq in sequence
// order.
func (s *EventStore) ListSince(ctx context.Context, afterSeq uint64, opts domain.ListOpts) ([]domain.Event, error) {
	query := `
		SELECT sequence, id, type, listing_id, item_id, actor, amount, hash, occurred_at
		FROM ledger_events WHERE sequence > $1
		ORDER BY sequence`
	args := []any{afterSeq}

	if opts.Limit > 0 {
		query += " LIMIT $2"
		args = append(args, opts.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: list events: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	return out, nil
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var (
		e                 domain.Event
		id                uuid.UUID
		typ, actor, hash  string
		listingID, itemID *int64
		amount            *string
	)
	if err := row.Scan(&e.Sequence, &id, &typ, &listingID, &itemID, &actor, &amount, &hash, &e.OccurredAt); err != nil {
		return domain.Event{}, err
	}

	e.ID = id
	e.Type = domain.EventType(typ)
	e.Actor = common.HexToAddress(actor)
	e.Hash = common.HexToHash(hash)
	if listingID != nil {
		e.ListingID = uint64(*listingID)
	}
	if itemID != nil {
		e.ItemID = uint64(*itemID)
	}
	if amount != nil {
		a, ok := new(big.Int).SetString(*amount, 10)
		if !ok {
			return domain.Event{}, fmt.Errorf("malformed amount %q for event %d", *amount, e.Sequence)
		}
		e.Amount = a
	}

	return e, nil
}

// nullableID maps a zero id to NULL so unrelated events do not reference
// listing or item zero.
func nullableID(id uint64) *int64 {
	if id == 0 {
		return nil
	}
	v := int64(id)
	return &v
}
