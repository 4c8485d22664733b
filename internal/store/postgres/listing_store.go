package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tokenbay/marketd/internal/domain"
)

// ListingIndexStore implements domain.ListingIndexStore using PostgreSQL.
type ListingIndexStore struct {
	pool *pgxpool.Pool
}

// NewListingIndexStore creates a ListingIndexStore backed by the given pool.
func NewListingIndexStore(pool *pgxpool.Pool) *ListingIndexStore {
	return &ListingIndexStore{pool: pool}
}

// Upsert inserts or updates a single listing view.
func (s *ListingIndexStore) Upsert(ctx context.Context, v domain.ListingView) error {
	const query = `
		INSERT INTO listings (
			listing_id, item_id, metadata_uri, seller, owner, price, sold, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (listing_id) DO UPDATE SET
			owner      = EXCLUDED.owner,
			sold       = EXCLUDED.sold,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		v.ListingID, v.ItemID, v.MetadataURI,
		v.Seller.Hex(), v.Owner.Hex(), v.Price.String(), v.Sold,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert listing %d: %w", v.ListingID, err)
	}
	return nil
}

// GetByID returns a single listing view.
func (s *ListingIndexStore) GetByID(ctx context.Context, listingID uint64) (domain.ListingView, error) {
	const query = `
		SELECT listing_id, item_id, metadata_uri, seller, owner, price, sold
		FROM listings WHERE listing_id = $1`

	v, err := scanListingView(s.pool.QueryRow(ctx, query, listingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ListingView{}, domain.ErrNotFound
		}
		return domain.ListingView{}, fmt.Errorf("postgres: get listing %d: %w", listingID, err)
	}
	return v, nil
}

// ListUnsold returns unsold listings in ascending listing id order.
func (s *ListingIndexStore) ListUnsold(ctx context.Context, opts domain.ListOpts) ([]domain.ListingView, error) {
	const query = `
		SELECT listing_id, item_id, metadata_uri, seller, owner, price, sold
		FROM listings WHERE NOT sold
		ORDER BY listing_id`

	return s.list(ctx, "list unsold", query, nil, opts)
}

// ListBySeller returns the listings created by seller, sold or not, in
// ascending listing id order.
func (s *ListingIndexStore) ListBySeller(ctx context.Context, seller common.Address, opts domain.ListOpts) ([]domain.ListingView, error) {
	const query = `
		SELECT listing_id, item_id, metadata_uri, seller, owner, price, sold
		FROM listings WHERE seller = $1
		ORDER BY listing_id`

	return s.list(ctx, "list by seller", query, []any{seller.Hex()}, opts)
}

// ListByOwner returns the listings owned by owner in ascending listing id
// order.
func (s *ListingIndexStore) ListByOwner(ctx context.Context, owner common.Address, opts domain.ListOpts) ([]domain.ListingView, error) {
	const query = `
		SELECT listing_id, item_id, metadata_uri, seller, owner, price, sold
		FROM listings WHERE owner = $1
		ORDER BY listing_id`

	return s.list(ctx, "list by owner", query, []any{owner.Hex()}, opts)
}

// Count returns the total number of indexed listings.
func (s *ListingIndexStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM listings").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count listings: %w", err)
	}
	return count, nil
}

func (s *ListingIndexStore) list(ctx context.Context, verb, query string, args []any, opts domain.ListOpts) ([]domain.ListingView, error) {
	argIdx := len(args) + 1
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", verb, err)
	}
	defer rows.Close()

	var out []domain.ListingView
	for rows.Next() {
		v, err := scanListingView(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: %s: %w", verb, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", verb, err)
	}
	return out, nil
}

// scanListingView scans one listing row, decoding the hex addresses and the
// numeric price.
func scanListingView(row pgx.Row) (domain.ListingView, error) {
	var (
		v             domain.ListingView
		seller, owner string
		price         string
	)
	if err := row.Scan(&v.ListingID, &v.ItemID, &v.MetadataURI, &seller, &owner, &price, &v.Sold); err != nil {
		return domain.ListingView{}, err
	}

	v.Seller = common.HexToAddress(seller)
	v.Owner = common.HexToAddress(owner)

	p, ok := new(big.Int).SetString(price, 10)
	if !ok {
		return domain.ListingView{}, fmt.Errorf("malformed price %q for listing %d", price, v.ListingID)
	}
	v.Price = p

	return v, nil
}
