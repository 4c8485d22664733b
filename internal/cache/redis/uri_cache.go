package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tokenbay/marketd/internal/domain"
)

// uriTTL bounds how long a URI entry lives. URIs are immutable, so the TTL
// exists only to let unused entries fall out of the working set.
const uriTTL = 24 * time.Hour

// URICache implements domain.URICache using Redis string values.
//
// Key schema:
//
//	item:uri:{itemID} - the item's metadata URI
type URICache struct {
	rdb *redis.Client
}

// NewURICache creates a URICache backed by the given Client.
func NewURICache(c *Client) *URICache {
	return &URICache{rdb: c.Underlying()}
}

func uriKey(itemID uint64) string {
	return "item:uri:" + strconv.FormatUint(itemID, 10)
}

// SetURI stores the metadata URI for an item.
func (c *URICache) SetURI(ctx context.Context, itemID uint64, uri string) error {
	if err := c.rdb.Set(ctx, uriKey(itemID), uri, uriTTL).Err(); err != nil {
		return fmt.Errorf("redis: set uri for item %d: %w", itemID, err)
	}
	return nil
}

// GetURI retrieves the metadata URI for an item. It returns
// domain.ErrNotFound on a cache miss.
func (c *URICache) GetURI(ctx context.Context, itemID uint64) (string, error) {
	uri, err := c.rdb.Get(ctx, uriKey(itemID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("redis: get uri for item %d: %w", itemID, err)
	}
	return uri, nil
}

// Invalidate removes the cached URI for an item.
func (c *URICache) Invalidate(ctx context.Context, itemID uint64) error {
	if err := c.rdb.Del(ctx, uriKey(itemID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate uri for item %d: %w", itemID, err)
	}
	return nil
}
