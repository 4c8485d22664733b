package domain

import "context"

// URICache caches item metadata URIs per item id. URIs are immutable after
// mint, so a stale entry can only ever be a missing one; consumers resolve
// the registry join through this cache rather than hitting the registry for
// every listing.
type URICache interface {
	SetURI(ctx context.Context, itemID uint64, uri string) error
	GetURI(ctx context.Context, itemID uint64) (string, error)
	Invalidate(ctx context.Context, itemID uint64) error
}
