package buildcache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/navbake/internal/logger"
)

// Cache answers whether a block's last successful bake used the same
// fingerprint.
type Cache struct {
	store Store
	log   *zap.Logger
}

// New wraps a store. A nil logger uses the global one.
func New(store Store, log *zap.Logger) *Cache {
	return &Cache{
		store: store,
		log:   logger.Or(log).Named("buildcache"),
	}
}

// Valid reports whether the stored hash of blockID equals hash. A record that
// cannot be read counts as a miss. The only error is ctx's.
func (c *Cache) Valid(ctx context.Context, blockID string, hash uint64) (bool, error) {
	r, err := c.store.Get(ctx, blockID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		c.log.Warn("hash record unreadable, rebuilding", logger.Block(blockID), zap.Error(err))
		return false, nil
	}
	if r == nil {
		return false, nil
	}
	return r.Hash == FormatHash(hash), nil
}

// Commit stores hash as the latest successful bake of blockID.
func (c *Cache) Commit(ctx context.Context, blockID string, hash uint64) error {
	r := &Record{
		BlockID: blockID,
		Hash:    FormatHash(hash),
	}
	if err := c.store.Put(ctx, r); err != nil {
		return fmt.Errorf("storing hash of %s: %w", blockID, err)
	}
	return nil
}

// Lookup returns the stored record of blockID, or nil.
func (c *Cache) Lookup(ctx context.Context, blockID string) (*Record, error) {
	return c.store.Get(ctx, blockID)
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}
