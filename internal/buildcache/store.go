// Package buildcache records the fingerprint of every successful bake so
// unchanged map blocks can be skipped on the next run.
package buildcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedURL is returned by Open for an unknown store scheme.
var ErrUnsupportedURL = errors.New("unsupported hash store url")

// Record is the stored build hash of one map block. It holds nothing that
// varies between identical bakes.
type Record struct {
	BlockID string `msgpack:"block_id"`
	Hash    string `msgpack:"hash"`
}

// Store persists build hash records.
type Store interface {
	// Get returns nil, nil when no record exists for blockID.
	Get(ctx context.Context, blockID string) (*Record, error)
	Put(ctx context.Context, r *Record) error
	Close() error
}

// FormatHash renders a fingerprint the way records store it.
func FormatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

// recordKey normalizes a block id for storage.
func recordKey(blockID string) string {
	return strings.ToLower(blockID)
}
