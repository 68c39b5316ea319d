// Package db holds the storage contracts behind the Redis-family vector index
// and the helpers shared by every database driver.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Store is everything the redis driver offers. Consumers depend on the
// narrow interfaces below instead.
//
//nolint:interfacebloat // facade; consumers declare the narrow slice they need
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	Close()
}

// Pinger is any connection that can be pinged.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one hash to write: all of Fields replace whatever Key held.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore writes and removes the HASH keys an FT index covers.
type HashStore interface {
	// HSetMulti writes every item atomically.
	HSetMulti(ctx context.Context, items []HashSetItem) error
	DelMulti(ctx context.Context, keys []string) (int, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore is a byte-value cache with expiry.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager creates and drops FT indexes.
type IndexManager interface {
	CreateIndex(ctx context.Context, schema *Schema) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs FT.SEARCH queries.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Readiness backoff bounds.
const (
	firstPingDelay = 50 * time.Millisecond
	maxPingDelay   = time.Second
)

// WaitReady pings p with exponential backoff until it answers or timeout elapses.
// The last ping error is reported on timeout.
func WaitReady(ctx context.Context, p Pinger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = firstPingDelay
	policy.MaxInterval = maxPingDelay
	policy.MaxElapsedTime = 0

	var last error
	err := backoff.Retry(func() error {
		last = p.Ping(ctx)
		return last
	}, backoff.WithContext(policy, ctx))
	if err == nil {
		return nil
	}
	if last == nil {
		last = err
	}
	return fmt.Errorf("not ready after %v: %w (last error: %w)", timeout, ctx.Err(), last)
}
