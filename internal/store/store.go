// Package store defines the persistent key-value store the analysis
// cache is layered over. Implementations live in sub-packages.
package store

import (
	"context"

	"github.com/caesium-cloud/jobassist/internal/event"
	"github.com/pkg/errors"
)

var (
	// ErrQuotaExceeded is returned by Set when applying the write
	// would push the store past its byte quota. Nothing is written.
	ErrQuotaExceeded = errors.New("store quota bytes exceeded")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")
)

// Store is an asynchronous, quota-limited key-value store with batch
// operations. It has no enumeration, transactions across calls or
// secondary indexes.
type Store interface {
	// Get returns the values present for keys. Absent keys are
	// omitted from the result.
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)

	// Set writes every item or none of them.
	Set(ctx context.Context, items map[string][]byte) error

	// Remove deletes keys. Absent keys are ignored.
	Remove(ctx context.Context, keys ...string) error

	// BytesInUse reports the bytes consumed by all items.
	BytesInUse(ctx context.Context) (int64, error)

	// QuotaBytes reports the byte capacity, or 0 if unknown.
	QuotaBytes() int64
}

// Notifier is implemented by stores that publish change events.
type Notifier interface {
	Subscribe(ctx context.Context) (<-chan event.Event, error)
}

// ItemSize is the accounting size of one stored item.
func ItemSize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}
