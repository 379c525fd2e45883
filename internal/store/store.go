package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound           = errors.New("document not found")
	ErrFailedPrecondition = errors.New("query requires an index that does not exist")
	ErrBatchTooLarge      = errors.New("batch exceeds maximum number of writes")
	ErrVersionConflict    = errors.New("document version changed")

	errInvalidQuery = errors.New("query has no collection")
)

// SnapshotFunc receives the full result set of a subscribed query each time
// it changes. A non-nil error reports a failed re-query; the subscription
// stays open.
type SnapshotFunc func(Snapshot, error)

// Subscription is a live query. After Close returns no new SnapshotFunc call
// begins; one already running may still finish.
type Subscription interface {
	Close()
}

// Store is the document store the page engine runs on.
type Store interface {
	Get(ctx context.Context, q Query) ([]Record, error)
	GetDoc(ctx context.Context, path string) (Record, error)
	// Subscribe delivers an initial snapshot and then one per change,
	// sequentially, from a goroutine owned by the subscription.
	Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (Subscription, error)
	// Commit applies every op of the batch or none of them.
	Commit(ctx context.Context, b *Batch) error
	Ping(ctx context.Context) error
}
