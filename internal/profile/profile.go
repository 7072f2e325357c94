package profile

import (
	"context"
	"errors"
)

// DefaultMaxBatchOps is the staged-operation cap per batch. Callers chunk
// into multiple batches when the seed payload exceeds it.
const DefaultMaxBatchOps = 500

var (
	// ErrCommitFailed wraps batch commit failures. All staged writes in the
	// batch are rolled back together; other batches are unaffected.
	ErrCommitFailed = errors.New("profile batch commit failed")

	// ErrBatchFull is returned by Set once the batch holds its maximum
	// number of staged operations.
	ErrBatchFull = errors.New("profile batch is full")

	// ErrBatchCommitted is returned when staging into an already-committed
	// batch.
	ErrBatchCommitted = errors.New("profile batch already committed")
)

// Batch stages full-document overwrites and applies them atomically on
// Commit. Implementations are safe for concurrent Set calls.
type Batch interface {
	// Set queues a full overwrite of collection/id with fields.
	Set(collection, id string, fields map[string]interface{}) error
	Len() int
	Commit(ctx context.Context) error
}

// Store abstracts the document database's batched write surface.
type Store interface {
	NewBatch() Batch
}
