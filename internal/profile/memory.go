package profile

import (
	"context"
	"sync"
)

// MemoryStore keeps collections in process memory. Used for dry runs and as a
// test double; commit applies all staged writes under one lock so a batch is
// observed atomically.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]interface{}
	maxOps      int

	// CommitErr, when set, makes every subsequent batch commit fail with it.
	CommitErr error

	committed int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]interface{}),
		maxOps:      DefaultMaxBatchOps,
	}
}

func (s *MemoryStore) WithMaxBatchOps(n int) *MemoryStore {
	if n > 0 {
		s.maxOps = n
	}
	return s
}

func (s *MemoryStore) NewBatch() Batch {
	return &memoryBatch{store: s, max: s.maxOps}
}

// Get returns the stored document, or nil when absent.
func (s *MemoryStore) Get(collection, id string) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[collection]
	if !ok {
		return nil
	}
	doc, ok := col[id]
	if !ok {
		return nil
	}
	cp := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		cp[k] = v
	}
	return cp
}

// Count returns the number of documents in a collection.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// CommittedBatches returns how many batches have been applied.
func (s *MemoryStore) CommittedBatches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed
}

func (s *MemoryStore) apply(ops []stagedOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CommitErr != nil {
		return commitErr(s.CommitErr)
	}
	for _, op := range ops {
		col, ok := s.collections[op.collection]
		if !ok {
			col = make(map[string]map[string]interface{})
			s.collections[op.collection] = col
		}
		doc := make(map[string]interface{}, len(op.fields))
		for k, v := range op.fields {
			doc[k] = v
		}
		col[op.id] = doc
	}
	s.committed++
	return nil
}

type memoryBatch struct {
	store *MemoryStore
	max   int

	mu        sync.Mutex
	ops       []stagedOp
	committed bool
}

func (b *memoryBatch) Set(collection, id string, fields map[string]interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.committed {
		return ErrBatchCommitted
	}
	if len(b.ops) >= b.max {
		return ErrBatchFull
	}
	b.ops = append(b.ops, stagedOp{collection: collection, id: id, fields: fields})
	return nil
}

func (b *memoryBatch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ops)
}

func (b *memoryBatch) Commit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.committed {
		return ErrBatchCommitted
	}
	if err := ctx.Err(); err != nil {
		return commitErr(err)
	}
	if err := b.store.apply(b.ops); err != nil {
		return err
	}
	b.committed = true
	return nil
}
