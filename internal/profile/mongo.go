package profile

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on a MongoDB database. A batch commits as
// ordered replace-upserts inside one transaction, so all staged writes apply
// or none do. Requires a replica-set deployment (standalone mongod has no
// transactions).
type MongoStore struct {
	db     *mongo.Database
	maxOps int
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db, maxOps: DefaultMaxBatchOps}
}

// WithMaxBatchOps overrides the staged-operation cap; values < 1 keep the default.
func (s *MongoStore) WithMaxBatchOps(n int) *MongoStore {
	if n > 0 {
		s.maxOps = n
	}
	return s
}

func (s *MongoStore) NewBatch() Batch {
	return &mongoBatch{db: s.db, max: s.maxOps}
}

type stagedOp struct {
	collection string
	id         string
	fields     map[string]interface{}
}

type mongoBatch struct {
	db  *mongo.Database
	max int

	mu        sync.Mutex
	ops       []stagedOp
	committed bool
}

func (b *mongoBatch) Set(collection, id string, fields map[string]interface{}) error {
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

func (b *mongoBatch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ops)
}

func (b *mongoBatch) Commit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.committed {
		return ErrBatchCommitted
	}
	if len(b.ops) == 0 {
		b.committed = true
		return nil
	}

	session, err := b.db.Client().StartSession()
	if err != nil {
		return commitErr(err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for collection, models := range b.writeModels() {
			if _, err := b.db.Collection(collection).BulkWrite(sc, models, options.BulkWrite().SetOrdered(true)); err != nil {
				return nil, fmt.Errorf("bulk write %s: %w", collection, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		// committed stays false so a transient failure can be retried
		return commitErr(err)
	}
	b.committed = true
	return nil
}

// writeModels groups staged ops per collection as replace-upserts keyed by _id.
func (b *mongoBatch) writeModels() map[string][]mongo.WriteModel {
	grouped := make(map[string][]mongo.WriteModel)
	for _, op := range b.ops {
		doc := bson.M{"_id": op.id}
		for k, v := range op.fields {
			doc[k] = v
		}
		model := mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": op.id}).
			SetReplacement(doc).
			SetUpsert(true)
		grouped[op.collection] = append(grouped[op.collection], model)
	}
	return grouped
}

func commitErr(err error) error {
	return fmt.Errorf("%w: %w", ErrCommitFailed, err)
}

// IsTransient reports whether a commit failure was caused by a timeout or
// network condition and is worth retrying.
func IsTransient(err error) bool {
	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}
