package proxyhash

import (
	"context"

	"github.com/cockroachdb/pebble/v2"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LegacyStore provides access to legacy proxy-hash records, keyed by
// the content hash of the serialized record.
type LegacyStore interface {
	Get(ctx context.Context, id ObjectID) ([]byte, error)
	// GetBatch returns the records for a list of identifiers, in
	// the same order. All identifiers must resolve; a missing
	// record fails the whole batch.
	GetBatch(ctx context.Context, ids []ObjectID) ([][]byte, error)
	Put(ctx context.Context, id ObjectID, value []byte) error
}

// Records of different key spaces share a single Pebble database. This
// prefix takes the place of the column family the records were
// historically stored under.
var legacyStoreKeyPrefix = []byte("hgproxyhash\x00")

type pebbleLegacyStore struct {
	db *pebble.DB
}

// NewPebbleLegacyStore creates a LegacyStore that is backed by a Pebble
// key-value database.
func NewPebbleLegacyStore(db *pebble.DB) LegacyStore {
	return &pebbleLegacyStore{
		db: db,
	}
}

func legacyStoreKey(id ObjectID) []byte {
	return append(append([]byte(nil), legacyStoreKeyPrefix...), id...)
}

func (ls *pebbleLegacyStore) get(reader pebble.Reader, id ObjectID) ([]byte, error) {
	value, closer, err := reader.Get(legacyStoreKey(id))
	if err == pebble.ErrNotFound {
		return nil, status.Errorf(codes.NotFound, "Received unknown proxy hash %#x", []byte(id))
	} else if err != nil {
		return nil, status.Errorf(codes.Unavailable, "Failed to read proxy hash %#x: %s", []byte(id), err)
	}
	// The slice is only valid until the closer is released.
	owned := append([]byte(nil), value...)
	closer.Close()
	return owned, nil
}

func (ls *pebbleLegacyStore) Get(ctx context.Context, id ObjectID) ([]byte, error) {
	return ls.get(ls.db, id)
}

func (ls *pebbleLegacyStore) GetBatch(ctx context.Context, ids []ObjectID) ([][]byte, error) {
	// Resolve the whole batch against a single snapshot, so that a
	// concurrent compaction or write cannot cause the batch to
	// observe a mix of old and new records.
	snapshot := ls.db.NewSnapshot()
	defer snapshot.Close()

	values := make([][]byte, 0, len(ids))
	for _, id := range ids {
		value, err := ls.get(snapshot, id)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

func (ls *pebbleLegacyStore) Put(ctx context.Context, id ObjectID, value []byte) error {
	if err := ls.db.Set(legacyStoreKey(id), value, pebble.Sync); err != nil {
		return status.Errorf(codes.Unavailable, "Failed to write proxy hash %#x: %s", []byte(id), err)
	}
	return nil
}
