package store

import (
	"context"
	"sync"

	"github.com/buildbarn/bb-storage/pkg/eviction"
)

// CachingBlobStore is a BlobStore that additionally exposes a
// non-blocking view of blobs that have recently been fetched.
type CachingBlobStore interface {
	BlobStore

	// GetCachedBlob returns the contents of a blob if and only if
	// they are already present in memory. It never initiates a
	// fetch against the backing store.
	GetCachedBlob(id Hash) ([]byte, bool)
}

type cachingBlobStore struct {
	base             BlobStore
	maximumSizeBytes int64

	lock        sync.Mutex
	blobs       map[string][]byte
	sizeBytes   int64
	evictionSet eviction.Set[string]
}

// NewCachingBlobStore is a decorator for BlobStore that holds up to a
// fixed number of bytes of recently fetched blob contents in memory.
// Virtualized files that are read repeatedly by the operating system
// only hit the backing store once per eviction interval.
func NewCachingBlobStore(base BlobStore, maximumSizeBytes int64, evictionSet eviction.Set[string]) CachingBlobStore {
	return &cachingBlobStore{
		base:             base,
		maximumSizeBytes: maximumSizeBytes,

		blobs:       map[string][]byte{},
		evictionSet: evictionSet,
	}
}

func (bs *cachingBlobStore) makeSpace(needed int64) {
	for bs.sizeBytes+needed > bs.maximumSizeBytes && len(bs.blobs) > 0 {
		key := bs.evictionSet.Peek()
		bs.evictionSet.Remove()
		bs.sizeBytes -= int64(len(bs.blobs[key]))
		delete(bs.blobs, key)
	}
}

func (bs *cachingBlobStore) GetBlob(ctx context.Context, id Hash) ([]byte, error) {
	key := id.String()

	// Check the cache.
	bs.lock.Lock()
	if b, ok := bs.blobs[key]; ok {
		bs.evictionSet.Touch(key)
		bs.lock.Unlock()
		return b, nil
	}
	bs.lock.Unlock()

	// Not found. Fetch from the backing store.
	b, err := bs.base.GetBlob(ctx, id)
	if err != nil {
		return nil, err
	}

	// Insert it into the cache. Blobs larger than the cache itself
	// are returned to the caller without being retained.
	bs.lock.Lock()
	if _, ok := bs.blobs[key]; !ok && int64(len(b)) <= bs.maximumSizeBytes {
		bs.makeSpace(int64(len(b)))
		bs.evictionSet.Insert(key)
		bs.blobs[key] = b
		bs.sizeBytes += int64(len(b))
	}
	bs.lock.Unlock()
	return b, nil
}

func (bs *cachingBlobStore) GetBlobMetadata(ctx context.Context, id Hash) (BlobMetadata, error) {
	key := id.String()
	bs.lock.Lock()
	if b, ok := bs.blobs[key]; ok {
		bs.evictionSet.Touch(key)
		bs.lock.Unlock()
		return BlobMetadata{
			ContentSHA1: SHA1OfBytes(b),
			Size:        uint64(len(b)),
		}, nil
	}
	bs.lock.Unlock()
	return bs.base.GetBlobMetadata(ctx, id)
}

func (bs *cachingBlobStore) GetCachedBlob(id Hash) ([]byte, bool) {
	bs.lock.Lock()
	defer bs.lock.Unlock()

	key := id.String()
	b, ok := bs.blobs[key]
	if ok {
		bs.evictionSet.Touch(key)
	}
	return b, ok
}
