package store

import (
	"context"
)

// BlobMetadata describes a blob by its content SHA-1 and size.
type BlobMetadata struct {
	ContentSHA1 Hash
	Size        uint64
}

// BlobStore provides access to the contents and metadata of blobs in
// the backing content-addressed object store. Implementations may be
// backed by a local store, a remote service, or a combination with
// caching in between.
//
// All methods follow the usual context contract: they block, and
// cancelation or deadline expiry of the context causes them to return
// with an error that has the proper gRPC status code attached.
type BlobStore interface {
	// GetBlob returns the full contents of a blob. The returned
	// slice must be treated as immutable.
	GetBlob(ctx context.Context, id Hash) ([]byte, error)
	// GetBlobMetadata returns the size and content SHA-1 of a blob
	// without fetching its contents.
	GetBlobMetadata(ctx context.Context, id Hash) (BlobMetadata, error)
}
