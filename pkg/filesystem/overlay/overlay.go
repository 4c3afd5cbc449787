package overlay

import (
	"io"

	"github.com/buildbarn/bb-virtual-checkout/pkg/store"
)

// OverlayFile is a handle to the materialized contents of a single
// inode. Handles are not thread-safe; the inode that owns the handle is
// responsible for serializing access.
type OverlayFile interface {
	io.Closer
	io.ReaderAt
	io.WriterAt

	Truncate(size int64) error
	GetSizeBytes() (int64, error)
}

// Overlay is the local persistent store for files whose authoritative
// contents no longer correspond to an object in the backing store.
// Files are keyed by inode number. A file exists in the overlay from
// the moment CreateFile() is called until RemoveFile() is called,
// independent of how many times it is opened and closed in between.
type Overlay interface {
	// CreateFile materializes a file with the given initial
	// contents. If the content SHA-1 is already known to the
	// caller, it may be passed so that a later GetSHA1() call does
	// not need to hash the file. Creating a file that already
	// exists truncates it and replaces its contents.
	CreateFile(inodeNumber uint64, contents []byte, contentSHA1 *store.Hash) (OverlayFile, error)
	// OpenFile opens a previously materialized file.
	OpenFile(inodeNumber uint64) (OverlayFile, error)
	// RemoveFile discards a materialized file.
	RemoveFile(inodeNumber uint64) error
	// GetSHA1 returns the SHA-1 of the file's current contents,
	// either from the cache maintained by CreateFile() or by
	// hashing the file. Writes and truncations performed through
	// handles returned by this Overlay invalidate the cache.
	GetSHA1(inodeNumber uint64) (store.Hash, error)
}
