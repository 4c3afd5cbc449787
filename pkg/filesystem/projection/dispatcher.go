package projection

import (
	"context"
)

// LookupResult describes a single path resolved through the dispatcher.
type LookupResult struct {
	IsDirectory bool
	SizeBytes   uint64
}

// DirectoryEntry is a single entry of a directory listing, in the form
// consumed by enumeration sessions.
type DirectoryEntry struct {
	Name        string
	IsDirectory bool
	SizeBytes   uint64
}

// DispatcherStats is a snapshot of the counters a dispatcher keeps on
// the operations it served.
type DispatcherStats struct {
	Opendirs      uint64
	Lookups       uint64
	Reads         uint64
	Notifications uint64
}

// Dispatcher answers filesystem queries from the backing object store
// and applies post-mutation notifications to the inode tree. All paths
// are relative to the mount root, with the empty string denoting the
// root itself.
//
// Paths handed to the mutation methods refer to on-disk state that the
// operating system has already committed. Errors returned by them can
// therefore not undo the mutation; the channel logs them and reports
// success to the projection service.
type Dispatcher interface {
	// Opendir returns the listing of a directory.
	Opendir(ctx context.Context, relativePath string) ([]DirectoryEntry, error)
	// Lookup resolves a single path. Absent paths return a NotFound
	// error.
	Lookup(ctx context.Context, relativePath string) (LookupResult, error)
	// Access reports whether a path exists.
	Access(ctx context.Context, relativePath string) (bool, error)
	// Read returns the full contents of the file at a path.
	Read(ctx context.Context, relativePath string) ([]byte, error)

	FileCreated(ctx context.Context, relativePath string) error
	DirCreated(ctx context.Context, relativePath string) error
	FileModified(ctx context.Context, relativePath string) error
	FileDeleted(ctx context.Context, relativePath string) error
	DirDeleted(ctx context.Context, relativePath string) error
	FileRenamed(ctx context.Context, oldPath, newPath string) error

	// GetStats returns a snapshot of the dispatcher's operation
	// counters.
	GetStats() DispatcherStats
}
