package main

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/buildbarn/bb-virtual-checkout/pkg/filesystem/inode"
	"github.com/buildbarn/bb-virtual-checkout/pkg/filesystem/projection"
	"github.com/buildbarn/bb-virtual-checkout/pkg/store"
	"github.com/buildbarn/bb-virtual-checkout/pkg/store/proxyhash"
	"github.com/fxamacker/cbor/v2"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// manifestEntry is a single entry of a directory manifest. For
// directories, Object is the SHA-1 of the child manifest. For files, it
// is the proxy hash object identifier through which the blob is
// resolved.
type manifestEntry struct {
	Name        string `cbor:"1,keyasint"`
	IsDirectory bool   `cbor:"2,keyasint,omitempty"`
	Object      []byte `cbor:"3,keyasint"`
	SizeBytes   uint64 `cbor:"4,keyasint,omitempty"`
	Executable  bool   `cbor:"5,keyasint,omitempty"`
}

type directoryManifest struct {
	Entries []manifestEntry `cbor:"1,keyasint"`
}

// checkoutDispatcher answers projection callbacks from a checked out
// revision, identified by the SHA-1 of its root directory manifest.
// Files that the channel touches get an entry in the inode map, so that
// their materialization state survives graceful restarts.
//
// Mutation notifications describe changes the operating system has
// already applied to the on-disk state. The dispatcher only needs to
// discard the bookkeeping it holds for the affected paths, or move it
// to the new path in the case of a rename.
type checkoutDispatcher struct {
	blobStore   store.CachingBlobStore
	legacyStore proxyhash.LegacyStore
	env         *inode.FileInodeEnvironment
	inodes      *inode.InodeMap
	rootHash    store.Hash

	opendirs      atomic.Uint64
	lookups       atomic.Uint64
	reads         atomic.Uint64
	notifications atomic.Uint64

	lock   sync.Mutex
	byPath map[string]uint64
}

func newCheckoutDispatcher(blobStore store.CachingBlobStore, legacyStore proxyhash.LegacyStore, env *inode.FileInodeEnvironment, inodes *inode.InodeMap, rootHash store.Hash) *checkoutDispatcher {
	return &checkoutDispatcher{
		blobStore:   blobStore,
		legacyStore: legacyStore,
		env:         env,
		inodes:      inodes,
		rootHash:    rootHash,
		byPath:      map[string]uint64{},
	}
}

func (d *checkoutDispatcher) loadManifest(ctx context.Context, hash store.Hash) (*directoryManifest, error) {
	blob, err := d.blobStore.GetBlob(ctx, hash)
	if err != nil {
		return nil, util.StatusWrapf(err, "Failed to load directory manifest %s", hash)
	}
	var manifest directoryManifest
	if err := cbor.Unmarshal(blob, &manifest); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "Directory manifest %s is malformed: %s", hash, err)
	}
	return &manifest, nil
}

// resolve walks a relative path down from the root manifest. The empty
// path resolves to the root directory itself.
func (d *checkoutDispatcher) resolve(ctx context.Context, relativePath string) (manifestEntry, error) {
	entry := manifestEntry{
		IsDirectory: true,
		Object:      d.rootHash[:],
	}
	if relativePath == "" {
		return entry, nil
	}
	for _, name := range strings.Split(relativePath, "/") {
		if !entry.IsDirectory {
			return manifestEntry{}, status.Errorf(codes.NotFound, "Path %#v does not exist", relativePath)
		}
		hash, err := store.NewHashFromBytes(entry.Object)
		if err != nil {
			return manifestEntry{}, util.StatusWrapf(err, "Invalid manifest reference along path %#v", relativePath)
		}
		manifest, err := d.loadManifest(ctx, hash)
		if err != nil {
			return manifestEntry{}, err
		}
		found := false
		for _, child := range manifest.Entries {
			if child.Name == name {
				entry = child
				found = true
				break
			}
		}
		if !found {
			return manifestEntry{}, status.Errorf(codes.NotFound, "Path %#v does not exist", relativePath)
		}
	}
	return entry, nil
}

func entryTypeForManifestEntry(entry manifestEntry) inode.EntryType {
	if entry.Executable {
		return inode.EntryTypeExecutable
	}
	return inode.EntryTypeRegular
}

// getOrCreateInode returns the file inode registered for a path,
// creating a non-materialized one from the manifest entry if the path
// was not touched before.
func (d *checkoutDispatcher) getOrCreateInode(ctx context.Context, relativePath string, entry manifestEntry) (*inode.FileInode, error) {
	d.lock.Lock()
	if inodeNumber, ok := d.byPath[relativePath]; ok {
		if in, ok := d.inodes.Lookup(inodeNumber); ok {
			d.lock.Unlock()
			return in, nil
		}
	}
	d.lock.Unlock()

	// Resolve the proxy hash without holding the path table lock, as
	// this may require a database read.
	ph, err := proxyhash.Load(ctx, d.legacyStore, proxyhash.ObjectID(entry.Object))
	if err != nil {
		return nil, util.StatusWrapf(err, "Failed to resolve object for path %#v", relativePath)
	}
	sizeBytes := entry.SizeBytes

	d.lock.Lock()
	defer d.lock.Unlock()
	if inodeNumber, ok := d.byPath[relativePath]; ok {
		if in, ok := d.inodes.Lookup(inodeNumber); ok {
			return in, nil
		}
	}
	in := inode.NewNotLoadedFileInode(d.env, d.inodes.AllocateInodeNumber(), entryTypeForManifestEntry(entry), ph.RevHash(), &sizeBytes)
	d.inodes.Insert(in)
	d.byPath[relativePath] = in.GetInodeNumber()
	return in, nil
}

func (d *checkoutDispatcher) Opendir(ctx context.Context, relativePath string) ([]projection.DirectoryEntry, error) {
	d.opendirs.Add(1)
	entry, err := d.resolve(ctx, relativePath)
	if err != nil {
		return nil, err
	}
	if !entry.IsDirectory {
		return nil, status.Errorf(codes.InvalidArgument, "Path %#v is not a directory", relativePath)
	}
	hash, err := store.NewHashFromBytes(entry.Object)
	if err != nil {
		return nil, util.StatusWrapf(err, "Invalid manifest reference for path %#v", relativePath)
	}
	manifest, err := d.loadManifest(ctx, hash)
	if err != nil {
		return nil, err
	}
	entries := make([]projection.DirectoryEntry, 0, len(manifest.Entries))
	for _, child := range manifest.Entries {
		entries = append(entries, projection.DirectoryEntry{
			Name:        child.Name,
			IsDirectory: child.IsDirectory,
			SizeBytes:   child.SizeBytes,
		})
	}
	return entries, nil
}

func (d *checkoutDispatcher) Lookup(ctx context.Context, relativePath string) (projection.LookupResult, error) {
	d.lookups.Add(1)
	entry, err := d.resolve(ctx, relativePath)
	if err != nil {
		return projection.LookupResult{}, err
	}
	if entry.IsDirectory {
		return projection.LookupResult{IsDirectory: true}, nil
	}
	in, err := d.getOrCreateInode(ctx, relativePath, entry)
	if err != nil {
		return projection.LookupResult{}, err
	}
	sizeBytes, err := in.GetSizeBytes(ctx)
	if err != nil {
		return projection.LookupResult{}, err
	}
	return projection.LookupResult{SizeBytes: sizeBytes}, nil
}

func (d *checkoutDispatcher) Access(ctx context.Context, relativePath string) (bool, error) {
	d.lookups.Add(1)
	if _, err := d.resolve(ctx, relativePath); status.Code(err) == codes.NotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (d *checkoutDispatcher) Read(ctx context.Context, relativePath string) ([]byte, error) {
	d.reads.Add(1)
	entry, err := d.resolve(ctx, relativePath)
	if err != nil {
		return nil, err
	}
	if entry.IsDirectory {
		return nil, status.Errorf(codes.InvalidArgument, "Path %#v is a directory", relativePath)
	}
	in, err := d.getOrCreateInode(ctx, relativePath, entry)
	if err != nil {
		return nil, err
	}
	sizeBytes, err := in.GetSizeBytes(ctx)
	if err != nil {
		return nil, err
	}
	return in.Read(ctx, 0, sizeBytes)
}

// forgetLocked drops the bookkeeping for a single path. Any overlay
// contents belonging to the inode are discarded as well, as the on-disk
// state is now authoritative.
func (d *checkoutDispatcher) forgetLocked(relativePath string) {
	if inodeNumber, ok := d.byPath[relativePath]; ok {
		delete(d.byPath, relativePath)
		d.inodes.Remove(inodeNumber)
		// A removal failure leaves an unreferenced overlay file
		// behind, which is harmless.
		_ = d.env.Overlay.RemoveFile(inodeNumber)
	}
}

func (d *checkoutDispatcher) forgetSubtreeLocked(relativePath string) {
	prefix := relativePath + "/"
	for p := range d.byPath {
		if strings.HasPrefix(p, prefix) {
			d.forgetLocked(p)
		}
	}
	d.forgetLocked(relativePath)
}

func (d *checkoutDispatcher) FileCreated(ctx context.Context, relativePath string) error {
	d.notifications.Add(1)
	d.lock.Lock()
	defer d.lock.Unlock()
	d.forgetLocked(relativePath)
	return nil
}

func (d *checkoutDispatcher) DirCreated(ctx context.Context, relativePath string) error {
	d.notifications.Add(1)
	return nil
}

func (d *checkoutDispatcher) FileModified(ctx context.Context, relativePath string) error {
	d.notifications.Add(1)
	d.lock.Lock()
	defer d.lock.Unlock()
	d.forgetLocked(relativePath)
	return nil
}

func (d *checkoutDispatcher) FileDeleted(ctx context.Context, relativePath string) error {
	d.notifications.Add(1)
	d.lock.Lock()
	defer d.lock.Unlock()
	d.forgetLocked(relativePath)
	return nil
}

func (d *checkoutDispatcher) DirDeleted(ctx context.Context, relativePath string) error {
	d.notifications.Add(1)
	d.lock.Lock()
	defer d.lock.Unlock()
	d.forgetSubtreeLocked(relativePath)
	return nil
}

func (d *checkoutDispatcher) FileRenamed(ctx context.Context, oldPath, newPath string) error {
	d.notifications.Add(1)

	// Take the rename lock exclusively, so that no materialization
	// notification can observe the path table mid-move.
	d.env.RenameLock.Lock()
	defer d.env.RenameLock.Unlock()
	d.lock.Lock()
	defer d.lock.Unlock()

	oldPrefix := oldPath + "/"
	moves := map[string]string{}
	for p := range d.byPath {
		if p == oldPath {
			moves[p] = newPath
		} else if strings.HasPrefix(p, oldPrefix) {
			moves[p] = newPath + p[len(oldPath):]
		}
	}
	for from, to := range moves {
		d.forgetLocked(to)
		d.byPath[to] = d.byPath[from]
		delete(d.byPath, from)
	}
	return nil
}

// ChildMaterialized records that a file's authoritative contents moved
// into the overlay. The inode map entry already reflects the new state,
// so there is nothing left to update here.
func (d *checkoutDispatcher) ChildMaterialized(ctx context.Context, inodeNumber uint64) {}

func (d *checkoutDispatcher) GetStats() projection.DispatcherStats {
	return projection.DispatcherStats{
		Opendirs:      d.opendirs.Load(),
		Lookups:       d.lookups.Load(),
		Reads:         d.reads.Load(),
		Notifications: d.notifications.Load(),
	}
}

var (
	_ projection.Dispatcher         = (*checkoutDispatcher)(nil)
	_ inode.MaterializationNotifier = (*checkoutDispatcher)(nil)
)
