package inode

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/buildbarn/bb-virtual-checkout/pkg/filesystem/overlay"
	"github.com/buildbarn/bb-virtual-checkout/pkg/store"

	"google.golang.org/grpc/status"
)

// EntryType classifies a working copy entry the way tree objects in the
// backing store do.
type EntryType int

const (
	// EntryTypeRegular is an ordinary file.
	EntryTypeRegular EntryType = iota
	// EntryTypeExecutable is a file with the executable bit set.
	EntryTypeExecutable
	// EntryTypeSymlink is a symbolic link.
	EntryTypeSymlink
	// EntryTypeDirectory is a directory. Directories have no file
	// inode of their own, but identity comparison of tree entries
	// still needs to distinguish them.
	EntryTypeDirectory
)

// MaterializationNotifier is informed whenever a file transitions into
// the materialized state, so that the parent directory can record that
// the child's authoritative contents now live in the overlay. The
// notification is delivered after the inode's state lock has been
// released, under the rename lock.
type MaterializationNotifier interface {
	ChildMaterialized(ctx context.Context, inodeNumber uint64)
}

// FileInodeEnvironment bundles the external collaborators that every
// file inode needs to load, materialize and compare its contents.
type FileInodeEnvironment struct {
	BlobStore  store.CachingBlobStore
	Overlay    overlay.Overlay
	RenameLock *sync.RWMutex
	Notifier   MaterializationNotifier
}

type fileInodeState int

const (
	stateNotLoaded fileInodeState = iota
	stateLoading
	stateMaterialized
)

// nonMaterializedState is the part of a file inode's state that only
// exists while the backing store remains authoritative for its
// contents.
type nonMaterializedState struct {
	hash      store.Hash
	sizeBytes *uint64
}

// loadingPromise is shared between all callers waiting for the same
// blob fetch. The channel is closed exactly once, after blob and err
// have been set. A nil blob with a nil error means the fetch was
// preempted because the file got materialized by truncation.
type loadingPromise struct {
	done chan struct{}
	blob []byte
	err  error
}

// FileInode coordinates the lifecycle of a single file in the working
// copy. A file starts out non-materialized, with the backing store
// holding its authoritative contents under a fixed hash. Reads cause
// the blob to be loaded into memory; writes and truncations move the
// authoritative contents into the overlay, from which they never
// return.
//
// All state transitions are serialized by a single per-inode lock.
// Blob fetches run without holding the lock; callers that depend on
// their completion wait on a shared promise and retry.
type FileInode struct {
	env         *FileInodeEnvironment
	inodeNumber uint64
	entryType   EntryType

	lock            sync.Mutex
	state           fileInodeState
	nonMaterialized *nonMaterializedState
	loading         *loadingPromise
	blob            []byte
	coverage        CoverageSet
}

// NewNotLoadedFileInode creates a file inode whose contents still live
// in the backing store. The size may be passed if the tree entry
// already provided it, which makes GetSizeBytes() not need a metadata fetch.
func NewNotLoadedFileInode(env *FileInodeEnvironment, inodeNumber uint64, entryType EntryType, hash store.Hash, sizeBytes *uint64) *FileInode {
	return &FileInode{
		env:         env,
		inodeNumber: inodeNumber,
		entryType:   entryType,
		state:       stateNotLoaded,
		nonMaterialized: &nonMaterializedState{
			hash:      hash,
			sizeBytes: sizeBytes,
		},
	}
}

// NewMaterializedFileInode creates a file inode whose authoritative
// contents already live in the overlay, such as one recovered from a
// previous incarnation of the daemon.
func NewMaterializedFileInode(env *FileInodeEnvironment, inodeNumber uint64, entryType EntryType) *FileInode {
	return &FileInode{
		env:         env,
		inodeNumber: inodeNumber,
		entryType:   entryType,
		state:       stateMaterialized,
	}
}

// GetInodeNumber returns the number under which this inode is
// registered in the inode map and the overlay.
func (in *FileInode) GetInodeNumber() uint64 {
	return in.inodeNumber
}

// GetEntryType returns the tree entry type of this inode.
func (in *FileInode) GetEntryType() EntryType {
	return in.entryType
}

// checkInvariantsLocked validates the state tag against its required
// substate. It must be called before every release of the state lock.
// A mismatch means a transition left the inode in a state that no other
// code path can safely interpret, which cannot be recovered from.
func (in *FileInode) checkInvariantsLocked() {
	switch in.state {
	case stateNotLoaded:
		if in.nonMaterialized == nil || in.loading != nil {
			panic(fmt.Sprintf("File inode %d is in the not-loaded state with an inconsistent substate", in.inodeNumber))
		}
	case stateLoading:
		if in.nonMaterialized == nil || in.loading == nil || in.blob != nil || !in.coverage.IsEmpty() {
			panic(fmt.Sprintf("File inode %d is in the loading state with an inconsistent substate", in.inodeNumber))
		}
	case stateMaterialized:
		if in.nonMaterialized != nil || in.loading != nil || in.blob != nil || !in.coverage.IsEmpty() {
			panic(fmt.Sprintf("File inode %d is in the materialized state with an inconsistent substate", in.inodeNumber))
		}
	}
}

func (in *FileInode) unlock() {
	in.checkInvariantsLocked()
	in.lock.Unlock()
}

// startLoadingLocked flips the state from not-loaded to loading and
// kicks off the blob fetch. The fetch uses its own context, so that a
// caller giving up does not abort a load that other callers may be
// waiting on; results of loads nobody cares about anymore are simply
// discarded.
func (in *FileInode) startLoadingLocked() *loadingPromise {
	p := &loadingPromise{done: make(chan struct{})}
	in.state = stateLoading
	in.loading = p
	in.blob = nil
	in.coverage.Clear()
	hash := in.nonMaterialized.hash

	go func() {
		blob, err := in.env.BlobStore.GetBlob(context.Background(), hash)
		in.finishLoading(p, blob, err)
	}()
	return p
}

func (in *FileInode) finishLoading(p *loadingPromise, blob []byte, err error) {
	in.lock.Lock()
	switch in.state {
	case stateLoading:
		in.loading = nil
		in.state = stateNotLoaded
		if err == nil {
			in.blob = blob
		}
		in.unlock()
		p.blob = blob
		p.err = err
		close(p.done)
	case stateMaterialized:
		// A truncation preempted the load and already fulfilled
		// the promise.
		in.unlock()
	case stateNotLoaded:
		panic(fmt.Sprintf("File inode %d returned to the not-loaded state while a load was in flight", in.inodeNumber))
	}
}

// waitForLoad blocks until a loading promise resolves. The promise
// outcome is only used to propagate fetch failures; callers re-examine
// the inode state afterwards, as it may have changed again in the
// meantime.
func (in *FileInode) waitForLoad(ctx context.Context, p *loadingPromise) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return status.FromContextError(ctx.Err()).Err()
	}
}

// materializeNowLocked moves the blob's contents into the overlay and
// flips the state tag. The caller must deliver the materialization
// notification once the state lock has been released.
func (in *FileInode) materializeNowLocked(blob []byte) error {
	contentSHA1 := store.SHA1OfBytes(blob)
	f, err := in.env.Overlay.CreateFile(in.inodeNumber, blob, &contentSHA1)
	if err != nil {
		return util.StatusWrapf(err, "Failed to materialize inode %d in the overlay", in.inodeNumber)
	}
	f.Close()

	in.state = stateMaterialized
	in.nonMaterialized = nil
	in.loading = nil
	in.blob = nil
	in.coverage.Clear()
	return nil
}

// notifyMaterialized reports the transition into the materialized state
// to the parent directory. It must be called without holding the state
// lock, as the parent may call back into this inode.
func (in *FileInode) notifyMaterialized(ctx context.Context) {
	in.env.RenameLock.RLock()
	in.env.Notifier.ChildMaterialized(ctx, in.inodeNumber)
	in.env.RenameLock.RUnlock()
}

// getBlobLocked returns the in-memory blob if one is available without
// fetching, either because a load completed earlier or because the blob
// store still caches it.
func (in *FileInode) getBlobLocked() ([]byte, bool) {
	if in.blob != nil {
		return in.blob, true
	}
	if blob, ok := in.env.BlobStore.GetCachedBlob(in.nonMaterialized.hash); ok {
		in.blob = blob
		return blob, true
	}
	return nil, false
}

// runWhileLoaded invokes the callback with the file's blob bytes, or
// with a nil blob if the file is materialized. The callback runs with
// the state lock held.
func (in *FileInode) runWhileLoaded(ctx context.Context, fn func(blob []byte) error) error {
	for {
		in.lock.Lock()
		switch in.state {
		case stateMaterialized:
			err := fn(nil)
			in.unlock()
			return err
		case stateNotLoaded:
			if blob, ok := in.getBlobLocked(); ok {
				err := fn(blob)
				in.unlock()
				return err
			}
			p := in.startLoadingLocked()
			in.unlock()
			if err := in.waitForLoad(ctx, p); err != nil {
				return err
			}
		case stateLoading:
			p := in.loading
			in.unlock()
			if err := in.waitForLoad(ctx, p); err != nil {
				return err
			}
		}
	}
}

// runWhileMaterialized invokes the callback with the file materialized
// in the overlay, materializing it first if needed. The callback runs
// with the state lock held.
func (in *FileInode) runWhileMaterialized(ctx context.Context, fn func() error) error {
	for {
		in.lock.Lock()
		switch in.state {
		case stateMaterialized:
			err := fn()
			in.unlock()
			return err
		case stateNotLoaded:
			if blob, ok := in.getBlobLocked(); ok {
				if err := in.materializeNowLocked(blob); err != nil {
					in.unlock()
					return err
				}
				err := fn()
				in.unlock()
				in.notifyMaterialized(ctx)
				return err
			}
			p := in.startLoadingLocked()
			in.unlock()
			if err := in.waitForLoad(ctx, p); err != nil {
				return err
			}
		case stateLoading:
			p := in.loading
			in.unlock()
			if err := in.waitForLoad(ctx, p); err != nil {
				return err
			}
		}
	}
}

// TruncateAndRun materializes the file with empty contents and invokes
// the callback. Because the previous contents are discarded entirely,
// this does not need to wait for any load that may be in flight; such a
// load is preempted and its waiters learn that the file is now
// materialized.
func (in *FileInode) TruncateAndRun(ctx context.Context, fn func() error) error {
	in.lock.Lock()
	switch in.state {
	case stateMaterialized:
		f, err := in.env.Overlay.OpenFile(in.inodeNumber)
		if err == nil {
			err = f.Truncate(0)
			f.Close()
		}
		if err != nil {
			in.unlock()
			return util.StatusWrapf(err, "Failed to truncate inode %d in the overlay", in.inodeNumber)
		}
		err = fn()
		in.unlock()
		return err
	case stateNotLoaded, stateLoading:
		p := in.loading
		if err := in.materializeNowLocked(nil); err != nil {
			in.unlock()
			return err
		}
		err := fn()
		in.unlock()
		if p != nil {
			close(p.done)
		}
		in.notifyMaterialized(ctx)
		return err
	}
	panic("Unknown file inode state")
}

// Read returns up to length bytes of the file at the given offset.
// Reads at or beyond the end of the file return an empty slice. For a
// non-materialized file, the delivered range is recorded, and once
// every byte of the blob has been delivered the in-memory copy is
// released.
func (in *FileInode) Read(ctx context.Context, offset, length uint64) ([]byte, error) {
	var result []byte
	err := in.runWhileLoaded(ctx, func(blob []byte) error {
		if blob == nil {
			f, err := in.env.Overlay.OpenFile(in.inodeNumber)
			if err != nil {
				return util.StatusWrapf(err, "Failed to open inode %d in the overlay", in.inodeNumber)
			}
			defer f.Close()
			buffer := make([]byte, length)
			n, err := f.ReadAt(buffer, int64(offset))
			if err != nil && err != io.EOF {
				return util.StatusWrapf(err, "Failed to read inode %d from the overlay", in.inodeNumber)
			}
			result = buffer[:n]
			return nil
		}

		blobSize := uint64(len(blob))
		if offset >= blobSize {
			result = nil
			return nil
		}
		end := offset + length
		if end > blobSize {
			end = blobSize
		}
		result = append([]byte(nil), blob[offset:end]...)
		in.coverage.Add(offset, end)
		if in.coverage.IsFullyCovered(blobSize) {
			in.blob = nil
			in.coverage.Clear()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Write stores data at the given offset, materializing the file first
// if needed.
func (in *FileInode) Write(ctx context.Context, data []byte, offset uint64) (int, error) {
	var written int
	err := in.runWhileMaterialized(ctx, func() error {
		f, err := in.env.Overlay.OpenFile(in.inodeNumber)
		if err != nil {
			return util.StatusWrapf(err, "Failed to open inode %d in the overlay", in.inodeNumber)
		}
		defer f.Close()
		n, err := f.WriteAt(data, int64(offset))
		written = n
		if err != nil {
			return util.StatusWrapf(err, "Failed to write inode %d to the overlay", in.inodeNumber)
		}
		return nil
	})
	return written, err
}

// Truncate sets the file's size. Truncation to zero takes the fast
// path that never fetches the previous contents.
func (in *FileInode) Truncate(ctx context.Context, sizeBytes uint64) error {
	if sizeBytes == 0 {
		return in.TruncateAndRun(ctx, func() error { return nil })
	}
	return in.runWhileMaterialized(ctx, func() error {
		f, err := in.env.Overlay.OpenFile(in.inodeNumber)
		if err != nil {
			return util.StatusWrapf(err, "Failed to open inode %d in the overlay", in.inodeNumber)
		}
		defer f.Close()
		if err := f.Truncate(int64(sizeBytes)); err != nil {
			return util.StatusWrapf(err, "Failed to truncate inode %d in the overlay", in.inodeNumber)
		}
		return nil
	})
}

// GetSizeBytes returns the current size of the file. For a
// non-materialized file whose tree entry did not carry a size, the
// size is fetched from the backing store's metadata and cached.
func (in *FileInode) GetSizeBytes(ctx context.Context) (uint64, error) {
	in.lock.Lock()
	if in.state == stateMaterialized {
		f, err := in.env.Overlay.OpenFile(in.inodeNumber)
		var sizeBytes int64
		if err == nil {
			sizeBytes, err = f.GetSizeBytes()
			f.Close()
		}
		in.unlock()
		if err != nil {
			return 0, util.StatusWrapf(err, "Failed to obtain the size of inode %d from the overlay", in.inodeNumber)
		}
		return uint64(sizeBytes), nil
	}
	if cached := in.nonMaterialized.sizeBytes; cached != nil {
		sizeBytes := *cached
		in.unlock()
		return sizeBytes, nil
	}
	hash := in.nonMaterialized.hash
	in.unlock()

	metadata, err := in.env.BlobStore.GetBlobMetadata(ctx, hash)
	if err != nil {
		return 0, util.StatusWrapf(err, "Failed to obtain blob metadata for inode %d", in.inodeNumber)
	}

	in.lock.Lock()
	if in.state != stateMaterialized && in.nonMaterialized.hash == hash {
		sizeBytes := metadata.Size
		in.nonMaterialized.sizeBytes = &sizeBytes
	}
	in.unlock()
	return metadata.Size, nil
}

// GetContentSHA1 returns the SHA-1 of the file's current contents,
// from the backing store's metadata for a non-materialized file, or by
// consulting the overlay otherwise.
func (in *FileInode) GetContentSHA1(ctx context.Context) (store.Hash, error) {
	in.lock.Lock()
	if in.state == stateMaterialized {
		sha1, err := in.env.Overlay.GetSHA1(in.inodeNumber)
		in.unlock()
		if err != nil {
			return store.Hash{}, util.StatusWrapf(err, "Failed to obtain the SHA-1 of inode %d from the overlay", in.inodeNumber)
		}
		return sha1, nil
	}
	hash := in.nonMaterialized.hash
	in.unlock()

	metadata, err := in.env.BlobStore.GetBlobMetadata(ctx, hash)
	if err != nil {
		return store.Hash{}, util.StatusWrapf(err, "Failed to obtain blob metadata for inode %d", in.inodeNumber)
	}
	return metadata.ContentSHA1, nil
}

// IsSameAs compares this file against a tree entry of the backing
// store. The comparison is cheap when the entry types differ or when
// the file is still backed by the exact same object. Otherwise the
// content SHA-1s of both sides are compared. If this file's SHA-1
// cannot be computed, the file is assumed to have changed.
func (in *FileInode) IsSameAs(ctx context.Context, entryType EntryType, hash store.Hash) (bool, error) {
	if entryType != in.entryType {
		return false, nil
	}

	in.lock.Lock()
	if in.state != stateMaterialized && in.nonMaterialized.hash == hash {
		in.unlock()
		return true, nil
	}
	in.unlock()

	ourSHA1, err := in.GetContentSHA1(ctx)
	if err != nil {
		return false, nil
	}
	metadata, err := in.env.BlobStore.GetBlobMetadata(ctx, hash)
	if err != nil {
		return false, util.StatusWrapf(err, "Failed to obtain blob metadata for comparison against inode %d", in.inodeNumber)
	}
	return ourSHA1 == metadata.ContentSHA1, nil
}
