package inode

import (
	"context"
	"sort"
	"sync"

	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/buildbarn/bb-virtual-checkout/pkg/store"
	"github.com/fxamacker/cbor/v2"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FrozenFileInode is the snapshot of a single file inode as captured
// for takeover. Only the not-loaded and materialized states occur in
// snapshots; an inode that was loading at snapshot time is recorded as
// not loaded, since the new process can simply start a fresh load.
type FrozenFileInode struct {
	InodeNumber  uint64  `cbor:"1,keyasint"`
	EntryType    int     `cbor:"2,keyasint"`
	Materialized bool    `cbor:"3,keyasint"`
	Hash         []byte  `cbor:"4,keyasint,omitempty"`
	SizeBytes    *uint64 `cbor:"5,keyasint,omitempty"`
}

// Freeze captures the inode's state for takeover. An inode that is
// still loading is quiesced first, surfacing any failure of the
// pending load.
func (in *FileInode) Freeze(ctx context.Context) (FrozenFileInode, error) {
	for {
		in.lock.Lock()
		switch in.state {
		case stateNotLoaded:
			frozen := FrozenFileInode{
				InodeNumber: in.inodeNumber,
				EntryType:   int(in.entryType),
				Hash:        append([]byte(nil), in.nonMaterialized.hash[:]...),
				SizeBytes:   in.nonMaterialized.sizeBytes,
			}
			in.unlock()
			return frozen, nil
		case stateMaterialized:
			frozen := FrozenFileInode{
				InodeNumber:  in.inodeNumber,
				EntryType:    int(in.entryType),
				Materialized: true,
			}
			in.unlock()
			return frozen, nil
		case stateLoading:
			p := in.loading
			in.unlock()
			if err := in.waitForLoad(ctx, p); err != nil {
				return FrozenFileInode{}, util.StatusWrapf(err, "Failed to quiesce inode %d", in.inodeNumber)
			}
		}
	}
}

// InodeMap is the registry of live file inodes, keyed by inode number.
type InodeMap struct {
	lock            sync.RWMutex
	inodes          map[uint64]*FileInode
	nextInodeNumber uint64
}

// NewInodeMap creates an InodeMap containing no inodes. Inode numbers
// start at one; zero is never handed out, so it can serve as a
// sentinel in on-disk structures.
func NewInodeMap() *InodeMap {
	return &InodeMap{
		inodes:          map[uint64]*FileInode{},
		nextInodeNumber: 1,
	}
}

// AllocateInodeNumber hands out the next unused inode number.
func (im *InodeMap) AllocateInodeNumber() uint64 {
	im.lock.Lock()
	defer im.lock.Unlock()

	inodeNumber := im.nextInodeNumber
	im.nextInodeNumber++
	return inodeNumber
}

// Insert registers an inode under its inode number.
func (im *InodeMap) Insert(in *FileInode) {
	im.lock.Lock()
	defer im.lock.Unlock()

	im.inodes[in.GetInodeNumber()] = in
}

// Lookup returns the inode registered under a number.
func (im *InodeMap) Lookup(inodeNumber uint64) (*FileInode, bool) {
	im.lock.RLock()
	defer im.lock.RUnlock()

	in, ok := im.inodes[inodeNumber]
	return in, ok
}

// Remove drops an inode from the map.
func (im *InodeMap) Remove(inodeNumber uint64) {
	im.lock.Lock()
	defer im.lock.Unlock()

	delete(im.inodes, inodeNumber)
}

// Freeze serializes the full inode map for takeover. Inodes are
// captured in inode number order, so that two snapshots of the same
// map are byte identical.
func (im *InodeMap) Freeze(ctx context.Context) ([]byte, error) {
	im.lock.RLock()
	inodes := make([]*FileInode, 0, len(im.inodes))
	for _, in := range im.inodes {
		inodes = append(inodes, in)
	}
	nextInodeNumber := im.nextInodeNumber
	im.lock.RUnlock()

	sort.Slice(inodes, func(i, j int) bool {
		return inodes[i].GetInodeNumber() < inodes[j].GetInodeNumber()
	})

	frozen := frozenInodeMap{
		NextInodeNumber: nextInodeNumber,
		Inodes:          make([]FrozenFileInode, 0, len(inodes)),
	}
	for _, in := range inodes {
		f, err := in.Freeze(ctx)
		if err != nil {
			return nil, err
		}
		frozen.Inodes = append(frozen.Inodes, f)
	}

	data, err := cbor.Marshal(&frozen)
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to serialize the inode map")
	}
	return data, nil
}

type frozenInodeMap struct {
	NextInodeNumber uint64            `cbor:"1,keyasint"`
	Inodes          []FrozenFileInode `cbor:"2,keyasint"`
}

// NewInodeMapFromFrozen reconstructs an inode map from a takeover
// snapshot produced by Freeze.
func NewInodeMapFromFrozen(env *FileInodeEnvironment, data []byte) (*InodeMap, error) {
	var frozen frozenInodeMap
	if err := cbor.Unmarshal(data, &frozen); err != nil {
		return nil, util.StatusWrap(err, "Failed to deserialize the inode map")
	}

	im := &InodeMap{
		inodes:          make(map[uint64]*FileInode, len(frozen.Inodes)),
		nextInodeNumber: frozen.NextInodeNumber,
	}
	if im.nextInodeNumber == 0 {
		im.nextInodeNumber = 1
	}
	for _, f := range frozen.Inodes {
		var in *FileInode
		if f.Materialized {
			in = NewMaterializedFileInode(env, f.InodeNumber, EntryType(f.EntryType))
		} else {
			hash, err := store.NewHashFromBytes(f.Hash)
			if err != nil {
				return nil, util.StatusWrapf(err, "Invalid hash for inode %d", f.InodeNumber)
			}
			in = NewNotLoadedFileInode(env, f.InodeNumber, EntryType(f.EntryType), hash, f.SizeBytes)
		}
		if _, ok := im.inodes[f.InodeNumber]; ok {
			return nil, status.Errorf(codes.InvalidArgument, "Inode %d occurs in the snapshot more than once", f.InodeNumber)
		}
		if f.InodeNumber >= im.nextInodeNumber {
			return nil, status.Errorf(codes.InvalidArgument, "Inode %d exceeds the snapshot's inode number counter", f.InodeNumber)
		}
		im.inodes[f.InodeNumber] = in
	}
	return im, nil
}
