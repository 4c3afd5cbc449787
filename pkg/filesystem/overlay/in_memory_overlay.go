package overlay

import (
	"io"
	"sync"

	"github.com/buildbarn/bb-virtual-checkout/pkg/store"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type inMemoryOverlay struct {
	cache *sha1Cache

	lock  sync.Mutex
	files map[uint64]*inMemoryFileData
}

// NewInMemoryOverlay creates an Overlay that stores all materialized
// file contents in memory. Contents do not survive process restarts,
// making this implementation only suitable for testing.
func NewInMemoryOverlay() Overlay {
	return &inMemoryOverlay{
		cache: newSHA1Cache(),
		files: map[uint64]*inMemoryFileData{},
	}
}

func (o *inMemoryOverlay) CreateFile(inodeNumber uint64, contents []byte, contentSHA1 *store.Hash) (OverlayFile, error) {
	o.lock.Lock()
	fd, ok := o.files[inodeNumber]
	if !ok {
		fd = &inMemoryFileData{}
		o.files[inodeNumber] = fd
	}
	o.lock.Unlock()

	fd.data = append([]byte(nil), contents...)
	if contentSHA1 != nil {
		o.cache.put(inodeNumber, *contentSHA1)
	} else {
		o.cache.invalidate(inodeNumber)
	}
	return &invalidatingFile{
		OverlayFile: &inMemoryFile{data: fd},
		cache:       o.cache,
		inodeNumber: inodeNumber,
	}, nil
}

func (o *inMemoryOverlay) OpenFile(inodeNumber uint64) (OverlayFile, error) {
	o.lock.Lock()
	fd, ok := o.files[inodeNumber]
	o.lock.Unlock()
	if !ok {
		return nil, status.Errorf(codes.NotFound, "Inode %d is not present in the overlay", inodeNumber)
	}
	return &invalidatingFile{
		OverlayFile: &inMemoryFile{data: fd},
		cache:       o.cache,
		inodeNumber: inodeNumber,
	}, nil
}

func (o *inMemoryOverlay) RemoveFile(inodeNumber uint64) error {
	o.lock.Lock()
	delete(o.files, inodeNumber)
	o.lock.Unlock()
	o.cache.invalidate(inodeNumber)
	return nil
}

func (o *inMemoryOverlay) GetSHA1(inodeNumber uint64) (store.Hash, error) {
	if h, ok := o.cache.get(inodeNumber); ok {
		return h, nil
	}
	f, err := o.OpenFile(inodeNumber)
	if err != nil {
		return store.Hash{}, err
	}
	defer f.Close()
	h, err := hashFile(f)
	if err != nil {
		return store.Hash{}, err
	}
	o.cache.put(inodeNumber, h)
	return h, nil
}

type inMemoryFileData struct {
	data []byte
}

type inMemoryFile struct {
	data *inMemoryFileData
}

func (f *inMemoryFile) Close() error {
	f.data = nil
	return nil
}

func (f *inMemoryFile) ReadAt(p []byte, off int64) (int, error) {
	if int(off) >= len(f.data.data) {
		return 0, io.EOF
	}
	if n := copy(p, f.data.data[off:]); n < len(p) {
		return n, io.EOF
	}
	return len(p), nil
}

func (f *inMemoryFile) Truncate(size int64) error {
	if len(f.data.data) >= int(size) {
		// Truncate the file.
		f.data.data = f.data.data[:size]
	} else {
		// Grow the file.
		f.data.data = append(f.data.data, make([]byte, int(size)-len(f.data.data))...)
	}
	return nil
}

func (f *inMemoryFile) WriteAt(p []byte, off int64) (int, error) {
	// Zero-sized writes should not cause the file to grow.
	if len(p) == 0 {
		return 0, nil
	}

	if size := int(off) + len(p); len(f.data.data) < size {
		// Grow the file.
		f.data.data = append(f.data.data, make([]byte, size-len(f.data.data))...)
	}
	return copy(f.data.data[off:], p), nil
}

func (f *inMemoryFile) GetSizeBytes() (int64, error) {
	return int64(len(f.data.data)), nil
}
