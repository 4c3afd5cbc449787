package overlay

import (
	"crypto/sha1"
	"io"
	"sync"

	"github.com/buildbarn/bb-virtual-checkout/pkg/store"
)

// sha1Cache tracks the content SHA-1 of materialized files. Entries are
// installed when a file is created with a known hash or after a
// GetSHA1() computation, and dropped as soon as a write or truncation
// makes them stale.
type sha1Cache struct {
	lock   sync.Mutex
	hashes map[uint64]store.Hash
}

func newSHA1Cache() *sha1Cache {
	return &sha1Cache{
		hashes: map[uint64]store.Hash{},
	}
}

func (c *sha1Cache) get(inodeNumber uint64) (store.Hash, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	h, ok := c.hashes[inodeNumber]
	return h, ok
}

func (c *sha1Cache) put(inodeNumber uint64, h store.Hash) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.hashes[inodeNumber] = h
}

func (c *sha1Cache) invalidate(inodeNumber uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	delete(c.hashes, inodeNumber)
}

// invalidatingFile is an OverlayFile decorator that drops the cached
// SHA-1 of its inode whenever the file's contents change.
type invalidatingFile struct {
	OverlayFile

	cache       *sha1Cache
	inodeNumber uint64
}

func (f *invalidatingFile) WriteAt(p []byte, off int64) (int, error) {
	f.cache.invalidate(f.inodeNumber)
	return f.OverlayFile.WriteAt(p, off)
}

func (f *invalidatingFile) Truncate(size int64) error {
	f.cache.invalidate(f.inodeNumber)
	return f.OverlayFile.Truncate(size)
}

// hashFile computes the SHA-1 of an OverlayFile's full contents.
func hashFile(f OverlayFile) (store.Hash, error) {
	var h store.Hash
	hasher := sha1.New()
	buf := make([]byte, 64*1024)
	for off := int64(0); ; {
		n, err := f.ReadAt(buf, off)
		hasher.Write(buf[:n])
		off += int64(n)
		if err == io.EOF {
			break
		} else if err != nil {
			return h, err
		}
	}
	copy(h[:], hasher.Sum(nil))
	return h, nil
}
