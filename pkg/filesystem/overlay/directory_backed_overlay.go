package overlay

import (
	"bytes"
	"encoding/binary"
	"os"
	"strconv"

	"github.com/buildbarn/bb-storage/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/filesystem/path"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/buildbarn/bb-virtual-checkout/pkg/store"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Materialized files carry a fixed-size header so that the content
// size can be recovered when the file is reopened after a restart or a
// takeover. The header is rewritten whenever the content size changes.
const (
	overlayFileHeaderSize = 24
	overlayFileVersion    = 1
)

var overlayFileMagic = [8]byte{'b', 'b', 'v', 'c', '-', 'o', 'v', 'l'}

type directoryBackedOverlay struct {
	directory filesystem.Directory
	cache     *sha1Cache
}

// NewDirectoryBackedOverlay creates an Overlay that stores materialized
// file contents in a single directory on disk, with files identified by
// inode number. Backing files are opened on demand, so that a large
// working copy does not exhaust the file descriptor table.
func NewDirectoryBackedOverlay(directory filesystem.Directory) Overlay {
	return &directoryBackedOverlay{
		directory: directory,
		cache:     newSHA1Cache(),
	}
}

func componentForInode(inodeNumber uint64) path.Component {
	return path.MustNewComponent(strconv.FormatUint(inodeNumber, 10))
}

func (o *directoryBackedOverlay) CreateFile(inodeNumber uint64, contents []byte, contentSHA1 *store.Hash) (OverlayFile, error) {
	name := componentForInode(inodeNumber)
	fh, err := o.directory.OpenReadWrite(name, filesystem.CreateReuse(0o600))
	if err != nil {
		return nil, util.StatusWrapf(err, "Failed to create overlay file for inode %d", inodeNumber)
	}
	defer fh.Close()

	if err := fh.Truncate(overlayFileHeaderSize + int64(len(contents))); err != nil {
		return nil, util.StatusWrapf(err, "Failed to truncate overlay file for inode %d", inodeNumber)
	}
	var header [overlayFileHeaderSize]byte
	copy(header[:], overlayFileMagic[:])
	binary.LittleEndian.PutUint32(header[8:], overlayFileVersion)
	binary.LittleEndian.PutUint64(header[16:], uint64(len(contents)))
	if _, err := fh.WriteAt(header[:], 0); err != nil {
		return nil, util.StatusWrapf(err, "Failed to write overlay file header for inode %d", inodeNumber)
	}
	if len(contents) > 0 {
		if _, err := fh.WriteAt(contents, overlayFileHeaderSize); err != nil {
			return nil, util.StatusWrapf(err, "Failed to write overlay file contents for inode %d", inodeNumber)
		}
	}

	if contentSHA1 != nil {
		o.cache.put(inodeNumber, *contentSHA1)
	} else {
		o.cache.invalidate(inodeNumber)
	}
	return &invalidatingFile{
		OverlayFile: &overlayFileHandle{
			overlay:     o,
			name:        name,
			inodeNumber: inodeNumber,
			sizeBytes:   int64(len(contents)),
		},
		cache:       o.cache,
		inodeNumber: inodeNumber,
	}, nil
}

func (o *directoryBackedOverlay) OpenFile(inodeNumber uint64) (OverlayFile, error) {
	name := componentForInode(inodeNumber)
	fh, err := o.directory.OpenRead(name)
	if os.IsNotExist(err) {
		return nil, status.Errorf(codes.NotFound, "Inode %d is not present in the overlay", inodeNumber)
	} else if err != nil {
		return nil, util.StatusWrapf(err, "Failed to open overlay file for inode %d", inodeNumber)
	}
	var header [overlayFileHeaderSize]byte
	_, err = fh.ReadAt(header[:], 0)
	fh.Close()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "Overlay file for inode %d is too small to hold a header", inodeNumber)
	}
	if !bytes.Equal(header[:8], overlayFileMagic[:]) {
		return nil, status.Errorf(codes.Internal, "Overlay file for inode %d has a bad magic number", inodeNumber)
	}
	if version := binary.LittleEndian.Uint32(header[8:]); version != overlayFileVersion {
		return nil, status.Errorf(codes.Internal, "Overlay file for inode %d has unsupported version %d", inodeNumber, version)
	}
	return &invalidatingFile{
		OverlayFile: &overlayFileHandle{
			overlay:     o,
			name:        name,
			inodeNumber: inodeNumber,
			sizeBytes:   int64(binary.LittleEndian.Uint64(header[16:])),
		},
		cache:       o.cache,
		inodeNumber: inodeNumber,
	}, nil
}

func (o *directoryBackedOverlay) RemoveFile(inodeNumber uint64) error {
	o.cache.invalidate(inodeNumber)
	if err := o.directory.Remove(componentForInode(inodeNumber)); err != nil && !os.IsNotExist(err) {
		return util.StatusWrapf(err, "Failed to remove overlay file for inode %d", inodeNumber)
	}
	return nil
}

func (o *directoryBackedOverlay) GetSHA1(inodeNumber uint64) (store.Hash, error) {
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

// overlayFileHandle forwards operations to a backing file that is
// opened on demand, offset by the header. The content size is cached in
// memory and flushed to the header when it changes.
type overlayFileHandle struct {
	overlay     *directoryBackedOverlay
	name        path.Component
	inodeNumber uint64
	sizeBytes   int64
}

func (f *overlayFileHandle) Close() error {
	f.overlay = nil
	return nil
}

func (f *overlayFileHandle) ReadAt(p []byte, off int64) (int, error) {
	fh, err := f.overlay.directory.OpenRead(f.name)
	if err != nil {
		return 0, err
	}
	defer fh.Close()
	return fh.ReadAt(p, overlayFileHeaderSize+off)
}

func (f *overlayFileHandle) writeSize(fh filesystem.FileReadWriter, sizeBytes int64) error {
	var sizeField [8]byte
	binary.LittleEndian.PutUint64(sizeField[:], uint64(sizeBytes))
	if _, err := fh.WriteAt(sizeField[:], 16); err != nil {
		return err
	}
	f.sizeBytes = sizeBytes
	return nil
}

func (f *overlayFileHandle) WriteAt(p []byte, off int64) (int, error) {
	fh, err := f.overlay.directory.OpenReadWrite(f.name, filesystem.DontCreate)
	if err != nil {
		return 0, err
	}
	defer fh.Close()
	n, err := fh.WriteAt(p, overlayFileHeaderSize+off)
	if newSize := off + int64(n); n > 0 && newSize > f.sizeBytes {
		if sizeErr := f.writeSize(fh, newSize); err == nil {
			err = sizeErr
		}
	}
	return n, err
}

func (f *overlayFileHandle) Truncate(size int64) error {
	fh, err := f.overlay.directory.OpenReadWrite(f.name, filesystem.DontCreate)
	if err != nil {
		return err
	}
	defer fh.Close()
	if err := fh.Truncate(overlayFileHeaderSize + size); err != nil {
		return err
	}
	return f.writeSize(fh, size)
}

func (f *overlayFileHandle) GetSizeBytes() (int64, error) {
	return f.sizeBytes, nil
}
