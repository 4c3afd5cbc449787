package store

import (
	"context"
	"io"
	"os"

	"github.com/buildbarn/bb-storage/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/filesystem/path"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type directoryBackedBlobStore struct {
	directory filesystem.Directory
}

// NewDirectoryBackedBlobStore creates a BlobStore that reads blobs from
// a local directory, with every blob stored in a file named after the
// hexadecimal representation of its hash. It serves setups where the
// working copy's objects have been exported ahead of time, and tests.
func NewDirectoryBackedBlobStore(directory filesystem.Directory) BlobStore {
	return &directoryBackedBlobStore{
		directory: directory,
	}
}

func (bs *directoryBackedBlobStore) GetBlob(ctx context.Context, hash Hash) ([]byte, error) {
	f, err := bs.directory.OpenRead(path.MustNewComponent(hash.String()))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.Errorf(codes.NotFound, "Blob %s does not exist", hash)
		}
		return nil, util.StatusWrapf(err, "Failed to open blob %s", hash)
	}
	defer f.Close()

	var contents []byte
	buffer := make([]byte, 64*1024)
	offset := int64(0)
	for {
		n, err := f.ReadAt(buffer, offset)
		contents = append(contents, buffer[:n]...)
		offset += int64(n)
		if err == io.EOF {
			return contents, nil
		}
		if err != nil {
			return nil, util.StatusWrapf(err, "Failed to read blob %s", hash)
		}
	}
}

// GetBlobMetadata reads the whole blob, as this store keeps no
// metadata apart from the contents.
func (bs *directoryBackedBlobStore) GetBlobMetadata(ctx context.Context, hash Hash) (BlobMetadata, error) {
	contents, err := bs.GetBlob(ctx, hash)
	if err != nil {
		return BlobMetadata{}, err
	}
	return BlobMetadata{
		ContentSHA1: SHA1OfBytes(contents),
		Size:        uint64(len(contents)),
	}, nil
}
