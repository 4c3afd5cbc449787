package projection

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// MinChunkSize is the blob size up to which a read is answered
	// with a single write of the whole file.
	MinChunkSize = 512 * 1024
	// MaxChunkSize is the largest number of bytes delivered to the
	// projection service in a single write.
	MaxChunkSize = 5 * 1024 * 1024
)

// BlockAlignTruncate rounds an offset down to the previous multiple of
// the alignment. The alignment must be a power of two.
func BlockAlignTruncate(offset, alignment uint64) uint64 {
	return offset &^ (alignment - 1)
}

// WriteFileChunks delivers a slice of blob contents to the projection
// service in writes of at most chunkSize bytes each, starting at
// byteOffset. Writes beyond the first remain aligned as long as
// byteOffset+chunkSize is aligned. Contents are staged through a
// single aligned buffer obtained from the instance.
func WriteFileChunks(instance VirtualizationInstance, dataStreamID DataStreamID, contents []byte, byteOffset, length, chunkSize uint64) error {
	buffer := instance.AllocateAlignedBuffer(chunkSize)
	if buffer == nil {
		return status.Errorf(codes.ResourceExhausted, "Failed to allocate an aligned buffer of %d bytes", chunkSize)
	}

	remaining := length
	for remaining > 0 {
		copySize := min(remaining, chunkSize)
		copy(buffer, contents[byteOffset:byteOffset+copySize])
		if err := instance.WriteFileData(dataStreamID, buffer[:copySize], byteOffset); err != nil {
			return err
		}
		byteOffset += copySize
		remaining -= copySize
	}
	return nil
}
