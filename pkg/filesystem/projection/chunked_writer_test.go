package projection_test

import (
	"bytes"
	"testing"

	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/buildbarn/bb-virtual-checkout/internal/mock"
	"github.com/buildbarn/bb-virtual-checkout/pkg/filesystem/projection"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestBlockAlignTruncate(t *testing.T) {
	require.Equal(t, uint64(0), projection.BlockAlignTruncate(0, 4096))
	require.Equal(t, uint64(0), projection.BlockAlignTruncate(4095, 4096))
	require.Equal(t, uint64(4096), projection.BlockAlignTruncate(4096, 4096))
	require.Equal(t, uint64(4096), projection.BlockAlignTruncate(8191, 4096))
	require.Equal(t, uint64(0x500000), projection.BlockAlignTruncate(5*1024*1024, 4096))
	require.Equal(t, uint64(123), projection.BlockAlignTruncate(123, 1))
}

func TestWriteFileChunks(t *testing.T) {
	ctrl := gomock.NewController(t)
	dataStreamID := projection.DataStreamID(uuid.MustParse("f1a2b3c4-d5e6-4788-99aa-bbccddeeff00"))

	t.Run("SingleChunk", func(t *testing.T) {
		contents := bytes.Repeat([]byte{0x2a}, 300)
		instance := mock.NewMockVirtualizationInstance(ctrl)
		instance.EXPECT().AllocateAlignedBuffer(uint64(300)).Return(make([]byte, 300))
		instance.EXPECT().WriteFileData(dataStreamID, gomock.Len(300), uint64(0)).
			DoAndReturn(func(id projection.DataStreamID, data []byte, byteOffset uint64) error {
				require.Equal(t, contents, data)
				return nil
			})

		require.NoError(t, projection.WriteFileChunks(instance, dataStreamID, contents, 0, 300, 300))
	})

	t.Run("MultipleChunks", func(t *testing.T) {
		// A 10-byte read with a chunk size of 4 turns into three
		// writes. Each write's offset is the base offset plus a
		// whole number of chunks, and the byte total equals the
		// requested length.
		contents := []byte("..abcdefghij....")
		instance := mock.NewMockVirtualizationInstance(ctrl)
		instance.EXPECT().AllocateAlignedBuffer(uint64(4)).Return(make([]byte, 4))
		gomock.InOrder(
			instance.EXPECT().WriteFileData(dataStreamID, gomock.Len(4), uint64(2)).
				DoAndReturn(func(id projection.DataStreamID, data []byte, byteOffset uint64) error {
					require.Equal(t, []byte("abcd"), data)
					return nil
				}),
			instance.EXPECT().WriteFileData(dataStreamID, gomock.Len(4), uint64(6)).
				DoAndReturn(func(id projection.DataStreamID, data []byte, byteOffset uint64) error {
					require.Equal(t, []byte("efgh"), data)
					return nil
				}),
			instance.EXPECT().WriteFileData(dataStreamID, gomock.Len(2), uint64(10)).
				DoAndReturn(func(id projection.DataStreamID, data []byte, byteOffset uint64) error {
					require.Equal(t, []byte("ij"), data)
					return nil
				}),
		)

		require.NoError(t, projection.WriteFileChunks(instance, dataStreamID, contents, 2, 10, 4))
	})

	t.Run("AllocationFailure", func(t *testing.T) {
		instance := mock.NewMockVirtualizationInstance(ctrl)
		instance.EXPECT().AllocateAlignedBuffer(uint64(1024)).Return(nil)

		testutil.RequireEqualStatus(
			t,
			status.Error(codes.ResourceExhausted, "Failed to allocate an aligned buffer of 1024 bytes"),
			projection.WriteFileChunks(instance, dataStreamID, make([]byte, 2048), 0, 2048, 1024))
	})

	t.Run("WriteFailure", func(t *testing.T) {
		// A failing write must abort the loop immediately.
		instance := mock.NewMockVirtualizationInstance(ctrl)
		instance.EXPECT().AllocateAlignedBuffer(uint64(4)).Return(make([]byte, 4))
		instance.EXPECT().WriteFileData(dataStreamID, gomock.Len(4), uint64(0)).
			Return(status.Error(codes.Internal, "Device disconnected"))

		testutil.RequireEqualStatus(
			t,
			status.Error(codes.Internal, "Device disconnected"),
			projection.WriteFileChunks(instance, dataStreamID, make([]byte, 8), 0, 8, 4))
	})
}
