package store_test

import (
	"context"
	"testing"

	"github.com/buildbarn/bb-storage/pkg/eviction"
	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/buildbarn/bb-virtual-checkout/internal/mock"
	"github.com/buildbarn/bb-virtual-checkout/pkg/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCachingBlobStore(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)
	blobA := []byte("blob A")
	hashA := store.SHA1OfBytes(blobA)
	blobB := []byte("blob B")
	hashB := store.SHA1OfBytes(blobB)

	t.Run("RepeatedGetBlobHitsBackendOnce", func(t *testing.T) {
		base := mock.NewMockBlobStore(ctrl)
		bs := store.NewCachingBlobStore(base, 1024, eviction.NewLRUSet[string]())
		base.EXPECT().GetBlob(ctx, hashA).Return(blobA, nil)

		for i := 0; i < 3; i++ {
			b, err := bs.GetBlob(ctx, hashA)
			require.NoError(t, err)
			require.Equal(t, blobA, b)
		}
	})

	t.Run("GetCachedBlobNeverFetches", func(t *testing.T) {
		base := mock.NewMockBlobStore(ctrl)
		bs := store.NewCachingBlobStore(base, 1024, eviction.NewLRUSet[string]())

		_, ok := bs.GetCachedBlob(hashA)
		require.False(t, ok)

		base.EXPECT().GetBlob(ctx, hashA).Return(blobA, nil)
		_, err := bs.GetBlob(ctx, hashA)
		require.NoError(t, err)

		b, ok := bs.GetCachedBlob(hashA)
		require.True(t, ok)
		require.Equal(t, blobA, b)
	})

	t.Run("MetadataFromCachedBlob", func(t *testing.T) {
		// Metadata of a cached blob is derived from the contents in
		// memory, without a round trip to the backing store.
		base := mock.NewMockBlobStore(ctrl)
		bs := store.NewCachingBlobStore(base, 1024, eviction.NewLRUSet[string]())
		base.EXPECT().GetBlob(ctx, hashA).Return(blobA, nil)
		_, err := bs.GetBlob(ctx, hashA)
		require.NoError(t, err)

		metadata, err := bs.GetBlobMetadata(ctx, hashA)
		require.NoError(t, err)
		require.Equal(t, store.BlobMetadata{
			ContentSHA1: store.SHA1OfBytes(blobA),
			Size:        uint64(len(blobA)),
		}, metadata)
	})

	t.Run("MetadataDelegatedWhenNotCached", func(t *testing.T) {
		base := mock.NewMockBlobStore(ctrl)
		bs := store.NewCachingBlobStore(base, 1024, eviction.NewLRUSet[string]())
		base.EXPECT().GetBlobMetadata(ctx, hashA).
			Return(store.BlobMetadata{ContentSHA1: hashA, Size: 6}, nil)

		metadata, err := bs.GetBlobMetadata(ctx, hashA)
		require.NoError(t, err)
		require.Equal(t, uint64(6), metadata.Size)
	})

	t.Run("LeastRecentlyUsedBlobIsEvicted", func(t *testing.T) {
		// Both blobs are six bytes, but the cache only holds ten.
		// Fetching the second evicts the first.
		base := mock.NewMockBlobStore(ctrl)
		bs := store.NewCachingBlobStore(base, 10, eviction.NewLRUSet[string]())
		base.EXPECT().GetBlob(ctx, hashA).Return(blobA, nil)
		base.EXPECT().GetBlob(ctx, hashB).Return(blobB, nil)

		_, err := bs.GetBlob(ctx, hashA)
		require.NoError(t, err)
		_, err = bs.GetBlob(ctx, hashB)
		require.NoError(t, err)

		_, ok := bs.GetCachedBlob(hashA)
		require.False(t, ok)
		b, ok := bs.GetCachedBlob(hashB)
		require.True(t, ok)
		require.Equal(t, blobB, b)
	})

	t.Run("OversizedBlobIsNotRetained", func(t *testing.T) {
		base := mock.NewMockBlobStore(ctrl)
		bs := store.NewCachingBlobStore(base, 4, eviction.NewLRUSet[string]())
		base.EXPECT().GetBlob(ctx, hashA).Return(blobA, nil)

		b, err := bs.GetBlob(ctx, hashA)
		require.NoError(t, err)
		require.Equal(t, blobA, b)

		_, ok := bs.GetCachedBlob(hashA)
		require.False(t, ok)
	})

	t.Run("FetchFailureIsNotCached", func(t *testing.T) {
		base := mock.NewMockBlobStore(ctrl)
		bs := store.NewCachingBlobStore(base, 1024, eviction.NewLRUSet[string]())
		gomock.InOrder(
			base.EXPECT().GetBlob(ctx, hashA).Return(nil, status.Error(codes.Unavailable, "Server offline")),
			base.EXPECT().GetBlob(ctx, hashA).Return(blobA, nil),
		)

		_, err := bs.GetBlob(ctx, hashA)
		testutil.RequireEqualStatus(t, status.Error(codes.Unavailable, "Server offline"), err)

		b, err := bs.GetBlob(ctx, hashA)
		require.NoError(t, err)
		require.Equal(t, blobA, b)
	})
}
