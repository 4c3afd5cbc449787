package proxyhash_test

import (
	"context"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/buildbarn/bb-virtual-checkout/internal/mock"
	"github.com/buildbarn/bb-virtual-checkout/pkg/store"
	"github.com/buildbarn/bb-virtual-checkout/pkg/store/proxyhash"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var exampleRevHash = store.SHA1OfBytes([]byte("some revision"))

func legacyObjectID(ph proxyhash.ProxyHash) proxyhash.ObjectID {
	sha1 := ph.SHA1()
	return proxyhash.ObjectID(sha1[:])
}

func TestProxyHashAccessors(t *testing.T) {
	t.Run("WithPath", func(t *testing.T) {
		ph := proxyhash.New("fbcode/buck2/app/main.rs", exampleRevHash)
		require.Equal(t, "fbcode/buck2/app/main.rs", ph.Path())
		require.Equal(t, exampleRevHash, ph.RevHash())
		require.Len(t, ph.Bytes(), store.HashSize+4+24)

		// The serialized record is the revision hash followed by the
		// length-prefixed path.
		require.Equal(t, exampleRevHash[:], ph.Bytes()[:store.HashSize])
		require.Equal(t, uint32(24), binary.BigEndian.Uint32(ph.Bytes()[store.HashSize:]))
	})

	t.Run("ZeroValue", func(t *testing.T) {
		var ph proxyhash.ProxyHash
		require.Equal(t, "", ph.Path())
		require.Equal(t, store.Hash{}, ph.RevHash())
		require.Equal(t, proxyhash.EmptySHA1, ph.SHA1())
	})

	t.Run("EmptyRecordSHA1", func(t *testing.T) {
		// The known constant must equal the actual hash of the
		// record for the zero revision hash with an empty path.
		ph := proxyhash.New("", store.Hash{})
		require.Equal(t, proxyhash.EmptySHA1, ph.SHA1())
	})
}

func TestProxyHashLoad(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	t.Run("Embedded", func(t *testing.T) {
		// Embedded identifiers resolve without consulting the local
		// store at all.
		localStore := mock.NewMockLegacyStore(ctrl)
		id := proxyhash.MakeEmbeddedObjectID(exampleRevHash)
		require.Len(t, []byte(id), store.HashSize+1)
		require.Equal(t, proxyhash.TypeHgIDNoPath, id[0])

		ph, err := proxyhash.Load(ctx, localStore, id)
		require.NoError(t, err)
		require.Equal(t, "", ph.Path())
		require.Equal(t, exampleRevHash, ph.RevHash())
	})

	t.Run("UnknownType", func(t *testing.T) {
		localStore := mock.NewMockLegacyStore(ctrl)
		id := make(proxyhash.ObjectID, store.HashSize+2)
		id[0] = 0x02

		_, err := proxyhash.Load(ctx, localStore, id)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Unknown proxy hash type: size 22, type 2"), err)
	})

	t.Run("Legacy", func(t *testing.T) {
		localStore := mock.NewMockLegacyStore(ctrl)
		record := proxyhash.New("fbcode/buck2/app/main.rs", exampleRevHash)
		id := legacyObjectID(record)
		localStore.EXPECT().Get(ctx, id).Return(record.Bytes(), nil)

		ph, err := proxyhash.Load(ctx, localStore, id)
		require.NoError(t, err)
		require.Equal(t, "fbcode/buck2/app/main.rs", ph.Path())
		require.Equal(t, exampleRevHash, ph.RevHash())
	})

	t.Run("LegacyNotFound", func(t *testing.T) {
		localStore := mock.NewMockLegacyStore(ctrl)
		record := proxyhash.New("fbcode/buck2/app/main.rs", exampleRevHash)
		id := legacyObjectID(record)
		localStore.EXPECT().Get(ctx, id).Return(nil, status.Error(codes.NotFound, "Record absent"))

		_, err := proxyhash.Load(ctx, localStore, id)
		testutil.RequireEqualStatus(
			t,
			status.Errorf(codes.NotFound, "Failed to load proxy hash record for %#x: Record absent", []byte(id)),
			err)
	})

	t.Run("RecordTooShort", func(t *testing.T) {
		localStore := mock.NewMockLegacyStore(ctrl)
		record := proxyhash.New("fbcode/buck2/app/main.rs", exampleRevHash)
		id := legacyObjectID(record)
		localStore.EXPECT().Get(ctx, id).Return(make([]byte, 10), nil)

		_, err := proxyhash.Load(ctx, localStore, id)
		testutil.RequireEqualStatus(
			t,
			status.Errorf(codes.InvalidArgument, "Proxy hash record for %#x is too short (10 bytes)", []byte(id)),
			err)
	})

	t.Run("InconsistentPathLength", func(t *testing.T) {
		localStore := mock.NewMockLegacyStore(ctrl)
		record := proxyhash.New("fbcode/buck2/app/main.rs", exampleRevHash)
		id := legacyObjectID(record)
		corrupted := append([]byte(nil), record.Bytes()...)
		binary.BigEndian.PutUint32(corrupted[store.HashSize:], 1000)
		localStore.EXPECT().Get(ctx, id).Return(corrupted, nil)

		_, err := proxyhash.Load(ctx, localStore, id)
		testutil.RequireEqualStatus(
			t,
			status.Errorf(codes.InvalidArgument, "Proxy hash record for %#x has inconsistent path length", []byte(id)),
			err)
	})
}

func TestProxyHashStore(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	t.Run("Success", func(t *testing.T) {
		// The record is keyed by the content hash of its serialized
		// form, so that storing the same pair twice is idempotent.
		localStore := mock.NewMockLegacyStore(ctrl)
		record := proxyhash.New("fbcode/buck2/app/main.rs", exampleRevHash)
		expectedID := legacyObjectID(record)
		localStore.EXPECT().Put(ctx, expectedID, record.Bytes())

		id, err := proxyhash.Store(ctx, localStore, "fbcode/buck2/app/main.rs", exampleRevHash)
		require.NoError(t, err)
		require.Equal(t, expectedID, id)
	})

	t.Run("PutFailure", func(t *testing.T) {
		localStore := mock.NewMockLegacyStore(ctrl)
		localStore.EXPECT().Put(ctx, gomock.Any(), gomock.Any()).
			Return(status.Error(codes.Unavailable, "Database closed"))

		_, err := proxyhash.Store(ctx, localStore, "fbcode/buck2/app/main.rs", exampleRevHash)
		testutil.RequireEqualStatus(
			t,
			status.Error(codes.Unavailable, "Failed to store proxy hash record for path \"fbcode/buck2/app/main.rs\": Database closed"),
			err)
	})
}

func TestProxyHashGetBatch(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	t.Run("MixedBatchPreservesOrder", func(t *testing.T) {
		// Embedded identifiers are resolved locally. Only the legacy
		// ones go to the store, and the results must land back at
		// the positions of the identifiers they belong to.
		localStore := mock.NewMockLegacyStore(ctrl)
		recordA := proxyhash.New("a.txt", store.SHA1OfBytes([]byte("rev a")))
		recordB := proxyhash.New("b.txt", store.SHA1OfBytes([]byte("rev b")))
		idA := legacyObjectID(recordA)
		idB := legacyObjectID(recordB)
		embedded := proxyhash.MakeEmbeddedObjectID(exampleRevHash)
		localStore.EXPECT().GetBatch(ctx, []proxyhash.ObjectID{idA, idB}).
			Return([][]byte{recordA.Bytes(), recordB.Bytes()}, nil)

		phs, err := proxyhash.GetBatch(ctx, localStore, []proxyhash.ObjectID{idA, embedded, idB})
		require.NoError(t, err)
		require.Len(t, phs, 3)
		require.Equal(t, "a.txt", phs[0].Path())
		require.Equal(t, "", phs[1].Path())
		require.Equal(t, exampleRevHash, phs[1].RevHash())
		require.Equal(t, "b.txt", phs[2].Path())
	})

	t.Run("AllEmbedded", func(t *testing.T) {
		localStore := mock.NewMockLegacyStore(ctrl)

		phs, err := proxyhash.GetBatch(ctx, localStore, []proxyhash.ObjectID{
			proxyhash.MakeEmbeddedObjectID(exampleRevHash),
		})
		require.NoError(t, err)
		require.Len(t, phs, 1)
		require.Equal(t, exampleRevHash, phs[0].RevHash())
	})

	t.Run("Empty", func(t *testing.T) {
		localStore := mock.NewMockLegacyStore(ctrl)

		phs, err := proxyhash.GetBatch(ctx, localStore, nil)
		require.NoError(t, err)
		require.Empty(t, phs)
	})

	t.Run("BatchFailure", func(t *testing.T) {
		localStore := mock.NewMockLegacyStore(ctrl)
		record := proxyhash.New("a.txt", exampleRevHash)
		id := legacyObjectID(record)
		localStore.EXPECT().GetBatch(ctx, []proxyhash.ObjectID{id}).
			Return(nil, status.Errorf(codes.NotFound, "Received unknown proxy hash %#x", []byte(id)))

		_, err := proxyhash.GetBatch(ctx, localStore, []proxyhash.ObjectID{id})
		testutil.RequireEqualStatus(t, status.Error(codes.NotFound, fmt.Sprintf("Received unknown proxy hash %#x", []byte(id))), err)
	})
}
