package overlay_test

import (
	"io"
	"testing"

	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/buildbarn/bb-virtual-checkout/pkg/filesystem/overlay"
	"github.com/buildbarn/bb-virtual-checkout/pkg/store"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestInMemoryOverlayFileLifecycle(t *testing.T) {
	t.Run("CreateAndRead", func(t *testing.T) {
		o := overlay.NewInMemoryOverlay()
		f, err := o.CreateFile(1, []byte("Hello, world"), nil)
		require.NoError(t, err)

		size, err := f.GetSizeBytes()
		require.NoError(t, err)
		require.Equal(t, int64(12), size)

		var buf [12]byte
		n, err := f.ReadAt(buf[:], 0)
		require.NoError(t, err)
		require.Equal(t, 12, n)
		require.Equal(t, []byte("Hello, world"), buf[:])
		require.NoError(t, f.Close())
	})

	t.Run("ReadPastEnd", func(t *testing.T) {
		o := overlay.NewInMemoryOverlay()
		f, err := o.CreateFile(1, []byte("Hello"), nil)
		require.NoError(t, err)

		var buf [10]byte
		n, err := f.ReadAt(buf[:], 2)
		require.Equal(t, io.EOF, err)
		require.Equal(t, 3, n)
		require.Equal(t, []byte("llo"), buf[:n])

		_, err = f.ReadAt(buf[:], 5)
		require.Equal(t, io.EOF, err)
		require.NoError(t, f.Close())
	})

	t.Run("OpenAbsent", func(t *testing.T) {
		o := overlay.NewInMemoryOverlay()
		_, err := o.OpenFile(42)
		testutil.RequireEqualStatus(t, status.Error(codes.NotFound, "Inode 42 is not present in the overlay"), err)
	})

	t.Run("OpenSeesWrites", func(t *testing.T) {
		// A file created earlier can be reopened, and writes through
		// one handle are visible through another.
		o := overlay.NewInMemoryOverlay()
		f1, err := o.CreateFile(1, []byte("old contents"), nil)
		require.NoError(t, err)
		_, err = f1.WriteAt([]byte("new"), 0)
		require.NoError(t, err)
		require.NoError(t, f1.Close())

		f2, err := o.OpenFile(1)
		require.NoError(t, err)
		var buf [12]byte
		n, err := f2.ReadAt(buf[:], 0)
		require.NoError(t, err)
		require.Equal(t, []byte("new contents"), buf[:n])
		require.NoError(t, f2.Close())
	})

	t.Run("CreateReplacesContents", func(t *testing.T) {
		o := overlay.NewInMemoryOverlay()
		f1, err := o.CreateFile(1, []byte("old contents"), nil)
		require.NoError(t, err)
		require.NoError(t, f1.Close())

		f2, err := o.CreateFile(1, []byte("new"), nil)
		require.NoError(t, err)
		size, err := f2.GetSizeBytes()
		require.NoError(t, err)
		require.Equal(t, int64(3), size)
		require.NoError(t, f2.Close())
	})

	t.Run("RemoveThenOpen", func(t *testing.T) {
		o := overlay.NewInMemoryOverlay()
		f, err := o.CreateFile(1, []byte("doomed"), nil)
		require.NoError(t, err)
		require.NoError(t, f.Close())
		require.NoError(t, o.RemoveFile(1))

		_, err = o.OpenFile(1)
		testutil.RequireEqualStatus(t, status.Error(codes.NotFound, "Inode 1 is not present in the overlay"), err)
	})

	t.Run("WriteExtendsWithZeroes", func(t *testing.T) {
		o := overlay.NewInMemoryOverlay()
		f, err := o.CreateFile(1, []byte("ab"), nil)
		require.NoError(t, err)

		n, err := f.WriteAt([]byte("cd"), 4)
		require.NoError(t, err)
		require.Equal(t, 2, n)

		var buf [6]byte
		_, err = f.ReadAt(buf[:], 0)
		require.NoError(t, err)
		require.Equal(t, []byte{'a', 'b', 0, 0, 'c', 'd'}, buf[:])
		require.NoError(t, f.Close())
	})

	t.Run("TruncateGrowAndShrink", func(t *testing.T) {
		o := overlay.NewInMemoryOverlay()
		f, err := o.CreateFile(1, []byte("abcdef"), nil)
		require.NoError(t, err)

		require.NoError(t, f.Truncate(2))
		size, err := f.GetSizeBytes()
		require.NoError(t, err)
		require.Equal(t, int64(2), size)

		require.NoError(t, f.Truncate(4))
		var buf [4]byte
		_, err = f.ReadAt(buf[:], 0)
		require.NoError(t, err)
		require.Equal(t, []byte{'a', 'b', 0, 0}, buf[:])
		require.NoError(t, f.Close())
	})
}

func TestInMemoryOverlayGetSHA1(t *testing.T) {
	t.Run("KnownAtCreation", func(t *testing.T) {
		// When the hash is provided at creation time, GetSHA1() must
		// serve it from the cache rather than hashing the file. A
		// deliberately mismatching hash makes a recomputation
		// detectable.
		o := overlay.NewInMemoryOverlay()
		bogus := store.SHA1OfBytes([]byte("something else entirely"))
		f, err := o.CreateFile(1, []byte("Hello"), &bogus)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		h, err := o.GetSHA1(1)
		require.NoError(t, err)
		require.Equal(t, bogus, h)
	})

	t.Run("ComputedWhenUnknown", func(t *testing.T) {
		// A file larger than the hashing buffer exercises the
		// multi-read hashing path.
		contents := make([]byte, 200*1000)
		for i := range contents {
			contents[i] = byte(i)
		}
		o := overlay.NewInMemoryOverlay()
		f, err := o.CreateFile(1, contents, nil)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		h, err := o.GetSHA1(1)
		require.NoError(t, err)
		require.Equal(t, store.SHA1OfBytes(contents), h)
	})

	t.Run("WriteInvalidates", func(t *testing.T) {
		o := overlay.NewInMemoryOverlay()
		contentSHA1 := store.SHA1OfBytes([]byte("Hello"))
		f, err := o.CreateFile(1, []byte("Hello"), &contentSHA1)
		require.NoError(t, err)

		_, err = f.WriteAt([]byte("J"), 0)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		h, err := o.GetSHA1(1)
		require.NoError(t, err)
		require.Equal(t, store.SHA1OfBytes([]byte("Jello")), h)
	})

	t.Run("TruncateInvalidates", func(t *testing.T) {
		o := overlay.NewInMemoryOverlay()
		contentSHA1 := store.SHA1OfBytes([]byte("Hello"))
		f, err := o.CreateFile(1, []byte("Hello"), &contentSHA1)
		require.NoError(t, err)

		require.NoError(t, f.Truncate(2))
		require.NoError(t, f.Close())

		h, err := o.GetSHA1(1)
		require.NoError(t, err)
		require.Equal(t, store.SHA1OfBytes([]byte("He")), h)
	})

	t.Run("RemovalInvalidates", func(t *testing.T) {
		// Removing a file must also drop its cached hash, so that a
		// stale hash cannot be served for a later reincarnation of
		// the inode number.
		o := overlay.NewInMemoryOverlay()
		f, err := o.CreateFile(1, []byte("Hello"), nil)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		h, err := o.GetSHA1(1)
		require.NoError(t, err)
		require.Equal(t, store.SHA1OfBytes([]byte("Hello")), h)

		require.NoError(t, o.RemoveFile(1))
		_, err = o.GetSHA1(1)
		testutil.RequireEqualStatus(t, status.Error(codes.NotFound, "Inode 1 is not present in the overlay"), err)
	})

	t.Run("Absent", func(t *testing.T) {
		o := overlay.NewInMemoryOverlay()
		_, err := o.GetSHA1(7)
		testutil.RequireEqualStatus(t, status.Error(codes.NotFound, "Inode 7 is not present in the overlay"), err)
	})
}
