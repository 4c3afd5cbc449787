package overlay_test

import (
	"testing"

	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/buildbarn/bb-virtual-checkout/pkg/filesystem/overlay"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestQuotaEnforcingOverlayCreateFile(t *testing.T) {
	t.Run("FileCountQuota", func(t *testing.T) {
		o := overlay.NewQuotaEnforcingOverlay(overlay.NewInMemoryOverlay(), 1, 1000)
		f, err := o.CreateFile(1, []byte("first"), nil)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		_, err = o.CreateFile(2, []byte("second"), nil)
		testutil.RequireEqualStatus(t, status.Error(codes.ResourceExhausted, "Overlay file count quota reached"), err)

		// Removing the first file frees up its slot.
		require.NoError(t, o.RemoveFile(1))
		f, err = o.CreateFile(2, []byte("second"), nil)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	})

	t.Run("SizeQuota", func(t *testing.T) {
		o := overlay.NewQuotaEnforcingOverlay(overlay.NewInMemoryOverlay(), 2, 5)
		f, err := o.CreateFile(1, []byte("aaaaa"), nil)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		_, err = o.CreateFile(2, []byte("bbbbb"), nil)
		testutil.RequireEqualStatus(t, status.Error(codes.ResourceExhausted, "Overlay size quota reached"), err)

		// The failed creation must have returned its file count slot,
		// so an empty file still fits.
		f, err = o.CreateFile(3, nil, nil)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	})

	t.Run("RemoveReclaimsSpace", func(t *testing.T) {
		o := overlay.NewQuotaEnforcingOverlay(overlay.NewInMemoryOverlay(), 10, 6)
		f, err := o.CreateFile(1, []byte("foobar"), nil)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		_, err = o.CreateFile(2, []byte("barbaz"), nil)
		testutil.RequireEqualStatus(t, status.Error(codes.ResourceExhausted, "Overlay size quota reached"), err)

		require.NoError(t, o.RemoveFile(1))
		f, err = o.CreateFile(2, []byte("barbaz"), nil)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	})
}

func TestQuotaEnforcingOverlayTruncate(t *testing.T) {
	t.Run("ShrinkReleasesSpace", func(t *testing.T) {
		o := overlay.NewQuotaEnforcingOverlay(overlay.NewInMemoryOverlay(), 10, 10)
		f, err := o.CreateFile(1, []byte("aaaaaaaaaa"), nil)
		require.NoError(t, err)

		_, err = o.CreateFile(2, []byte("b"), nil)
		testutil.RequireEqualStatus(t, status.Error(codes.ResourceExhausted, "Overlay size quota reached"), err)

		require.NoError(t, f.Truncate(4))
		require.NoError(t, f.Close())

		f2, err := o.CreateFile(2, []byte("bbbbbb"), nil)
		require.NoError(t, err)
		require.NoError(t, f2.Close())
	})

	t.Run("GrowBeyondQuota", func(t *testing.T) {
		o := overlay.NewQuotaEnforcingOverlay(overlay.NewInMemoryOverlay(), 10, 10)
		f, err := o.CreateFile(1, []byte("aaaaaa"), nil)
		require.NoError(t, err)

		testutil.RequireEqualStatus(t, status.Error(codes.ResourceExhausted, "Overlay size quota reached"), f.Truncate(11))

		// Growing up to the limit is still permitted, and a failed
		// growth attempt must not have consumed any space.
		require.NoError(t, f.Truncate(10))
		require.NoError(t, f.Close())
	})

	t.Run("ShrinkThroughReopenedHandle", func(t *testing.T) {
		// OpenFile() picks up the current size, so truncations through
		// a reopened handle release the right amount of space.
		o := overlay.NewQuotaEnforcingOverlay(overlay.NewInMemoryOverlay(), 10, 10)
		f, err := o.CreateFile(1, []byte("aaaaaaaaaa"), nil)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		f, err = o.OpenFile(1)
		require.NoError(t, err)
		require.NoError(t, f.Truncate(0))
		require.NoError(t, f.Close())

		f2, err := o.CreateFile(2, []byte("bbbbbbbbbb"), nil)
		require.NoError(t, err)
		require.NoError(t, f2.Close())
	})
}

func TestQuotaEnforcingOverlayWriteAt(t *testing.T) {
	t.Run("WriteWithinSize", func(t *testing.T) {
		// Overwriting existing bytes needs no additional space, even
		// when the quota is fully consumed.
		o := overlay.NewQuotaEnforcingOverlay(overlay.NewInMemoryOverlay(), 10, 5)
		f, err := o.CreateFile(1, []byte("aaaaa"), nil)
		require.NoError(t, err)

		n, err := f.WriteAt([]byte("bb"), 1)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		require.NoError(t, f.Close())
	})

	t.Run("GrowingWrite", func(t *testing.T) {
		o := overlay.NewQuotaEnforcingOverlay(overlay.NewInMemoryOverlay(), 10, 10)
		f, err := o.CreateFile(1, nil, nil)
		require.NoError(t, err)

		n, err := f.WriteAt([]byte("aaaa"), 0)
		require.NoError(t, err)
		require.Equal(t, 4, n)

		// Writing at offset 8 would extend the file to 12 bytes.
		_, err = f.WriteAt([]byte("bbbb"), 8)
		testutil.RequireEqualStatus(t, status.Error(codes.ResourceExhausted, "Overlay size quota reached"), err)

		// Extending to exactly the limit still fits, which also shows
		// the failed write did not leak any of the space it reserved.
		n, err = f.WriteAt([]byte("cccccc"), 4)
		require.NoError(t, err)
		require.Equal(t, 6, n)
		require.NoError(t, f.Close())

		_, err = o.CreateFile(2, []byte("d"), nil)
		testutil.RequireEqualStatus(t, status.Error(codes.ResourceExhausted, "Overlay size quota reached"), err)
	})
}
