package overlay

import (
	"sync/atomic"

	"github.com/buildbarn/bb-virtual-checkout/pkg/store"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// quotaMetric is a simple 64-bit counter from/to which can be
// subtracted/added atomically. It is used to store the number of files
// and bytes of space available.
type quotaMetric struct {
	remaining atomic.Int64
}

func (m *quotaMetric) allocate(v int64) bool {
	for {
		remaining := m.remaining.Load()
		if remaining < v {
			return false
		}
		if m.remaining.CompareAndSwap(remaining, remaining-v) {
			return true
		}
	}
}

func (m *quotaMetric) release(v int64) {
	m.remaining.Add(v)
}

type quotaEnforcingOverlay struct {
	base Overlay

	filesRemaining quotaMetric
	bytesRemaining quotaMetric
}

// NewQuotaEnforcingOverlay creates a decorator for Overlay that bounds
// the number of materialized files and the total number of content
// bytes they occupy. Space is reclaimed by truncating or removing
// files. Exceeding either bound causes materialization to fail, leaving
// the affected file virtual.
func NewQuotaEnforcingOverlay(base Overlay, maximumFileCount, maximumTotalSizeBytes int64) Overlay {
	o := &quotaEnforcingOverlay{
		base: base,
	}
	o.filesRemaining.remaining.Store(maximumFileCount)
	o.bytesRemaining.remaining.Store(maximumTotalSizeBytes)
	return o
}

func (o *quotaEnforcingOverlay) CreateFile(inodeNumber uint64, contents []byte, contentSHA1 *store.Hash) (OverlayFile, error) {
	if !o.filesRemaining.allocate(1) {
		return nil, status.Error(codes.ResourceExhausted, "Overlay file count quota reached")
	}
	size := int64(len(contents))
	if !o.bytesRemaining.allocate(size) {
		o.filesRemaining.release(1)
		return nil, status.Error(codes.ResourceExhausted, "Overlay size quota reached")
	}
	f, err := o.base.CreateFile(inodeNumber, contents, contentSHA1)
	if err != nil {
		o.filesRemaining.release(1)
		o.bytesRemaining.release(size)
		return nil, err
	}
	return &quotaEnforcingFile{
		OverlayFile: f,
		overlay:     o,
		size:        size,
	}, nil
}

func (o *quotaEnforcingOverlay) OpenFile(inodeNumber uint64) (OverlayFile, error) {
	f, err := o.base.OpenFile(inodeNumber)
	if err != nil {
		return nil, err
	}
	size, err := f.GetSizeBytes()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &quotaEnforcingFile{
		OverlayFile: f,
		overlay:     o,
		size:        size,
	}, nil
}

func (o *quotaEnforcingOverlay) RemoveFile(inodeNumber uint64) error {
	// Look up the file size first, so that the space it occupied can
	// be released after removal.
	size := int64(0)
	if f, err := o.base.OpenFile(inodeNumber); err == nil {
		size, _ = f.GetSizeBytes()
		f.Close()
	}
	if err := o.base.RemoveFile(inodeNumber); err != nil {
		return err
	}
	o.filesRemaining.release(1)
	o.bytesRemaining.release(size)
	return nil
}

func (o *quotaEnforcingOverlay) GetSHA1(inodeNumber uint64) (store.Hash, error) {
	return o.base.GetSHA1(inodeNumber)
}

type quotaEnforcingFile struct {
	OverlayFile

	overlay *quotaEnforcingOverlay
	size    int64
}

func (f *quotaEnforcingFile) Close() error {
	err := f.OverlayFile.Close()
	f.OverlayFile = nil
	f.overlay = nil
	return err
}

func (f *quotaEnforcingFile) Truncate(size int64) error {
	if size < f.size {
		// File is shrinking.
		if err := f.OverlayFile.Truncate(size); err != nil {
			return err
		}
		f.overlay.bytesRemaining.release(f.size - size)
	} else if size > f.size {
		// File is growing.
		additionalSpace := size - f.size
		if !f.overlay.bytesRemaining.allocate(additionalSpace) {
			return status.Error(codes.ResourceExhausted, "Overlay size quota reached")
		}
		if err := f.OverlayFile.Truncate(size); err != nil {
			f.overlay.bytesRemaining.release(additionalSpace)
			return err
		}
	}
	f.size = size
	return nil
}

func (f *quotaEnforcingFile) WriteAt(p []byte, off int64) (int, error) {
	// No need to allocate space if the file is not growing.
	desiredSize := off + int64(len(p))
	if desiredSize <= f.size {
		return f.OverlayFile.WriteAt(p, off)
	}

	// File is growing. Allocate space prior to writing. Release it,
	// potentially partially, upon failure.
	if !f.overlay.bytesRemaining.allocate(desiredSize - f.size) {
		return 0, status.Error(codes.ResourceExhausted, "Overlay size quota reached")
	}
	n, err := f.OverlayFile.WriteAt(p, off)
	actualSize := int64(0)
	if n > 0 {
		actualSize = off + int64(n)
	}
	if actualSize < f.size {
		actualSize = f.size
	}
	if actualSize < desiredSize {
		f.overlay.bytesRemaining.release(desiredSize - actualSize)
	}
	f.size = actualSize
	return n, err
}
