package projection

import (
	"github.com/google/uuid"
)

// CommandID identifies an in-flight callback handed to the channel by
// the projection service. Completion of asynchronous work refers back
// to it.
type CommandID int32

// DataStreamID identifies the stream through which file contents are
// delivered back to a specific open file.
type DataStreamID uuid.UUID

// InstanceInfo describes properties of a started virtualization
// instance. The write alignment is the sector alignment that large
// data writes must adhere to.
type InstanceInfo struct {
	WriteAlignment uint64
}

// PlaceholderInfo is the metadata from which the projection service
// synthesizes an on-disk placeholder.
type PlaceholderInfo struct {
	IsDirectory bool
	SizeBytes   uint64
}

// DirectoryEntryBuffer is an output buffer of bounded capacity into
// which directory entries are written during enumeration. AddEntry
// returns false when the entry did not fit, in which case the buffer's
// contents are unchanged.
type DirectoryEntryBuffer interface {
	AddEntry(name string, isDirectory bool, sizeBytes uint64) bool
}

// VirtualizationInstance is the handle to the operating system's
// projection service for a single mount. The projection channel is the
// only caller. Implementations bind these operations to the native
// virtualization API; tests substitute a mock.
type VirtualizationInstance interface {
	// StartVirtualizing registers the callbacks for the mount and
	// starts intercepting filesystem operations.
	StartVirtualizing(mountPath string, mountGUID uuid.UUID, useNegativePathCaching bool) error
	// StopVirtualizing detaches from the mount. No new callbacks
	// are delivered once this returns.
	StopVirtualizing() error
	// CompleteCommand finishes a callback that previously returned
	// StatusPending.
	CompleteCommand(commandID CommandID, s Status) error
	// WriteFileData delivers file contents for a pending read. The
	// buffer must honor the alignment requirements reported through
	// GetInstanceInfo for writes larger than a single sector.
	WriteFileData(dataStreamID DataStreamID, data []byte, byteOffset uint64) error
	// AllocateAlignedBuffer returns a buffer suitable for
	// WriteFileData, or nil if no memory is available.
	AllocateAlignedBuffer(sizeBytes uint64) []byte
	// WritePlaceholderInfo installs a placeholder for a path that
	// was found to exist.
	WritePlaceholderInfo(relativePath string, info PlaceholderInfo) error
	// MarkDirectoryAsPlaceholder converts an existing on-disk
	// directory into a placeholder.
	MarkDirectoryAsPlaceholder(relativePath string) error
	// DeleteFile removes a cached (non-materialized) file from
	// disk.
	DeleteFile(relativePath string) error
	// ClearNegativePathCache drops all negative path cache entries,
	// returning how many were flushed.
	ClearNegativePathCache() (uint32, error)
	// GetInstanceInfo reports properties of the running instance.
	GetInstanceInfo() (InstanceInfo, error)
}
