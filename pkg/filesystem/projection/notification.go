package projection

import (
	"context"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NotificationKind identifies an event reported by the projection
// service: either a change it has already committed to the working
// copy, or a request for permission before an operation takes place.
type NotificationKind int

const (
	// NotificationNewFileCreated reports that a new file or
	// directory appeared.
	NotificationNewFileCreated NotificationKind = iota
	// NotificationFileOverwritten reports that an existing file was
	// superseded.
	NotificationFileOverwritten
	// NotificationFileHandleClosedFileModified reports that the
	// last handle to a modified file was closed.
	NotificationFileHandleClosedFileModified
	// NotificationFileRenamed reports a rename. An empty old path
	// denotes a file moved into the mount; an empty new path
	// denotes a file moved out of it.
	NotificationFileRenamed
	// NotificationPreRename asks permission for a rename that has
	// not happened yet.
	NotificationPreRename
	// NotificationFileHandleClosedFileDeleted reports that the last
	// handle to a deleted file was closed.
	NotificationFileHandleClosedFileDeleted
	// NotificationPreSetHardlink asks permission to create a hard
	// link, which this filesystem does not support.
	NotificationPreSetHardlink
)

type notificationHandler func(ctx context.Context, d Dispatcher, relativePath, destinationPath string, isDirectory bool) error

// notificationEntry ties a notification kind to the routine that
// applies it and the rendering used when logging failures.
type notificationEntry struct {
	name     string
	handler  notificationHandler
	renderer func(relativePath, destinationPath string) string
}

func renderSinglePath(name string) func(relativePath, destinationPath string) string {
	return func(relativePath, destinationPath string) string {
		return fmt.Sprintf("%s %#v", name, relativePath)
	}
}

var notificationHandlers = map[NotificationKind]notificationEntry{
	NotificationNewFileCreated: {
		name: "NEW_FILE_CREATED",
		handler: func(ctx context.Context, d Dispatcher, relativePath, destinationPath string, isDirectory bool) error {
			if isDirectory {
				return d.DirCreated(ctx, relativePath)
			}
			return d.FileCreated(ctx, relativePath)
		},
		renderer: renderSinglePath("NEW_FILE_CREATED"),
	},
	NotificationFileOverwritten: {
		name: "FILE_OVERWRITTEN",
		handler: func(ctx context.Context, d Dispatcher, relativePath, destinationPath string, isDirectory bool) error {
			return d.FileModified(ctx, relativePath)
		},
		renderer: renderSinglePath("FILE_OVERWRITTEN"),
	},
	NotificationFileHandleClosedFileModified: {
		name: "FILE_HANDLE_CLOSED_FILE_MODIFIED",
		handler: func(ctx context.Context, d Dispatcher, relativePath, destinationPath string, isDirectory bool) error {
			return d.FileModified(ctx, relativePath)
		},
		renderer: renderSinglePath("FILE_HANDLE_CLOSED_FILE_MODIFIED"),
	},
	NotificationFileRenamed: {
		name: "FILE_RENAMED",
		handler: func(ctx context.Context, d Dispatcher, relativePath, destinationPath string, isDirectory bool) error {
			// A file moved into the mount appears as a rename
			// with no old path; a file moved out of it as one
			// with no new path.
			if relativePath == "" {
				if isDirectory {
					return d.DirCreated(ctx, destinationPath)
				}
				return d.FileCreated(ctx, destinationPath)
			}
			if destinationPath == "" {
				if isDirectory {
					return d.DirDeleted(ctx, relativePath)
				}
				return d.FileDeleted(ctx, relativePath)
			}
			return d.FileRenamed(ctx, relativePath, destinationPath)
		},
		renderer: func(relativePath, destinationPath string) string {
			return fmt.Sprintf("FILE_RENAMED %#v -> %#v", relativePath, destinationPath)
		},
	},
	NotificationPreRename: {
		name: "PRE_RENAME",
		handler: func(ctx context.Context, d Dispatcher, relativePath, destinationPath string, isDirectory bool) error {
			// Advisory only. The rename is validated once it has
			// actually happened.
			return nil
		},
		renderer: func(relativePath, destinationPath string) string {
			return fmt.Sprintf("PRE_RENAME %#v -> %#v", relativePath, destinationPath)
		},
	},
	NotificationFileHandleClosedFileDeleted: {
		name: "FILE_HANDLE_CLOSED_FILE_DELETED",
		handler: func(ctx context.Context, d Dispatcher, relativePath, destinationPath string, isDirectory bool) error {
			if isDirectory {
				return d.DirDeleted(ctx, relativePath)
			}
			return d.FileDeleted(ctx, relativePath)
		},
		renderer: renderSinglePath("FILE_HANDLE_CLOSED_FILE_DELETED"),
	},
	NotificationPreSetHardlink: {
		name: "PRE_SET_HARDLINK",
		handler: func(ctx context.Context, d Dispatcher, relativePath, destinationPath string, isDirectory bool) error {
			return status.Errorf(codes.PermissionDenied, "Hard links are not supported on path %#v", relativePath)
		},
		renderer: renderSinglePath("PRE_SET_HARDLINK"),
	},
}
