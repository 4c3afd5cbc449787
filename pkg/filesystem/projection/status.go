package projection

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Status is the response of operations applied against the projection
// channel, as reported to the operating system's projection service.
type Status int

const (
	// StatusOK indicates that the operation succeeded.
	StatusOK Status = iota
	// StatusPending indicates that the operation will complete
	// asynchronously through the completion routine.
	StatusPending
	// StatusErrNoEnt indicates that the operation failed due to a
	// file not existing.
	StatusErrNoEnt
	// StatusErrInval indicates that the arguments for this
	// operation are not valid, such as an unknown enumeration
	// session or an unrecognized notification kind.
	StatusErrInval
	// StatusErrAccess indicates that the operation failed due to
	// permission being denied. Callbacks triggered by the channel's
	// own process report this status to stop the channel from
	// recursing into itself.
	StatusErrAccess
	// StatusErrInsufficientBuffer indicates that the provided
	// output buffer is too small to hold even a single entry. The
	// caller may retry with a larger buffer.
	StatusErrInsufficientBuffer
	// StatusErrOutOfMemory indicates that an aligned data buffer
	// could not be allocated.
	StatusErrOutOfMemory
	// StatusErrIO indicates that the operation failed due to an I/O
	// error against the backing store or the overlay.
	StatusErrIO
	// StatusErrTimedOut indicates that the operation did not
	// complete within the timeout configured on the mount.
	StatusErrTimedOut
)

// StatusFromError converts an error returned by the dispatcher or the
// backing store to the Status delivered to the operating system.
func StatusFromError(err error) Status {
	if err == nil {
		return StatusOK
	}
	code := status.Code(err)
	if code == codes.Unknown {
		// Context errors do not carry a gRPC status code.
		code = status.FromContextError(err).Code()
	}
	switch code {
	case codes.NotFound:
		return StatusErrNoEnt
	case codes.InvalidArgument:
		return StatusErrInval
	case codes.PermissionDenied:
		return StatusErrAccess
	case codes.OutOfRange:
		return StatusErrInsufficientBuffer
	case codes.ResourceExhausted:
		return StatusErrOutOfMemory
	case codes.DeadlineExceeded:
		return StatusErrTimedOut
	default:
		return StatusErrIO
	}
}

var statusNames = map[Status]string{
	StatusOK:                    "OK",
	StatusPending:               "PENDING",
	StatusErrNoEnt:              "NOENT",
	StatusErrInval:              "INVAL",
	StatusErrAccess:             "ACCESS",
	StatusErrInsufficientBuffer: "INSUFFICIENT_BUFFER",
	StatusErrOutOfMemory:        "OUT_OF_MEMORY",
	StatusErrIO:                 "IO",
	StatusErrTimedOut:           "TIMED_OUT",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}
