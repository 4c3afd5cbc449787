package projection

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/util"
	vc_sync "github.com/buildbarn/bb-virtual-checkout/pkg/sync"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"golang.org/x/sync/semaphore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	channelPrometheusMetrics sync.Once

	channelCallbacksDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buildbarn",
			Subsystem: "virtual_checkout",
			Name:      "channel_callbacks_duration_seconds",
			Help:      "Amount of time spent per projection callback, in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, math.Pow(10.0, 1.0/3.0), 6*3+1),
		},
		[]string{"callback"})
	channelCallbacksDurationSecondsStartEnumeration   = channelCallbacksDurationSeconds.WithLabelValues("StartEnumeration")
	channelCallbacksDurationSecondsGetEnumerationData = channelCallbacksDurationSeconds.WithLabelValues("GetEnumerationData")
	channelCallbacksDurationSecondsEndEnumeration     = channelCallbacksDurationSeconds.WithLabelValues("EndEnumeration")
	channelCallbacksDurationSecondsGetPlaceholderInfo = channelCallbacksDurationSeconds.WithLabelValues("GetPlaceholderInfo")
	channelCallbacksDurationSecondsQueryFileName      = channelCallbacksDurationSeconds.WithLabelValues("QueryFileName")
	channelCallbacksDurationSecondsGetFileData        = channelCallbacksDurationSeconds.WithLabelValues("GetFileData")

	channelNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "virtual_checkout",
			Name:      "channel_notifications_total",
			Help:      "Number of notifications received, by kind.",
		},
		[]string{"kind"})

	channelNegativePathCacheEntriesFlushed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "virtual_checkout",
			Name:      "channel_negative_path_cache_entries_flushed_total",
			Help:      "Number of negative path cache entries that were flushed.",
		})
)

// CallbackData accompanies every callback delivered by the projection
// service.
type CallbackData struct {
	CommandID           CommandID
	TriggeringProcessID int
}

type channelInner struct {
	dispatcher   Dispatcher
	instance     VirtualizationInstance
	enumerations *EnumerationRegistry
	errorLogger  util.ErrorLogger
	clock        clock.Clock
	timeout      time.Duration
	processID    int
	executor     *semaphore.Weighted

	commandsLock sync.Mutex
	commands     map[CommandID]context.CancelFunc
}

// Channel routes callbacks from the operating system's projection
// service into a Dispatcher and tears the mount down cleanly.
//
// Callbacks that perform I/O return StatusPending immediately and
// complete asynchronously through CompleteCommand. The inner dispatch
// state sits behind an atomic pointer: callbacks snapshot it once and
// the snapshot stays valid until they drop their teardown guard
// reference, even if Stop runs concurrently.
type Channel struct {
	mountPath              string
	mountGUID              uuid.UUID
	useNegativePathCaching bool

	inner atomic.Pointer[channelInner]
	guard vc_sync.TeardownGuard
}

// NewChannel creates a Channel for a single mount. The channel does not
// intercept filesystem operations until Start is called. The timeout
// bounds every callback; concurrency bounds the number of callbacks
// executing at once.
func NewChannel(dispatcher Dispatcher, instance VirtualizationInstance, mountPath string, mountGUID uuid.UUID, useNegativePathCaching bool, errorLogger util.ErrorLogger, clk clock.Clock, timeout time.Duration, processID int, concurrency int64) *Channel {
	channelPrometheusMetrics.Do(func() {
		prometheus.MustRegister(channelCallbacksDurationSeconds)
		prometheus.MustRegister(channelNotificationsTotal)
		prometheus.MustRegister(channelNegativePathCacheEntriesFlushed)
	})

	ch := &Channel{
		mountPath:              mountPath,
		mountGUID:              mountGUID,
		useNegativePathCaching: useNegativePathCaching,
	}
	ch.inner.Store(&channelInner{
		dispatcher:   dispatcher,
		instance:     instance,
		enumerations: NewEnumerationRegistry(),
		errorLogger:  errorLogger,
		clock:        clk,
		timeout:      timeout,
		processID:    processID,
		executor:     semaphore.NewWeighted(concurrency),
		commands:     map[CommandID]context.CancelFunc{},
	})
	return ch
}

// Start registers the mount with the projection service and flushes the
// negative path cache, so that paths that appeared since a previous
// incarnation of the mount become visible.
func (ch *Channel) Start() error {
	inner := ch.inner.Load()
	if err := inner.instance.StartVirtualizing(ch.mountPath, ch.mountGUID, ch.useNegativePathCaching); err != nil {
		return util.StatusWrapf(err, "Failed to start virtualizing %#v", ch.mountPath)
	}
	if _, err := ch.FlushNegativePathCache(); err != nil {
		return err
	}
	return nil
}

// Stop detaches from the mount, publishes a nil inner pointer so that
// late callbacks fail cleanly, and waits for all callbacks still in
// flight to drain.
func (ch *Channel) Stop() error {
	inner := ch.inner.Load()
	if err := inner.instance.StopVirtualizing(); err != nil {
		return util.StatusWrapf(err, "Failed to stop virtualizing %#v", ch.mountPath)
	}
	ch.inner.Store(nil)
	ch.guard.Teardown()
	return nil
}

// FlushNegativePathCache clears the OS-level negative path cache and
// returns the number of entries flushed. It is a no-op when negative
// path caching is disabled for the mount.
func (ch *Channel) FlushNegativePathCache() (uint32, error) {
	if !ch.useNegativePathCaching {
		return 0, nil
	}
	inner := ch.inner.Load()
	if inner == nil {
		return 0, status.Error(codes.Unavailable, "Channel has been stopped")
	}
	flushed, err := inner.instance.ClearNegativePathCache()
	if err != nil {
		return 0, util.StatusWrap(err, "Failed to clear the negative path cache")
	}
	channelNegativePathCacheEntriesFlushed.Add(float64(flushed))
	return flushed, nil
}

// AddDirectoryPlaceholder converts an on-disk directory into a
// placeholder. Directories that are placeholders already, and
// directories whose conversion is refused as a recursive call, need no
// work and report success.
func (ch *Channel) AddDirectoryPlaceholder(relativePath string) error {
	inner := ch.inner.Load()
	if inner == nil {
		return status.Error(codes.Unavailable, "Channel has been stopped")
	}
	if err := inner.instance.MarkDirectoryAsPlaceholder(relativePath); err != nil {
		switch status.Code(err) {
		case codes.AlreadyExists, codes.PermissionDenied:
		default:
			return util.StatusWrapf(err, "Failed to convert directory %#v to a placeholder", relativePath)
		}
	}
	return nil
}

// RemoveCachedFile deletes a cached, non-materialized file from disk.
// Paths that do not exist, and paths the projection service reports as
// directories, need no invalidation and report success.
func (ch *Channel) RemoveCachedFile(relativePath string) error {
	inner := ch.inner.Load()
	if inner == nil {
		return status.Error(codes.Unavailable, "Channel has been stopped")
	}
	if err := inner.instance.DeleteFile(relativePath); err != nil {
		switch status.Code(err) {
		case codes.NotFound, codes.FailedPrecondition:
		default:
			return util.StatusWrapf(err, "Failed to delete cached file %#v", relativePath)
		}
	}
	return nil
}

// acquire snapshots the inner dispatch state for the duration of one
// callback. Callers that receive a non-nil inner must call
// ch.guard.Leave() when the callback has fully completed.
func (ch *Channel) acquire(data CallbackData) (*channelInner, Status) {
	if !ch.guard.Enter() {
		return nil, StatusErrIO
	}
	inner := ch.inner.Load()
	if inner == nil {
		ch.guard.Leave()
		return nil, StatusErrIO
	}
	if data.TriggeringProcessID == inner.processID {
		ch.guard.Leave()
		return nil, StatusErrAccess
	}
	return inner, StatusOK
}

// run executes one callback handler on the executor and completes the
// command through the virtualization instance once it finishes. The
// caller returns StatusPending to the projection service.
func (ch *Channel) run(inner *channelInner, data CallbackData, durationSeconds prometheus.Observer, handler func(ctx context.Context) Status) Status {
	ctx, cancel := inner.clock.NewContextWithTimeout(context.Background(), inner.timeout)
	inner.commandsLock.Lock()
	inner.commands[data.CommandID] = cancel
	inner.commandsLock.Unlock()

	go func() {
		defer ch.guard.Leave()

		timeStart := inner.clock.Now()
		var s Status
		if err := inner.executor.Acquire(ctx, 1); err != nil {
			s = StatusFromError(err)
		} else {
			s = handler(ctx)
			inner.executor.Release(1)
		}
		durationSeconds.Observe(inner.clock.Now().Sub(timeStart).Seconds())

		inner.commandsLock.Lock()
		delete(inner.commands, data.CommandID)
		inner.commandsLock.Unlock()
		cancel()

		if err := inner.instance.CompleteCommand(data.CommandID, s); err != nil {
			inner.errorLogger.Log(util.StatusWrapf(err, "Failed to complete command %d", data.CommandID))
		}
	}()
	return StatusPending
}

// StartEnumeration opens a directory enumeration session. The directory
// listing is fetched through the dispatcher and stored in the
// enumeration registry under the provided session id.
func (ch *Channel) StartEnumeration(data CallbackData, enumerationID uuid.UUID, relativePath string) Status {
	inner, s := ch.acquire(data)
	if s != StatusOK {
		return s
	}
	return ch.run(inner, data, channelCallbacksDurationSecondsStartEnumeration, func(ctx context.Context) Status {
		entries, err := inner.dispatcher.Opendir(ctx, relativePath)
		if err != nil {
			inner.errorLogger.Log(util.StatusWrapf(err, "Failed to open directory %#v for enumeration", relativePath))
			return StatusFromError(err)
		}
		inner.enumerations.Insert(enumerationID, NewEnumeration(entries))
		return StatusOK
	})
}

// GetEnumerationData copies pending directory entries of an open
// enumeration session into the provided buffer, optionally restarting
// the session with a new search expression first.
func (ch *Channel) GetEnumerationData(data CallbackData, enumerationID uuid.UUID, searchExpression string, restartScan bool, buffer DirectoryEntryBuffer) Status {
	inner, s := ch.acquire(data)
	if s != StatusOK {
		return s
	}
	return ch.run(inner, data, channelCallbacksDurationSecondsGetEnumerationData, func(ctx context.Context) Status {
		e, err := inner.enumerations.Find(enumerationID)
		if err != nil {
			inner.errorLogger.Log(err)
			return StatusFromError(err)
		}
		if restartScan {
			e.Restart(searchExpression)
		}
		return e.CopyEntries(buffer)
	})
}

// EndEnumeration drops an enumeration session. Unknown sessions report
// success, as the projection service may retry.
func (ch *Channel) EndEnumeration(data CallbackData, enumerationID uuid.UUID) Status {
	inner, s := ch.acquire(data)
	if s != StatusOK {
		return s
	}
	return ch.run(inner, data, channelCallbacksDurationSecondsEndEnumeration, func(ctx context.Context) Status {
		inner.enumerations.Remove(enumerationID)
		return StatusOK
	})
}

// GetPlaceholderInfo resolves a path through the dispatcher and hands a
// placeholder record for it to the projection service.
func (ch *Channel) GetPlaceholderInfo(data CallbackData, relativePath string) Status {
	inner, s := ch.acquire(data)
	if s != StatusOK {
		return s
	}
	return ch.run(inner, data, channelCallbacksDurationSecondsGetPlaceholderInfo, func(ctx context.Context) Status {
		result, err := inner.dispatcher.Lookup(ctx, relativePath)
		if err != nil {
			if status.Code(err) != codes.NotFound {
				inner.errorLogger.Log(util.StatusWrapf(err, "Failed to look up %#v", relativePath))
			}
			return StatusFromError(err)
		}
		if err := inner.instance.WritePlaceholderInfo(relativePath, PlaceholderInfo{
			IsDirectory: result.IsDirectory,
			SizeBytes:   result.SizeBytes,
		}); err != nil {
			inner.errorLogger.Log(util.StatusWrapf(err, "Failed to write placeholder info for %#v", relativePath))
			return StatusFromError(err)
		}
		return StatusOK
	})
}

// QueryFileName reports whether a path exists, without installing a
// placeholder for it.
func (ch *Channel) QueryFileName(data CallbackData, relativePath string) Status {
	inner, s := ch.acquire(data)
	if s != StatusOK {
		return s
	}
	return ch.run(inner, data, channelCallbacksDurationSecondsQueryFileName, func(ctx context.Context) Status {
		exists, err := inner.dispatcher.Access(ctx, relativePath)
		if err != nil {
			inner.errorLogger.Log(util.StatusWrapf(err, "Failed to check existence of %#v", relativePath))
			return StatusFromError(err)
		}
		if !exists {
			return StatusErrNoEnt
		}
		return StatusOK
	})
}

// GetFileData fetches the contents of a file through the dispatcher and
// writes the requested byte range back to the projection service.
// Small files are written whole; large requests are delivered in
// successive writes that respect the device's write alignment.
func (ch *Channel) GetFileData(data CallbackData, dataStreamID DataStreamID, relativePath string, byteOffset, length uint64) Status {
	inner, s := ch.acquire(data)
	if s != StatusOK {
		return s
	}
	return ch.run(inner, data, channelCallbacksDurationSecondsGetFileData, func(ctx context.Context) Status {
		contents, err := inner.dispatcher.Read(ctx, relativePath)
		if err != nil {
			inner.errorLogger.Log(util.StatusWrapf(err, "Failed to read %#v", relativePath))
			return StatusFromError(err)
		}
		blobSize := uint64(len(contents))
		if byteOffset > blobSize || blobSize-byteOffset < length {
			err := status.Errorf(codes.OutOfRange, "Read of %d bytes at offset %d exceeds the %d bytes of %#v", length, byteOffset, blobSize, relativePath)
			inner.errorLogger.Log(err)
			return StatusFromError(err)
		}

		switch {
		case blobSize <= MinChunkSize:
			err = WriteFileChunks(inner.instance, dataStreamID, contents, 0, blobSize, blobSize)
		case length <= MaxChunkSize:
			err = WriteFileChunks(inner.instance, dataStreamID, contents, byteOffset, length, length)
		default:
			var info InstanceInfo
			info, err = inner.instance.GetInstanceInfo()
			if err == nil {
				chunkSize := BlockAlignTruncate(byteOffset+MaxChunkSize, info.WriteAlignment) - byteOffset
				err = WriteFileChunks(inner.instance, dataStreamID, contents, byteOffset, length, chunkSize)
			}
		}
		if err != nil {
			inner.errorLogger.Log(util.StatusWrapf(err, "Failed to write contents of %#v", relativePath))
			return StatusFromError(err)
		}
		return StatusOK
	})
}

// Notification applies a post-mutation event to the dispatcher, or
// grants or denies a pre-operation request. Notifications received
// after teardown indicate that the projection service was not detached
// properly, which cannot be recovered from.
func (ch *Channel) Notification(ctx context.Context, data CallbackData, kind NotificationKind, relativePath, destinationPath string, isDirectory bool) Status {
	if !ch.guard.Enter() {
		panic("Received a notification after teardown")
	}
	defer ch.guard.Leave()
	inner := ch.inner.Load()
	if inner == nil {
		panic("Received a notification after teardown")
	}
	if data.TriggeringProcessID == inner.processID {
		return StatusErrAccess
	}

	entry, ok := notificationHandlers[kind]
	if !ok {
		inner.errorLogger.Log(status.Errorf(codes.InvalidArgument, "Received unknown notification kind %d for path %#v", kind, relativePath))
		return StatusErrInval
	}
	channelNotificationsTotal.WithLabelValues(entry.name).Inc()

	ctx, cancel := inner.clock.NewContextWithTimeout(ctx, inner.timeout)
	defer cancel()
	if err := entry.handler(ctx, inner.dispatcher, relativePath, destinationPath, isDirectory); err != nil {
		if kind == NotificationPreRename || kind == NotificationPreSetHardlink {
			return StatusFromError(err)
		}
		// The mutation already happened on disk, so failing the
		// notification cannot undo it. Log and report success.
		inner.errorLogger.Log(util.StatusWrapf(err, "Failed to apply notification %s", entry.renderer(relativePath, destinationPath)))
	}
	return StatusOK
}

// CancelCommand interrupts a callback that previously returned
// StatusPending. Unknown command ids are ignored, as the command may
// have completed concurrently.
func (ch *Channel) CancelCommand(data CallbackData) {
	if !ch.guard.Enter() {
		return
	}
	defer ch.guard.Leave()
	inner := ch.inner.Load()
	if inner == nil {
		return
	}

	inner.commandsLock.Lock()
	cancel, ok := inner.commands[data.CommandID]
	inner.commandsLock.Unlock()
	if ok {
		cancel()
	}
}
