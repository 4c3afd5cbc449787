package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/eviction"
	"github.com/buildbarn/bb-storage/pkg/filesystem"
	"github.com/buildbarn/bb-storage/pkg/filesystem/path"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/buildbarn/bb-virtual-checkout/pkg/filesystem/inode"
	"github.com/buildbarn/bb-virtual-checkout/pkg/filesystem/overlay"
	"github.com/buildbarn/bb-virtual-checkout/pkg/filesystem/projection"
	"github.com/buildbarn/bb-virtual-checkout/pkg/store"
	"github.com/buildbarn/bb-virtual-checkout/pkg/store/proxyhash"
	"github.com/buildbarn/bb-virtual-checkout/pkg/takeover"
	"github.com/cockroachdb/pebble/v2"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"

	"golang.org/x/sync/errgroup"
)

// This daemon projects a checked out revision of a source control
// repository into a directory, without copying any file contents up
// front. Placeholders are synthesized from directory manifests in the
// backing blob store; file contents are fetched on first read. Writes
// move files into a local overlay, after which the overlay holds their
// authoritative contents. On shutdown the daemon serializes its inode
// state, so that a successor process can take over the mount without
// the user noticing.

const takeoverStateFilename = "takeover"

// restoreInodeMap recovers the inode map from the takeover state left
// behind by a previous incarnation of the daemon, if any.
func restoreInodeMap(env *inode.FileInodeEnvironment, takeoverStatePath, mountPath string) (*inode.InodeMap, error) {
	data, err := os.ReadFile(takeoverStatePath)
	if os.IsNotExist(err) {
		return inode.NewInodeMap(), nil
	} else if err != nil {
		return nil, util.StatusWrapf(err, "Failed to read takeover state from %#v", takeoverStatePath)
	}
	takeoverData, err := takeover.Deserialize(data)
	if err != nil {
		return nil, util.StatusWrapf(err, "Failed to deserialize takeover state from %#v", takeoverStatePath)
	}
	for _, mount := range takeoverData.Mounts {
		if mount.MountPath == mountPath {
			return inode.NewInodeMapFromFrozen(env, mount.InodeMap)
		}
	}
	return inode.NewInodeMap(), nil
}

// saveTakeoverState quiesces the inode map and writes it to the state
// directory, from where the next incarnation of the daemon picks it up.
func saveTakeoverState(inodeMap *inode.InodeMap, takeoverStatePath, mountPath, stateDirectoryPath string) error {
	frozen, err := inodeMap.Freeze(context.Background())
	if err != nil {
		return util.StatusWrap(err, "Failed to freeze the inode map")
	}
	data, err := takeover.Serialize(takeover.VersionFive, &takeover.Data{
		Mounts: []takeover.Mount{
			{
				MountPath:          mountPath,
				StateDirectoryPath: stateDirectoryPath,
				InodeMap:           frozen,
			},
		},
	})
	if err != nil {
		return util.StatusWrap(err, "Failed to serialize takeover state")
	}
	if err := os.WriteFile(takeoverStatePath, data, 0o600); err != nil {
		return util.StatusWrapf(err, "Failed to write takeover state to %#v", takeoverStatePath)
	}
	return nil
}

func main() {
	var (
		mountPath                    = pflag.String("mount-path", "", "Path at which the checkout is projected")
		stateDirectoryPath           = pflag.String("state-directory-path", "", "Directory holding the overlay and takeover state of this mount")
		blobDirectoryPath            = pflag.String("blob-directory-path", "", "Directory holding blobs and directory manifests, keyed by SHA-1")
		proxyHashDatabasePath        = pflag.String("proxy-hash-database-path", "", "Path of the Pebble database holding legacy proxy hash records")
		checkoutRevision             = pflag.String("checkout-revision", "", "SHA-1 of the root directory manifest of the revision to project")
		mountGUIDString              = pflag.String("mount-guid", "", "GUID under which the mount registers with the projection service; generated when left empty")
		metricsListenAddress         = pflag.String("metrics-listen-address", ":7982", "Address on which metrics and profiling are served over HTTP")
		requestTimeout               = pflag.Duration("request-timeout", time.Minute, "Maximum amount of time a single projection callback may run")
		callbackConcurrency          = pflag.Int64("callback-concurrency", 16, "Maximum number of projection callbacks executing at once")
		blobCacheSizeBytes           = pflag.Int64("blob-cache-size-bytes", 512*1024*1024, "Maximum total size of blobs retained in memory")
		overlayMaximumFileCount      = pflag.Int64("overlay-maximum-file-count", 1<<20, "Maximum number of files the overlay may hold")
		overlayMaximumTotalSizeBytes = pflag.Int64("overlay-maximum-total-size-bytes", 16*1024*1024*1024, "Maximum total size of files the overlay may hold")
		useNegativePathCaching       = pflag.Bool("negative-path-caching", true, "Let the projection service cache lookups of absent paths")
	)
	pflag.Parse()
	for name, value := range map[string]string{
		"mount-path":               *mountPath,
		"state-directory-path":     *stateDirectoryPath,
		"blob-directory-path":      *blobDirectoryPath,
		"proxy-hash-database-path": *proxyHashDatabasePath,
		"checkout-revision":        *checkoutRevision,
	} {
		if value == "" {
			log.Fatalf("Flag --%s is required", name)
		}
	}

	rootHash, err := store.NewHashFromString(*checkoutRevision)
	if err != nil {
		log.Fatal("Invalid checkout revision: ", err)
	}
	mountGUID := uuid.New()
	if *mountGUIDString != "" {
		if mountGUID, err = uuid.Parse(*mountGUIDString); err != nil {
			log.Fatal("Invalid mount GUID: ", err)
		}
	}

	// Backing stores: blobs and directory manifests from a local
	// directory fronted by an in-memory cache, legacy proxy hash
	// records from a Pebble database.
	db, err := pebble.Open(*proxyHashDatabasePath, &pebble.Options{})
	if err != nil {
		log.Fatalf("Failed to open proxy hash database %#v: %s", *proxyHashDatabasePath, err)
	}
	legacyStore := proxyhash.NewPebbleLegacyStore(db)

	blobDirectory, err := filesystem.NewLocalDirectory(path.LocalFormat.NewParser(*blobDirectoryPath))
	if err != nil {
		log.Fatalf("Failed to open blob directory %#v: %s", *blobDirectoryPath, err)
	}
	blobStore := store.NewCachingBlobStore(
		store.NewDirectoryBackedBlobStore(blobDirectory),
		*blobCacheSizeBytes,
		eviction.NewLRUSet[string]())

	// Overlay for files whose contents diverged from the revision.
	overlayDirectoryPath := filepath.Join(*stateDirectoryPath, "overlay")
	if err := os.MkdirAll(overlayDirectoryPath, 0o700); err != nil {
		log.Fatalf("Failed to create overlay directory %#v: %s", overlayDirectoryPath, err)
	}
	overlayDirectory, err := filesystem.NewLocalDirectory(path.LocalFormat.NewParser(overlayDirectoryPath))
	if err != nil {
		log.Fatalf("Failed to open overlay directory %#v: %s", overlayDirectoryPath, err)
	}
	checkoutOverlay := overlay.NewMetricsOverlay(
		overlay.NewQuotaEnforcingOverlay(
			overlay.NewDirectoryBackedOverlay(overlayDirectory),
			*overlayMaximumFileCount,
			*overlayMaximumTotalSizeBytes))

	var renameLock sync.RWMutex
	env := &inode.FileInodeEnvironment{
		BlobStore:  blobStore,
		Overlay:    checkoutOverlay,
		RenameLock: &renameLock,
	}
	takeoverStatePath := filepath.Join(*stateDirectoryPath, takeoverStateFilename)
	inodeMap, err := restoreInodeMap(env, takeoverStatePath, *mountPath)
	if err != nil {
		log.Fatal("Failed to restore the inode map: ", err)
	}
	dispatcher := newCheckoutDispatcher(blobStore, legacyStore, env, inodeMap, rootHash)
	env.Notifier = dispatcher

	instance, err := newVirtualizationInstance()
	if err != nil {
		log.Fatal("Failed to create a virtualization instance: ", err)
	}
	channel := projection.NewChannel(
		projection.NewTracingDispatcher(dispatcher, otel.GetTracerProvider()),
		instance,
		*mountPath,
		mountGUID,
		*useNegativePathCaching,
		util.DefaultErrorLogger,
		clock.SystemClock,
		*requestTimeout,
		os.Getpid(),
		*callbackConcurrency)

	// Web server for metrics, profiling and dispatcher statistics.
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	router.HandleFunc("/dispatcher_stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(dispatcher.GetStats()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	go func() {
		log.Fatal("Web server failure: ", http.ListenAndServe(*metricsListenAddress, router))
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := channel.Start(); err != nil {
			return util.StatusWrapf(err, "Failed to start virtualizing %#v", *mountPath)
		}
		<-groupCtx.Done()
		if err := channel.Stop(); err != nil {
			return util.StatusWrapf(err, "Failed to stop virtualizing %#v", *mountPath)
		}
		return saveTakeoverState(inodeMap, takeoverStatePath, *mountPath, *stateDirectoryPath)
	})
	if err := group.Wait(); err != nil {
		log.Fatal(err)
	}
	if err := db.Close(); err != nil {
		log.Fatal("Failed to close the proxy hash database: ", err)
	}
}
