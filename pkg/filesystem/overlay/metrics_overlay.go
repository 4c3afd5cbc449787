package overlay

import (
	"sync"

	"github.com/buildbarn/bb-virtual-checkout/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	overlayPrometheusMetrics sync.Once

	overlayFilesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "virtual_checkout",
			Name:      "overlay_files_created_total",
			Help:      "Number of times a file was materialized into the overlay.",
		})
	overlayFilesRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "virtual_checkout",
			Name:      "overlay_files_removed_total",
			Help:      "Number of times a materialized file was removed from the overlay.",
		})
	overlaySHA1Computations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "virtual_checkout",
			Name:      "overlay_sha1_computations_total",
			Help:      "Number of times the SHA-1 of a materialized file was requested.",
		})
)

type metricsOverlay struct {
	base Overlay
}

// NewMetricsOverlay creates a decorator for Overlay that exposes
// Prometheus metrics on how many files are materialized and removed.
func NewMetricsOverlay(base Overlay) Overlay {
	overlayPrometheusMetrics.Do(func() {
		prometheus.MustRegister(overlayFilesCreated)
		prometheus.MustRegister(overlayFilesRemoved)
		prometheus.MustRegister(overlaySHA1Computations)
	})

	return &metricsOverlay{
		base: base,
	}
}

func (o *metricsOverlay) CreateFile(inodeNumber uint64, contents []byte, contentSHA1 *store.Hash) (OverlayFile, error) {
	f, err := o.base.CreateFile(inodeNumber, contents, contentSHA1)
	if err != nil {
		return nil, err
	}
	overlayFilesCreated.Inc()
	return f, nil
}

func (o *metricsOverlay) OpenFile(inodeNumber uint64) (OverlayFile, error) {
	return o.base.OpenFile(inodeNumber)
}

func (o *metricsOverlay) RemoveFile(inodeNumber uint64) error {
	if err := o.base.RemoveFile(inodeNumber); err != nil {
		return err
	}
	overlayFilesRemoved.Inc()
	return nil
}

func (o *metricsOverlay) GetSHA1(inodeNumber uint64) (store.Hash, error) {
	overlaySHA1Computations.Inc()
	return o.base.GetSHA1(inodeNumber)
}
