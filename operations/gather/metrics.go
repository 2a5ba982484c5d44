package gather

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters updated as a batch is processed.
type Metrics struct {
	registry  *prometheus.Registry
	processed *prometheus.CounterVec
	skipped   prometheus.Counter
}

// NewMetrics registers batch counters with registry. If registry is nil a new one is created.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {

	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	processed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_locator_images_processed_total",
			Help: "Total number of images processed, by GPS status",
		},
		[]string{"status"},
	)

	skipped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "image_locator_images_skipped_total",
			Help: "Total number of images that could not be read",
		},
	)

	for _, c := range []prometheus.Collector{processed, skipped} {

		err := registry.Register(c)

		if err != nil {
			return nil, fmt.Errorf("Failed to register collector, %w", err)
		}
	}

	m := &Metrics{
		registry:  registry,
		processed: processed,
		skipped:   skipped,
	}

	return m, nil
}

// Processed returns the counter for images processed with status.
func (m *Metrics) Processed(status string) prometheus.Counter {
	return m.processed.WithLabelValues(status)
}

func (m *Metrics) Skipped() prometheus.Counter {
	return m.skipped
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current value of every counter to path in the Prometheus text
// exposition format.
func (m *Metrics) WriteTextfile(path string) error {

	err := prometheus.WriteToTextfile(path, m.registry)

	if err != nil {
		return fmt.Errorf("Failed to write metrics to %s, %w", path, err)
	}

	return nil
}
