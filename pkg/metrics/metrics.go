package metrics

import (
	"fmt"
	"io"
	"os"

	"github.com/cloud-bulldozer/writeperf/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/prometheus/common/expfmt"
)

const namespace = "writeperf"

// Recorder keeps the Prometheus view of a run
type Recorder struct {
	registry *prometheus.Registry
	latency  *prometheus.HistogramVec
	failures *prometheus.CounterVec
	bytes    *prometheus.CounterVec
}

// NewRecorder returns a Recorder backed by its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "put_latency_milliseconds",
			Help:      "Latency of a single object write, including close.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
		}, []string{"driver", "workload"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "put_failures_total",
			Help:      "Object writes that returned an error.",
		}, []string{"driver", "workload"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "put_bytes_total",
			Help:      "Bytes written by successful object writes.",
		}, []string{"driver", "workload"}),
	}
	r.registry.MustRegister(r.latency, r.failures, r.bytes)
	return r
}

// Observe records one successful write.
func (r *Recorder) Observe(driver, workload string, ms int64, size int64) {
	r.latency.WithLabelValues(driver, workload).Observe(float64(ms))
	r.bytes.WithLabelValues(driver, workload).Add(float64(size))
}

// Failure records one failed write.
func (r *Recorder) Failure(driver, workload string) {
	r.failures.WithLabelValues(driver, workload).Inc()
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Push sends the collected metrics to a Prometheus Pushgateway.
func (r *Recorder) Push(url, uuid string) error {
	logging.Infof("📤 Pushing metrics to %s", url)
	err := push.New(url, namespace).
		Gatherer(r.registry).
		Grouping("uuid", uuid).
		Push()
	if err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}

// WriteText writes the metrics in the Prometheus text exposition format.
func (r *Recorder) WriteText(w io.Writer) error {
	mfs, err := r.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes the text exposition to fn.
func (r *Recorder) WriteFile(fn string) error {
	fp, err := os.Create(fn)
	if err != nil {
		return fmt.Errorf("failed to open metrics file: %w", err)
	}
	defer fp.Close()
	if err := r.WriteText(fp); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	logging.Infof("Wrote metrics to %s", fn)
	return nil
}
