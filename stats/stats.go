// Package stats exposes acquisition counters as Prometheus metrics.
package stats

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BytesRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fmcw",
		Subsystem: "acquire",
		Name:      "bytes_read_total",
		Help:      "Payload bytes received from the radar FIFO.",
	})

	Callbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fmcw",
		Subsystem: "acquire",
		Name:      "callbacks_total",
		Help:      "Stream read callbacks delivered by the USB layer.",
	})

	SweepsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fmcw",
		Subsystem: "acquire",
		Name:      "sweeps_published_total",
		Help:      "Complete sweeps committed to the consumer slot.",
	})

	SweepsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fmcw",
		Subsystem: "acquire",
		Name:      "sweeps_dropped_total",
		Help:      "Complete sweeps dropped because the consumer had not drained the slot.",
	})

	FramesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fmcw",
		Subsystem: "acquire",
		Name:      "frames_discarded_total",
		Help:      "Framed sweeps thrown away after an invalid stop sequence.",
	})

	WritesFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fmcw",
		Subsystem: "control",
		Name:      "writes_flushed_total",
		Help:      "Outbound configuration flushes completed.",
	})
)

// Serve exposes /metrics on addr in the background. Errors are logged,
// not fatal: metrics are a convenience, acquisition is the job.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics listener failed", "addr", addr, "err", err)
		}
	}()
}
