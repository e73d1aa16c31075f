// Package metrics exports service counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

const namespace = "simple_asset"

// Recorder implements simpleasset.Metrics with Prometheus collectors.
type Recorder struct {
	decoded     *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	storedBytes prometheus.Histogram
}

// New creates a Recorder and registers its collectors with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		decoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelopes_decoded_total",
			Help:      "Envelopes decoded, by recognised format.",
		}, []string{"format"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_total",
			Help:      "Assets rejected before storage, by reason.",
		}, []string{"reason"}),
		storedBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stored_bytes",
			Help:      "Payload size of stored assets.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}),
	}

	for _, c := range []prometheus.Collector{r.decoded, r.rejected, r.storedBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) EnvelopeDecoded(format string) {
	r.decoded.WithLabelValues(format).Inc()
}

func (r *Recorder) AssetStored(sizeBytes int64) {
	r.storedBytes.Observe(float64(sizeBytes))
}

func (r *Recorder) AssetRejected(reason string) {
	r.rejected.WithLabelValues(reason).Inc()
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router chi.Router, path string, gatherer prometheus.Gatherer) {
	var handler http.Handler
	if gatherer == nil {
		handler = promhttp.Handler()
	} else {
		handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	router.Handle(path, handler)
}

var _ simpleasset.Metrics = (*Recorder)(nil)
