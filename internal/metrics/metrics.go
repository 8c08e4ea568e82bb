// Package metrics holds the Prometheus collectors for weather lookups.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeSuccess labels lookups that ended with a snapshot. Failed lookups are
// labelled with their error type.
const OutcomeSuccess = "success"

// Recorder counts lookups per entry point and outcome. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	lookups  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rejected *prometheus.CounterVec
	sessions prometheus.Gauge
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_lookups_total",
			Help: "Weather lookups by entry point and outcome",
		}, []string{"entry", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weather_lookup_duration_seconds",
			Help:    "End-to-end lookup duration by entry point",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 4, 8, 16},
		}, []string{"entry"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_lookups_rejected_total",
			Help: "Entry point calls rejected because a lookup was already in flight",
		}, []string{"entry"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "weather_sessions_active",
			Help: "Lookup sessions currently held in memory",
		}),
	}
	reg.MustRegister(r.lookups, r.duration, r.rejected, r.sessions)
	return r
}

// ObserveLookup records a finished lookup.
func (r *Recorder) ObserveLookup(entry, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.lookups.WithLabelValues(entry, outcome).Inc()
	r.duration.WithLabelValues(entry).Observe(d.Seconds())
}

// ObserveRejected records an entry point call refused by the busy guard.
func (r *Recorder) ObserveRejected(entry string) {
	if r == nil {
		return
	}
	r.rejected.WithLabelValues(entry).Inc()
}

// SetSessions reports the number of live sessions.
func (r *Recorder) SetSessions(n int) {
	if r == nil {
		return
	}
	r.sessions.Set(float64(n))
}
