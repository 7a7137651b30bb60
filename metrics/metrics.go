// Package metrics wires the optional "profiling-enabled" option to
// Prometheus counters/histograms. When disabled, every method is a
// no-op so the dependency is always linked but never forced on a
// caller that doesn't scrape it.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder records pass applications, backend-assignment attempts, and
// subgraph reassignments. A nil *Recorder is valid and does nothing,
// matching the package's "disabled by default" posture.
type Recorder struct {
	reg *prometheus.Registry

	passApplications   *prometheus.CounterVec
	assignAttempts     *prometheus.CounterVec
	assignFallbacks    *prometheus.CounterVec
	subgraphReassigns  prometheus.Counter
	compileDuration    prometheus.Histogram
}

// NewRecorder returns a Recorder registered against a fresh registry, or
// nil if enabled is false.
func NewRecorder(enabled bool) *Recorder {
	if !enabled {
		return nil
	}
	reg := prometheus.NewRegistry()
	r := &Recorder{
		reg: reg,
		passApplications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphc", Name: "pass_applications_total",
			Help: "Number of times a pass's rewrite fired.",
		}, []string{"pass"}),
		assignAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphc", Name: "backend_assign_attempts_total",
			Help: "Number of backend-assignment attempts per backend.",
		}, []string{"backend"}),
		assignFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graphc", Name: "backend_assign_fallbacks_total",
			Help: "Number of times assignment fell through to a fallback backend.",
		}, []string{"from", "to"}),
		subgraphReassigns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "graphc", Name: "subgraph_reassignments_total",
			Help: "Number of subgraphs reassigned after a failed optimization attempt.",
		}),
		compileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "graphc", Name: "compile_duration_seconds",
			Help:    "Wall-clock time spent in optimize.Run.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(r.passApplications, r.assignAttempts, r.assignFallbacks, r.subgraphReassigns, r.compileDuration)
	return r
}

// Registry exposes the underlying *prometheus.Registry for callers that
// want to serve /metrics themselves. Returns nil when disabled.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) PassApplied(name string) {
	if r == nil {
		return
	}
	r.passApplications.WithLabelValues(name).Inc()
}

func (r *Recorder) AssignAttempt(backend string) {
	if r == nil {
		return
	}
	r.assignAttempts.WithLabelValues(backend).Inc()
}

func (r *Recorder) AssignFallback(from, to string) {
	if r == nil {
		return
	}
	r.assignFallbacks.WithLabelValues(from, to).Inc()
}

func (r *Recorder) SubgraphReassigned() {
	if r == nil {
		return
	}
	r.subgraphReassigns.Inc()
}

// ObserveCompile records how long a full optimize.Run took, measured by
// the caller via time.Since(start).
func (r *Recorder) ObserveCompile(start time.Time) {
	if r == nil {
		return
	}
	r.compileDuration.Observe(time.Since(start).Seconds())
}
