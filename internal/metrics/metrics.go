package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	registry           *prometheus.Registry
	invocationsTotal   *prometheus.CounterVec
	commitsTotal       prometheus.Counter
	simFailuresTotal   prometheus.Counter
	gasFallbacksTotal  prometheus.Counter
	leaseConflictTotal prometheus.Counter
	acceptedBatch      prometheus.Gauge
}

func NewRegistry(namespace string) *Registry {
	reg := prometheus.NewRegistry()
	register(reg, prometheus.NewGoCollector())
	register(reg, prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	invocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invocations_total",
		Help:      "Scheduler invocations by mode and outcome",
	}, []string{"mode", "outcome"})
	commits := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkpoint_commits_total",
		Help:      "Total checkpoint writes after a successful simulation",
	})
	simFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "simulation_failures_total",
		Help:      "Total planned calls rejected by simulation",
	})
	gasFallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gas_estimation_fallbacks_total",
		Help:      "Total invocations that used the static batch size",
	})
	leaseConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lease_conflicts_total",
		Help:      "Total invocations skipped because another holder owned the lease",
	})
	accepted := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "accepted_batch_size",
		Help:      "Batch size accepted by the last offset-mode invocation",
	})

	for _, c := range []prometheus.Collector{invocations, commits, simFailures, gasFallbacks, leaseConflicts, accepted} {
		register(reg, c)
	}

	return &Registry{
		registry:           reg,
		invocationsTotal:   invocations,
		commitsTotal:       commits,
		simFailuresTotal:   simFailures,
		gasFallbacksTotal:  gasFallbacks,
		leaseConflictTotal: leaseConflicts,
		acceptedBatch:      accepted,
	}
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Registry) IncInvocation(mode, outcome string) {
	if r == nil {
		return
	}
	r.invocationsTotal.WithLabelValues(mode, outcome).Inc()
}

func (r *Registry) IncCommits() {
	if r == nil {
		return
	}
	r.commitsTotal.Inc()
}

func (r *Registry) AddSimulationFailures(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.simFailuresTotal.Add(float64(n))
}

func (r *Registry) IncGasFallbacks() {
	if r == nil {
		return
	}
	r.gasFallbacksTotal.Inc()
}

func (r *Registry) IncLeaseConflicts() {
	if r == nil {
		return
	}
	r.leaseConflictTotal.Inc()
}

func (r *Registry) SetAcceptedBatch(n uint64) {
	if r == nil {
		return
	}
	r.acceptedBatch.Set(float64(n))
}

func register(reg *prometheus.Registry, collector prometheus.Collector) {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return
		}
		panic(err)
	}
}
