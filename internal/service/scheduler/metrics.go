package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the daemon.
type Metrics struct {
	cycles        *prometheus.CounterVec
	dispatches    *prometheus.CounterVec
	retries       prometheus.Counter
	skipped       prometheus.Counter
	cycleDuration prometheus.Histogram
}

// NewMetrics creates and registers scheduler metrics with registry. The
// gauges read status on every scrape.
func NewMetrics(registry *prometheus.Registry, status func() Status) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remind_scheduler_cycles_total",
			Help: "Total number of wake cycles by result",
		}, []string{"result"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remind_scheduler_dispatches_total",
			Help: "Total number of reminder dispatches by outcome",
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remind_scheduler_dispatch_retries_total",
			Help: "Total number of dispatch attempts retried after a failure",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remind_scheduler_commits_skipped_total",
			Help: "Total number of dispatch results dropped because the reminder changed meanwhile",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remind_scheduler_cycle_duration_seconds",
			Help:    "Duration of wake cycles",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}),
	}

	registry.MustRegister(
		m.cycles,
		m.dispatches,
		m.retries,
		m.skipped,
		m.cycleDuration,
	)

	if status != nil {
		registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "remind_scheduler_reminders_pending",
				Help: "Reminders waiting for their next fire instant",
			}, func() float64 { return float64(status().Pending) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "remind_scheduler_reminders_due",
				Help: "Reminders due and not yet delivered",
			}, func() float64 { return float64(status().Due) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "remind_scheduler_unpersisted",
				Help: "Fired reminders whose new schedule is not yet saved",
			}, func() float64 { return float64(status().Unpersisted) }),
		)
	}

	return m
}

// CycleFinished records a completed or aborted cycle.
func (m *Metrics) CycleFinished(res *CycleResult, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cycles.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(elapsed.Seconds())
	if res == nil {
		return
	}
	m.dispatches.WithLabelValues("fired").Add(float64(res.Fired))
	m.dispatches.WithLabelValues("failed").Add(float64(res.Failed))
	m.dispatches.WithLabelValues("muted").Add(float64(res.Muted))
	m.dispatches.WithLabelValues("interrupted").Add(float64(res.Interrupted))
	m.skipped.Add(float64(res.Skipped))
}

// DispatchRetried counts one retried attempt.
func (m *Metrics) DispatchRetried() {
	if m == nil {
		return
	}
	m.retries.Inc()
}
