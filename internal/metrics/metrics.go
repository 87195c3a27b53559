// Package metrics exposes the Prometheus counters and histograms the
// control channel and fast-reload pipeline record: accepted/rejected
// sessions, command latencies, fast-reload phase timings, and
// distribution fanout results, built with promauto CounterVec/
// HistogramVec metrics.
package metrics

import (
	"sync"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "resolverd"
	subsystem = "control"
)

// Recorder holds every metric the control subsystem emits.
type Recorder struct {
	sessionsAccepted prometheus.Counter
	sessionsRejected prometheus.Counter
	sessionsActive   prometheus.Gauge

	commandTotal    *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec

	reloadTotal    *prometheus.CounterVec
	reloadDuration *prometheus.HistogramVec
	reloadPhase    *prometheus.HistogramVec

	fanoutTotal *prometheus.CounterVec

	// baselineMu guards baseline, the raw totals recorded as of the
	// last flush_stats: Snapshot reports values relative to this
	// baseline, since Prometheus counters are never allowed to count
	// backwards.
	baselineMu sync.Mutex
	baseline   Snapshot
}

// NewRecorder registers every metric against reg using promauto.
// Pass prometheus.NewRegistry() in tests to avoid colliding with other
// Recorders registered in the same process.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	fac := promauto.With(reg)
	return &Recorder{
		sessionsAccepted: fac.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "sessions_accepted_total",
			Help: "Total control sessions accepted.",
		}),
		sessionsRejected: fac.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "sessions_rejected_total",
			Help: "Total control sessions rejected for exceeding max_active.",
		}),
		sessionsActive: fac.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "sessions_active",
			Help: "Control sessions currently on the busy list.",
		}),
		commandTotal: fac.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "commands_total",
			Help: "Total control commands handled, by verb and outcome.",
		}, []string{"verb", "outcome"}),
		commandDuration: fac.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "command_duration_seconds",
			Help:    "Command handler latency by verb.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"verb"}),
		reloadTotal: fac.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "fast_reload_total",
			Help: "Total fast_reload runs, by outcome.",
		}, []string{"outcome"}),
		reloadDuration: fac.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "fast_reload_duration_seconds",
			Help:    "Total fast_reload run duration.",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"mode"}),
		reloadPhase: fac.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "fast_reload_phase_seconds",
			Help:    "Fast-reload phase duration, by phase name.",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 5},
		}, []string{"phase"}),
		fanoutTotal: fac.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "distribution_fanout_total",
			Help: "Distributed command fanout attempts, by outcome.",
		}, []string{"verb", "outcome"}),
	}
}

func (r *Recorder) SessionAccepted()  { r.sessionsAccepted.Inc() }
func (r *Recorder) SessionRejected()  { r.sessionsRejected.Inc() }
func (r *Recorder) SetSessionsActive(n int) { r.sessionsActive.Set(float64(n)) }

func (r *Recorder) RecordCommand(verb, outcome string, seconds float64) {
	r.commandTotal.WithLabelValues(verb, outcome).Inc()
	r.commandDuration.WithLabelValues(verb).Observe(seconds)
}

func (r *Recorder) RecordReload(mode, outcome string, seconds float64) {
	r.reloadTotal.WithLabelValues(outcome).Inc()
	r.reloadDuration.WithLabelValues(mode).Observe(seconds)
}

func (r *Recorder) RecordReloadPhase(phase string, seconds float64) {
	r.reloadPhase.WithLabelValues(phase).Observe(seconds)
}

func (r *Recorder) RecordFanout(verb, outcome string) {
	r.fanoutTotal.WithLabelValues(verb, outcome).Inc()
}

// Snapshot is the numeric summary the stats/stats_noreset control
// commands report, read straight off the live collectors.
type Snapshot struct {
	SessionsAccepted float64
	SessionsRejected float64
	SessionsActive   float64
	CommandsTotal    float64
}

// Snapshot reads the current values of the scalar counters and gauges
// that don't need a label breakdown, the way remote.c's print_stats
// walks its daemon-wide counters. Values are reported relative to the
// last ResetBaseline call (flush_stats), the way stats/stats_noreset
// report cumulative totals since the last reset.
func (r *Recorder) Snapshot() Snapshot {
	raw := r.rawSnapshot()

	r.baselineMu.Lock()
	base := r.baseline
	r.baselineMu.Unlock()

	return Snapshot{
		SessionsAccepted: raw.SessionsAccepted - base.SessionsAccepted,
		SessionsRejected: raw.SessionsRejected - base.SessionsRejected,
		SessionsActive:   raw.SessionsActive,
		CommandsTotal:    raw.CommandsTotal - base.CommandsTotal,
	}
}

func (r *Recorder) rawSnapshot() Snapshot {
	return Snapshot{
		SessionsAccepted: counterValue(r.sessionsAccepted),
		SessionsRejected: counterValue(r.sessionsRejected),
		SessionsActive:   gaugeValue(r.sessionsActive),
		CommandsTotal:    vecTotal(r.commandTotal),
	}
}

// ResetBaseline records the current raw totals as the new baseline:
// the effect backing the flush_stats control command, without ever
// decrementing the underlying Prometheus counters themselves (which
// would corrupt rate() queries against the /metrics endpoint).
func (r *Recorder) ResetBaseline() {
	raw := r.rawSnapshot()
	r.baselineMu.Lock()
	r.baseline = raw
	r.baselineMu.Unlock()
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(g prometheus.Gauge) float64 {
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

func vecTotal(v *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric)
	go func() {
		v.Collect(ch)
		close(ch)
	}()
	var total float64
	for metric := range ch {
		var m dto.Metric
		if metric.Write(&m) == nil {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
