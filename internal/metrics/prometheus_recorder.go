package metrics

import (
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	runsStarted    prom.Counter
	runsRestarted  *prom.CounterVec
	scriptExits    *prom.CounterVec
	divergences    *prom.CounterVec
	fetchDuration  *prom.HistogramVec
}

// NewPrometheusRecorder constructs and registers gdep's Prometheus metrics
// against reg (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.runsStarted = prom.NewCounter(prom.CounterOpts{
			Namespace: "gdep",
			Name:      "runs_started_total",
			Help:      "Total supervised runs started",
		})
		pr.runsRestarted = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "gdep",
			Name:      "runs_restarted_total",
			Help:      "Total supervised runs restarted, by reason",
		}, []string{"reason"})
		pr.scriptExits = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "gdep",
			Name:      "script_exits_total",
			Help:      "Child script exit codes observed",
		}, []string{"code"})
		pr.divergences = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "gdep",
			Name:      "divergence_states_total",
			Help:      "Divergence states observed by the updater",
		}, []string{"state"})
		pr.fetchDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "gdep",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of remote fetch operations",
			Buckets:   prom.DefBuckets,
		}, []string{"result"})
		reg.MustRegister(pr.runsStarted, pr.runsRestarted, pr.scriptExits, pr.divergences, pr.fetchDuration)
	})
	return pr
}

func (p *PrometheusRecorder) IncRunStarted() {
	if p == nil || p.runsStarted == nil {
		return
	}
	p.runsStarted.Inc()
}

func (p *PrometheusRecorder) IncRunRestarted(reason string) {
	if p == nil || p.runsRestarted == nil {
		return
	}
	p.runsRestarted.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) IncScriptExit(code int) {
	if p == nil || p.scriptExits == nil {
		return
	}
	p.scriptExits.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (p *PrometheusRecorder) IncDivergence(state string) {
	if p == nil || p.divergences == nil {
		return
	}
	p.divergences.WithLabelValues(state).Inc()
}

func (p *PrometheusRecorder) ObserveFetchDuration(d time.Duration, success bool) {
	if p == nil || p.fetchDuration == nil {
		return
	}
	result := "failed"
	if success {
		result = "success"
	}
	p.fetchDuration.WithLabelValues(result).Observe(d.Seconds())
}
