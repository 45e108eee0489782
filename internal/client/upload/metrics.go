package upload

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is an Observer exporting attempt counters, phase durations and the
// number of attempts in flight.
type Metrics struct {
	attempts      *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	inFlight      prometheus.Gauge

	registry *prometheus.Registry

	mu         sync.Mutex
	phaseStart map[string]time.Time
	now        func() time.Time
}

// NewMetrics creates the collectors and registers them on a private registry
// returned by Registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dentctl"
	}

	m := &Metrics{
		registry:   prometheus.NewRegistry(),
		phaseStart: make(map[string]time.Time),
		now:        time.Now,
	}

	m.attempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_attempts_total",
			Help:      "Upload attempts by result",
		},
		[]string{"result"},
	)

	m.phaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_phase_duration_seconds",
			Help:      "Time spent in each upload phase",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"phase"},
	)

	m.inFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uploads_in_flight",
			Help:      "Upload attempts currently registered",
		},
	)

	m.registry.MustRegister(m.attempts, m.phaseDuration, m.inFlight)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) OnTransition(info AttemptInfo, from, to State) {
	now := m.now()

	m.mu.Lock()
	start, timed := m.phaseStart[info.AttemptID]
	if to.Terminal() {
		delete(m.phaseStart, info.AttemptID)
	} else {
		m.phaseStart[info.AttemptID] = now
	}
	m.mu.Unlock()

	if from == StateIdle && to == StateReserving {
		m.inFlight.Inc()
	}
	if timed && from != StateIdle {
		m.phaseDuration.WithLabelValues(from.String()).Observe(now.Sub(start).Seconds())
	}
}

func (m *Metrics) OnFinish(info AttemptInfo, outcome Outcome, err error) {
	if outcome.State == StateIdle {
		result := "rejected"
		if k := KindOf(err); k != 0 {
			result = k.String()
		}
		m.attempts.WithLabelValues(result).Inc()
		return
	}
	m.inFlight.Dec()
	m.attempts.WithLabelValues(outcome.State.String()).Inc()
}
