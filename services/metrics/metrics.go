package metricsvc

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/masomo-emis/core/enrollment"
)

const namespace = "masomo"

// Metrics records the enrollment wizards' lifecycle on its own prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	wizardsStarted     prometheus.Counter
	wizardsSwept       prometheus.Counter
	stepTransitions    *prometheus.CounterVec
	submissions        *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
}

var _ enrollment.Recorder = (*Metrics)(nil) // interface compliance check

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		wizardsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrollment_wizard",
			Name:      "started_total",
			Help:      "Total number of enrollment wizards started",
		}),
		wizardsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrollment_wizard",
			Name:      "swept_total",
			Help:      "Total number of idle enrollment wizards discarded",
		}),
		stepTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "enrollment_wizard",
				Name:      "step_transitions_total",
				Help:      "Total number of moves between wizard steps",
			},
			[]string{"from", "to"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "enrollment_submission",
				Name:      "total",
				Help:      "Total number of enrollment submissions by outcome (submitted|failed) & error kind",
			},
			[]string{"status", "kind"},
		),
		submissionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "enrollment_submission",
				Name:      "duration_seconds",
				Help:      "Enrollment submission duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.wizardsStarted,
		m.wizardsSwept,
		m.stepTransitions,
		m.submissions,
		m.submissionDuration,
	)
	return m
}

func (m *Metrics) WizardStarted() {
	m.wizardsStarted.Inc()
}

func (m *Metrics) StepChanged(from, to string) {
	m.stepTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) SubmissionFinished(status enrollment.SubmissionStatus, kind enrollment.ErrorKind, took time.Duration) {
	m.submissions.WithLabelValues(string(status), string(kind)).Inc()
	m.submissionDuration.WithLabelValues(string(status)).Observe(took.Seconds())
}

func (m *Metrics) WizardsSwept(n int) {
	m.wizardsSwept.Add(float64(n))
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
