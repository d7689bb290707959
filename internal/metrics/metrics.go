// Package metrics holds the Prometheus collectors for the lead pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "leadpipeline"

// Metrics groups the pipeline collectors. A nil *Metrics is valid and
// records nothing, so components can take one optionally.
type Metrics struct {
	protectionVerdicts *prometheus.CounterVec
	qualification      *prometheus.CounterVec
	crmObjects         *prometheus.CounterVec
	replyDuration      *prometheus.HistogramVec
	fallbackReplies    prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is convenient in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		protectionVerdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "protection_verdicts_total",
				Help:      "Protection gate verdicts by outcome",
			},
			[]string{"outcome"}, // allowed, suspicious, blocked
		),
		qualification: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "qualification_total",
				Help:      "Qualification decisions",
			},
			[]string{"qualified"},
		),
		crmObjects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "crm_objects_total",
				Help:      "CRM object creation attempts by object and status",
			},
			[]string{"object", "status"}, // status: success, error
		),
		replyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reply_duration_seconds",
				Help:      "Latency of reply generation",
				Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 8, 10, 15, 20, 30},
			},
			[]string{"status"}, // ok, error
		),
		fallbackReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_replies_total",
			Help:      "Replies served from the fixed fallback text",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.protectionVerdicts, m.qualification, m.crmObjects, m.replyDuration, m.fallbackReplies)
	}
	return m
}

// Verdict counts a protection verdict.
func (m *Metrics) Verdict(outcome string) {
	if m == nil {
		return
	}
	m.protectionVerdicts.WithLabelValues(outcome).Inc()
}

// Qualification counts a qualification decision.
func (m *Metrics) Qualification(qualified bool) {
	if m == nil {
		return
	}
	label := "false"
	if qualified {
		label = "true"
	}
	m.qualification.WithLabelValues(label).Inc()
}

// CrmObject counts one CRM create call.
func (m *Metrics) CrmObject(object string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.crmObjects.WithLabelValues(object, status).Inc()
}

// Reply records how long reply generation took.
func (m *Metrics) Reply(d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.replyDuration.WithLabelValues(status).Observe(d.Seconds())
}

// FallbackReply counts a fallback reply.
func (m *Metrics) FallbackReply() {
	if m == nil {
		return
	}
	m.fallbackReplies.Inc()
}
