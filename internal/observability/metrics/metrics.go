package metrics

import "github.com/prometheus/client_golang/prometheus"

// HoneypotMetrics exposes counters/histograms for the conversation engine.
type HoneypotMetrics struct {
	messagesTotal    *prometheus.CounterVec
	flaggedTotal     prometheus.Counter
	confidence       prometheus.Histogram
	intelTotal       *prometheus.CounterVec
	callbacksTotal   *prometheus.CounterVec
	callbackLatency  prometheus.Histogram
	terminalSessions prometheus.Counter
}

func NewHoneypotMetrics(reg prometheus.Registerer) *HoneypotMetrics {
	m := &HoneypotMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "honeypot",
			Name:      "messages_total",
			Help:      "Inbound messages processed, by session verdict",
		}, []string{"verdict"}),
		flaggedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "honeypot",
			Name:      "scam_flagged_total",
			Help:      "Sessions flagged as scam attempts",
		}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "honeypot",
			Name:      "classifier_confidence",
			Help:      "Confidence assigned by the classifier",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		intelTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "honeypot",
			Name:      "intel_extracted_total",
			Help:      "New intelligence entries recorded, by category",
		}, []string{"category"}),
		callbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "honeypot",
			Name:      "callbacks_total",
			Help:      "Terminal report dispatch attempts, by outcome",
		}, []string{"status"}),
		callbackLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "honeypot",
			Name:      "callback_latency_seconds",
			Help:      "Latency of terminal report delivery",
			Buckets:   prometheus.DefBuckets,
		}),
		terminalSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "honeypot",
			Name:      "terminal_evaluations_total",
			Help:      "Messages after which a session was terminal",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.messagesTotal,
		m.flaggedTotal,
		m.confidence,
		m.intelTotal,
		m.callbacksTotal,
		m.callbackLatency,
		m.terminalSessions,
	)
	return m
}

func (m *HoneypotMetrics) ObserveMessage(scamDetected bool) {
	if m == nil {
		return
	}
	verdict := "monitoring"
	if scamDetected {
		verdict = "flagged"
	}
	m.messagesTotal.WithLabelValues(verdict).Inc()
}

func (m *HoneypotMetrics) ObserveClassification(confidence float64, flagged bool) {
	if m == nil {
		return
	}
	m.confidence.Observe(confidence)
	if flagged {
		m.flaggedTotal.Inc()
	}
}

func (m *HoneypotMetrics) ObserveIntel(category string, added int) {
	if m == nil || added <= 0 {
		return
	}
	m.intelTotal.WithLabelValues(category).Add(float64(added))
}

func (m *HoneypotMetrics) ObserveTerminal() {
	if m == nil {
		return
	}
	m.terminalSessions.Inc()
}

// ObserveCallback records a dispatch outcome. Latency is only recorded for
// attempts that reached the network.
func (m *HoneypotMetrics) ObserveCallback(status string, seconds float64) {
	if m == nil {
		return
	}
	m.callbacksTotal.WithLabelValues(status).Inc()
	if status == "sent" || status == "failed" {
		m.callbackLatency.Observe(seconds)
	}
}
