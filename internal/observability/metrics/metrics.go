package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for calendar operations.
type SchedulingMetrics struct {
	operationsTotal     *prometheus.CounterVec
	availabilityLatency prometheus.Histogram
	waitlistDepth       prometheus.Gauge
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "operations_total",
			Help:      "Total calendar operations by outcome",
		}, []string{"operation", "outcome"}),
		availabilityLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "availability_latency_seconds",
			Help:      "Latency of availability searches",
			Buckets:   prometheus.DefBuckets,
		}),
		waitlistDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "waitlist_depth",
			Help:      "Current number of waitlist entries",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.availabilityLatency, m.waitlistDepth)
	return m
}

func (m *SchedulingMetrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveAvailabilityLatency(seconds float64) {
	if m == nil {
		return
	}
	m.availabilityLatency.Observe(seconds)
}

func (m *SchedulingMetrics) SetWaitlistDepth(depth int) {
	if m == nil {
		return
	}
	m.waitlistDepth.Set(float64(depth))
}

// ConversationMetrics exposes counters/histograms for the chat pipeline.
type ConversationMetrics struct {
	messagesTotal *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
	llmFailures   *prometheus.CounterVec
	ragRetrievals *prometheus.CounterVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "conversation",
			Name:      "messages_total",
			Help:      "Total chat messages by detected intent",
		}, []string{"intent"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "conversation",
			Name:      "llm_latency_seconds",
			Help:      "Latency of LLM completions by provider",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		llmFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "conversation",
			Name:      "llm_failures_total",
			Help:      "Total LLM completion failures by provider",
		}, []string{"provider"}),
		ragRetrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "conversation",
			Name:      "rag_retrievals_total",
			Help:      "Total knowledge retrievals by source",
		}, []string{"source"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.llmLatency, m.llmFailures, m.ragRetrievals)
	return m
}

func (m *ConversationMetrics) ObserveMessage(intent string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(intent).Inc()
}

func (m *ConversationMetrics) ObserveLLMLatency(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *ConversationMetrics) ObserveLLMFailure(provider string) {
	if m == nil {
		return
	}
	m.llmFailures.WithLabelValues(provider).Inc()
}

func (m *ConversationMetrics) ObserveRetrieval(source string) {
	if m == nil {
		return
	}
	m.ragRetrievals.WithLabelValues(source).Inc()
}
