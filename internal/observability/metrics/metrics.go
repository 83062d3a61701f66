package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the booking conversation flow.
type ConversationMetrics struct {
	turnsTotal          *prometheus.CounterVec
	llmRequestsTotal    *prometheus.CounterVec
	llmLatency          *prometheus.HistogramVec
	fallbackExtractions *prometheus.CounterVec
	bookingsTotal       *prometheus.CounterVec
	slotConflictsTotal  prometheus.Counter
	sessionsExpired     prometheus.Counter
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total conversation turns processed",
		}, []string{"phase", "intent"}),
		llmRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total LLM completion attempts",
		}, []string{"provider", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "concierge",
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Latency of LLM completion calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		fallbackExtractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "nlu",
			Name:      "fallback_extractions_total",
			Help:      "Fields recovered by regex fallback extraction",
		}, []string{"field"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "booking",
			Name:      "bookings_total",
			Help:      "Booking commit attempts by outcome",
		}, []string{"status"}),
		slotConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "booking",
			Name:      "slot_conflicts_total",
			Help:      "Slots found taken between offer and commit",
		}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "conversation",
			Name:      "sessions_expired_total",
			Help:      "Sessions discarded after TTL expiry",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.turnsTotal,
		m.llmRequestsTotal,
		m.llmLatency,
		m.fallbackExtractions,
		m.bookingsTotal,
		m.slotConflictsTotal,
		m.sessionsExpired,
	)
	return m
}

func (m *ConversationMetrics) ObserveTurn(phase, intent string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(phase, intent).Inc()
}

func (m *ConversationMetrics) ObserveLLMRequest(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.llmRequestsTotal.WithLabelValues(provider, status).Inc()
	m.llmLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *ConversationMetrics) ObserveFallbackExtraction(field string) {
	if m == nil {
		return
	}
	m.fallbackExtractions.WithLabelValues(field).Inc()
}

func (m *ConversationMetrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *ConversationMetrics) ObserveSlotConflict() {
	if m == nil {
		return
	}
	m.slotConflictsTotal.Inc()
}

func (m *ConversationMetrics) ObserveSessionExpired() {
	if m == nil {
		return
	}
	m.sessionsExpired.Inc()
}
