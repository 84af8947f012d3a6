package convo

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the conversation subsystem.
type Metrics struct {
	TurnsTotal    *prometheus.CounterVec
	SessionsTotal prometheus.Counter
	HangupsTotal  *prometheus.CounterVec
	LLMCallsTotal *prometheus.CounterVec
	LLMTokensIn   prometheus.Counter
	LLMTokensOut  prometheus.Counter
	LLMDuration   prometheus.Histogram
}

// NewMetrics registers and returns conversation metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "doula_turns_total",
			Help: "Classified caller turns by policy decision.",
		}, []string{"decision"}),
		SessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "doula_sessions_total",
			Help: "Total call sessions started.",
		}),
		HangupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "doula_hangups_total",
			Help: "Calls ended by reason.",
		}, []string{"reason"}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "doula_llm_calls_total",
			Help: "Total LLM provider calls by outcome.",
		}, []string{"outcome"}),
		LLMTokensIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "doula_llm_tokens_input_total",
			Help: "Total LLM input tokens consumed.",
		}),
		LLMTokensOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "doula_llm_tokens_output_total",
			Help: "Total LLM output tokens consumed.",
		}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "doula_llm_call_duration_seconds",
			Help:    "Duration of individual LLM calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s .. ~32s
		}),
	}

	reg.MustRegister(
		m.TurnsTotal,
		m.SessionsTotal,
		m.HangupsTotal,
		m.LLMCallsTotal,
		m.LLMTokensIn,
		m.LLMTokensOut,
		m.LLMDuration,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnTurn: func(d Decision) {
			m.TurnsTotal.WithLabelValues(string(d)).Inc()
		},
		OnSession: func() {
			m.SessionsTotal.Inc()
		},
		OnHangup: func(reason string) {
			m.HangupsTotal.WithLabelValues(reason).Inc()
		},
		OnLLMCall: func(inputTokens, outputTokens int, duration float64, failed bool) {
			outcome := "ok"
			if failed {
				outcome = "error"
			}
			m.LLMCallsTotal.WithLabelValues(outcome).Inc()
			m.LLMTokensIn.Add(float64(inputTokens))
			m.LLMTokensOut.Add(float64(outputTokens))
			m.LLMDuration.Observe(duration)
		},
	}
}
