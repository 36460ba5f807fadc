package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec
	toolCallsTotal     *prometheus.CounterVec
	toolLatencySeconds *prometheus.HistogramVec
	agentTurnsTotal    *prometheus.CounterVec
	agentStepsPerTurn  *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors shared by the API, the
// tool registry and the agent runner.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campus_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		toolCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_tool_calls_total",
			Help: "Total number of tool invocations by outcome.",
		}, []string{"tool", "code"})

		toolLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campus_tool_latency_seconds",
			Help:    "Latency distribution for tool invocations.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"tool"})

		agentTurnsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_agent_turns_total",
			Help: "Total number of agent turns by profile and outcome.",
		}, []string{"profile", "outcome"})

		agentStepsPerTurn = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campus_agent_steps_per_turn",
			Help:    "Number of model round trips needed to answer a turn.",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12},
		}, []string{"profile"})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			toolCallsTotal, toolLatencySeconds,
			agentTurnsTotal, agentStepsPerTurn,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ToolCalls exposes the counter for tool invocations. The code label is "ok"
// for successful calls and the error code otherwise.
func ToolCalls() *prometheus.CounterVec {
	RegisterMetrics()
	return toolCallsTotal
}

// ToolLatency exposes the latency histogram for tool invocations.
func ToolLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return toolLatencySeconds
}

// AgentTurns exposes the counter for agent turns.
func AgentTurns() *prometheus.CounterVec {
	RegisterMetrics()
	return agentTurnsTotal
}

// AgentSteps exposes the histogram of model round trips per turn.
func AgentSteps() *prometheus.HistogramVec {
	RegisterMetrics()
	return agentStepsPerTurn
}
