package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Research lifecycle metrics
	ResearchExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_research_executions_total",
			Help: "Total number of research executions",
		},
		[]string{"workflow", "status"}, // status: completed|failed
	)

	ResearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minerva_research_duration_seconds",
			Help:    "Research execution duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"workflow"},
	)

	ResearchTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_research_status_transitions_total",
			Help: "Total number of research status transitions",
		},
		[]string{"from", "to"},
	)

	// Tool metrics
	ToolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_tool_executions_total",
			Help: "Total number of tool executions",
		},
		[]string{"tool", "status"}, // status: success|error
	)

	ToolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minerva_tool_latency_seconds",
			Help:    "Tool execution latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"tool"},
	)

	// LLM metrics
	LLMCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_llm_calls_total",
			Help: "Total number of LLM generation calls",
		},
		[]string{"provider", "model", "status"}, // status: success|error|rate_limited
	)

	LLMLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minerva_llm_latency_seconds",
			Help:    "LLM call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "model"},
	)

	LLMTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_llm_tokens_total",
			Help: "Total tokens consumed by LLM calls",
		},
		[]string{"provider", "model", "type"}, // type: input|output
	)

	AgenticIterations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minerva_agentic_iterations",
			Help:    "Iterations used per agentic loop run",
			Buckets: []float64{1, 2, 3, 4, 5, 7, 10},
		},
		[]string{"provider"},
	)

	// Cache metrics
	CacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"backend", "operation", "status"}, // operation: get|set|delete|clear; status: hit|miss|ok|error
	)

	// Data provider metrics
	ProviderAPICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_provider_api_calls_total",
			Help: "Total number of data provider API calls",
		},
		[]string{"provider", "endpoint", "status"}, // status: success|error|rate_limited
	)

	ProviderAPILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minerva_provider_api_latency_seconds",
			Help:    "Data provider API latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "endpoint"},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|redis
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minerva_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "minerva_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	// Research metrics
	prometheus.MustRegister(ResearchExecutions)
	prometheus.MustRegister(ResearchDuration)
	prometheus.MustRegister(ResearchTransitions)

	// Tool metrics
	prometheus.MustRegister(ToolExecutions)
	prometheus.MustRegister(ToolLatency)

	// LLM metrics
	prometheus.MustRegister(LLMCalls)
	prometheus.MustRegister(LLMLatency)
	prometheus.MustRegister(LLMTokens)
	prometheus.MustRegister(AgenticIterations)

	// Cache metrics
	prometheus.MustRegister(CacheOperations)

	// Provider metrics
	prometheus.MustRegister(ProviderAPICalls)
	prometheus.MustRegister(ProviderAPILatency)

	// Database metrics
	prometheus.MustRegister(DBQueries)

	// Worker metrics
	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordToolExecution records a tool invocation
func RecordToolExecution(tool string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}

	ToolExecutions.WithLabelValues(tool, status).Inc()
	ToolLatency.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordResearchExecution records a finished research run
func RecordResearchExecution(workflow string, duration time.Duration, success bool) {
	status := "completed"
	if !success {
		status = "failed"
	}

	ResearchExecutions.WithLabelValues(workflow, status).Inc()
	ResearchDuration.WithLabelValues(workflow).Observe(duration.Seconds())
}

// RecordStatusTransition records a research lifecycle transition
func RecordStatusTransition(from, to string) {
	ResearchTransitions.WithLabelValues(from, to).Inc()
}

// RecordLLMCall records an LLM generation call
func RecordLLMCall(provider, model string, latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	LLMCalls.WithLabelValues(provider, model, status).Inc()
	LLMLatency.WithLabelValues(provider, model).Observe(latency.Seconds())
}

// RecordCacheOperation records a cache backend operation
func RecordCacheOperation(backend, operation, status string) {
	CacheOperations.WithLabelValues(backend, operation, status).Inc()
}

// RecordProviderAPICall records a data provider API call
func RecordProviderAPICall(provider, endpoint string, latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	ProviderAPICalls.WithLabelValues(provider, endpoint, status).Inc()
	ProviderAPILatency.WithLabelValues(provider, endpoint).Observe(latency.Seconds())
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}
