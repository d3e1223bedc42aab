package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "operation"},
	)

	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of pipeline runs by branch and outcome",
		},
		[]string{"branch", "outcome"},
	)
	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_duration_seconds",
			Help:    "End-to-end pipeline duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"branch"},
	)

	A2ACallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2a_calls_total",
			Help: "Total number of A2A worker calls by agent and outcome",
		},
		[]string{"agent", "outcome"},
	)
	A2ACallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "a2a_call_duration_seconds",
			Help:    "A2A worker call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"agent"},
	)

	RouterDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_decisions_total",
			Help: "Total number of router decisions by strategy and fallback flag",
		},
		[]string{"strategy", "fallback"},
	)

	SessionOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_ops_total",
			Help: "Total number of session store operations by op and outcome",
		},
		[]string{"op", "outcome"},
	)

	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_requests_total",
			Help: "Total number of retrieval requests by outcome",
		},
		[]string{"outcome"},
	)

	WorkpoolDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workpool_dropped_tasks_total",
			Help: "Fire-and-forget tasks dropped because the queue was full",
		},
	)
	WorkpoolBusy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "workpool_busy_workers",
			Help: "Work pool slots currently occupied",
		},
	)

	TurnPersistTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turn_persist_total",
			Help: "Turn persistence attempts by sink (session, archive, audit) and outcome",
		},
		[]string{"sink", "outcome"},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(PipelineRunsTotal)
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(A2ACallsTotal)
	prometheus.MustRegister(A2ACallDuration)
	prometheus.MustRegister(RouterDecisionsTotal)
	prometheus.MustRegister(SessionOpsTotal)
	prometheus.MustRegister(RetrievalRequestsTotal)
	prometheus.MustRegister(WorkpoolDroppedTotal)
	prometheus.MustRegister(WorkpoolBusy)
	prometheus.MustRegister(TurnPersistTotal)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			// fallback when route pattern is unavailable
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObservePipeline records one completed pipeline run.
func ObservePipeline(branch string, dur time.Duration, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	PipelineRunsTotal.WithLabelValues(branch, outcome).Inc()
	PipelineDuration.WithLabelValues(branch).Observe(dur.Seconds())
}

// ObserveA2ACall records one worker invocation.
func ObserveA2ACall(agent, outcome string, dur time.Duration) {
	A2ACallsTotal.WithLabelValues(agent, outcome).Inc()
	A2ACallDuration.WithLabelValues(agent).Observe(dur.Seconds())
}

// ObserveRouterDecision records a router outcome.
func ObserveRouterDecision(strategy string, fallback bool) {
	fb := "false"
	if fallback {
		fb = "true"
	}
	RouterDecisionsTotal.WithLabelValues(strategy, fb).Inc()
}

// ObserveSessionOp records a session store operation.
func ObserveSessionOp(op string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	SessionOpsTotal.WithLabelValues(op, outcome).Inc()
}

// ObserveRetrieval records a retrieval attempt.
func ObserveRetrieval(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	RetrievalRequestsTotal.WithLabelValues(outcome).Inc()
}

// ObservePersist records one sink write of the fire-and-forget persistence.
func ObservePersist(sink string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	TurnPersistTotal.WithLabelValues(sink, outcome).Inc()
}
