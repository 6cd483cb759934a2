package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Доменные метрики Easel. Регистрируются в default registry,
// отдаются на /metrics через promhttp.Handler().
var (
	// RunsTotal — завершённые прогоны по финальному статусу
	// (SUCCESS, PARTIAL, FAILED).
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "easel_runs_total",
		Help: "Completed workflow runs by final status",
	}, []string{"status"})

	// NodeExecutions — выполнения узлов по типу и исходу.
	NodeExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "easel_node_executions_total",
		Help: "Node executions by kind and outcome",
	}, []string{"kind", "status"})

	// NodeDuration — длительность выполнения узла по типу.
	NodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "easel_node_duration_seconds",
		Help:    "Node execution duration by kind",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"kind"})

	// JobsSubmitted — джобы, отправленные в асинхронный бэкенд.
	JobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "easel_jobs_submitted_total",
		Help: "Jobs submitted to the async backend by kind",
	}, []string{"kind"})

	// JobFallbacks — переключения на синхронный путь вычисления.
	JobFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "easel_job_fallbacks_total",
		Help: "Falls back to in-process compute by kind",
	}, []string{"kind"})

	// JobsProcessed — джобы, обработанные воркером, по типу и исходу
	// (COMPLETED, FAILED).
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "easel_jobs_processed_total",
		Help: "Jobs processed by the worker by kind and outcome",
	}, []string{"kind", "status"})
)
