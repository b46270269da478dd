package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики движка. Counters и histograms prometheus атомарны на
// уровне бакета — глобальной блокировки между пайплайнами нет.
var (
	// ItemsTotal — обработанные элементы по пайплайну и результату
	// (succeeded / failed).
	ItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conveyor_items_total",
		Help: "Total data items processed, by pipeline and result",
	}, []string{"pipeline", "result"})

	// StepDuration — длительность успешных вызовов шагов.
	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conveyor_step_duration_seconds",
		Help:    "Duration of completed step executions",
		Buckets: prometheus.DefBuckets,
	}, []string{"pipeline", "step"})

	// StepFailures — терминальные падения шагов (после retry).
	StepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conveyor_step_failures_total",
		Help: "Terminal step failures after retry exhaustion",
	}, []string{"pipeline", "step"})

	// SinkDeliveries — доставки в sinks по результату (ok / error).
	SinkDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conveyor_sink_deliveries_total",
		Help: "Sink delivery attempts, by pipeline, sink and result",
	}, []string{"pipeline", "sink", "result"})

	// QueueDepth — текущая глубина очереди приёма пайплайна.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "conveyor_queue_depth",
		Help: "Current ingestion queue depth per pipeline",
	}, []string{"pipeline"})

	// InFlight — элементы в обработке (между dequeue и dispatch).
	InFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "conveyor_items_in_flight",
		Help: "Items currently traversing the DAG per pipeline",
	}, []string{"pipeline"})
)
