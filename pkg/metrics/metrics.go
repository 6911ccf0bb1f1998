package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// MQ 消息处理结果
	MQMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_messages_total",
			Help: "Consumed MQ messages by outcome",
		},
		[]string{"routing_key", "outcome"}, // outcome: ack, requeue, dlq
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// 慢查询计数
	DBSlowQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_queries_total",
			Help: "Queries slower than the configured threshold",
		},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 进度重算次数
	RecomputeCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_recompute_total",
			Help: "Progress recompute passes",
		},
		[]string{"trigger", "result"}, // trigger: read, mutation, sweep, request; result: changed, unchanged, frozen
	)

	// 状态迁移次数
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_status_transitions_total",
			Help: "Project lifecycle transitions",
		},
		[]string{"from", "to"},
	)

	// 手动覆盖次数
	ProgressPins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_progress_pins_total",
			Help: "Manual progress pins and resets",
		},
		[]string{"level", "action"}, // level: project, floor, task; action: pin, reset
	)

	// 每日巡检耗时（秒）
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "progress_sweep_duration_seconds",
			Help:    "Duration of one full recompute sweep",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// 每日巡检处理的项目数
	SweepProjects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_sweep_projects_total",
			Help: "Projects visited by the sweep",
		},
		[]string{"result"}, // result: saved, unchanged, failed
	)

	// Outbox 发布结果
	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_published_total",
			Help: "Outbox events handed to the broker",
		},
		[]string{"routing_key", "status"}, // status: sent, failed, rejected
	)
)

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// IncrementMQMessage 记录消息处理结果
func IncrementMQMessage(routingKey, outcome string) {
	MQMessagesTotal.WithLabelValues(routingKey, outcome).Inc()
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery 记录慢查询
func IncrementSlowQuery() {
	DBSlowQueries.Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementRecompute 记录一次重算
func IncrementRecompute(trigger, result string) {
	RecomputeCount.WithLabelValues(trigger, result).Inc()
}

// IncrementTransition 记录状态迁移
func IncrementTransition(from, to string) {
	StatusTransitions.WithLabelValues(from, to).Inc()
}

// IncrementPin 记录手动覆盖
func IncrementPin(level, action string) {
	ProgressPins.WithLabelValues(level, action).Inc()
}

// RecordSweep 记录一次巡检
func RecordSweep(duration time.Duration, saved, unchanged, failed int) {
	SweepDuration.Observe(duration.Seconds())
	SweepProjects.WithLabelValues("saved").Add(float64(saved))
	SweepProjects.WithLabelValues("unchanged").Add(float64(unchanged))
	SweepProjects.WithLabelValues("failed").Add(float64(failed))
}

// IncrementOutboxPublished 记录 outbox 发布结果
func IncrementOutboxPublished(routingKey, status string) {
	OutboxPublished.WithLabelValues(routingKey, status).Inc()
}
