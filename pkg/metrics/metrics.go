package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TaskPublishedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_published_count",
			Help: "Total number of tasks published to the broker",
		},
		[]string{"routing_key", "status"}, // status: success, failed
	)

	TaskProcessedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_processed_count",
			Help: "Total number of tasks processed by consumers",
		},
		[]string{"queue", "status"}, // status: acked, nacked
	)

	TaskConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "task_consume_latency_ms",
			Help:    "Task consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"queue"},
	)

	ThumbnailResizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "thumbnail_resize_duration_seconds",
			Help:    "Thumbnail resize duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
	)

	RelayEmitCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_emit_count",
			Help: "Total number of events emitted over the worker relay",
		},
		[]string{"event", "status"},
	)
)

func RecordTaskPublished(routingKey string, ok bool) {
	status := "success"
	if !ok {
		status = "failed"
	}
	TaskPublishedCount.WithLabelValues(routingKey, status).Inc()
}

func RecordTaskProcessed(queue, status string) {
	TaskProcessedCount.WithLabelValues(queue, status).Inc()
}

func RecordTaskConsumeLatency(queue string, duration time.Duration) {
	TaskConsumeLatency.WithLabelValues(queue).Observe(float64(duration.Milliseconds()))
}

func RecordThumbnailResize(duration time.Duration) {
	ThumbnailResizeDuration.Observe(duration.Seconds())
}

func RecordRelayEmit(event string, ok bool) {
	status := "success"
	if !ok {
		status = "failed"
	}
	RelayEmitCount.WithLabelValues(event, status).Inc()
}
