package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 请求结果
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kb_requests_total",
			Help: "Knowledge base pipeline requests by operation and status",
		},
		[]string{"operation", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kb_request_duration_seconds",
			Help:    "Knowledge base pipeline request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	externalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kb_external_call_duration_seconds",
			Help:    "Duration of embedding, index and generation calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"dependency", "operation"},
	)

	ingestedEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kb_ingested_entries_total",
			Help: "Entries upserted into the vector index by source",
		},
		[]string{"source"},
	)

	answerFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kb_answer_fallbacks_total",
			Help: "Answers that fell back to the no-match message",
		},
	)
)

// ObserveRequest 记录一次管道请求
func ObserveRequest(operation string, err error, start time.Time) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	requestsTotal.WithLabelValues(operation, status).Inc()
	requestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveExternal 记录一次外部依赖调用
func ObserveExternal(dependency, operation string, start time.Time) {
	externalCallDuration.WithLabelValues(dependency, operation).Observe(time.Since(start).Seconds())
}

// AddIngested 累加入库条目数
func AddIngested(source string, n int) {
	ingestedEntries.WithLabelValues(source).Add(float64(n))
}

// IncFallback 无匹配回退次数
func IncFallback() {
	answerFallbacks.Inc()
}

// Handler Prometheus抓取端点
func Handler() http.Handler {
	return promhttp.Handler()
}
