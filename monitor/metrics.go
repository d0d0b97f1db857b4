package monitor

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/songquanpeng/chatkit/relay/model"
)

const namespace = "chatkit"

var (
	modelInvocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_invocations_total",
		Help:      "Number of Bedrock model invocations by outcome.",
	}, []string{"model", "provider", "outcome"})

	modelLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "model_invocation_duration_seconds",
		Help:      "Latency of Bedrock model invocations.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
	}, []string{"model", "provider"})

	modelTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_tokens_total",
		Help:      "Tokens consumed by Bedrock models.",
	}, []string{"model", "direction"})

	parseFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "output_parse_failures_total",
		Help:      "Model outputs that could not be parsed into the requested type.",
	}, []string{"type", "reason"})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served by route and status code.",
	}, []string{"method", "route", "code"})

	httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Latency of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	registerOnce sync.Once
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// InitPrometheusMonitoring registers the collectors with the default registry.
// It is safe to call more than once.
func InitPrometheusMonitoring() {
	registerOnce.Do(func() {
		prometheus.MustRegister(modelInvocations, modelLatency, modelTokens, parseFailures,
			httpRequests, httpLatency)
	})
}

// RecordInvocation counts one model call and observes its latency.
func RecordInvocation(modelID, provider string, err error, elapsed time.Duration) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	modelInvocations.WithLabelValues(modelID, provider, outcome).Inc()
	modelLatency.WithLabelValues(modelID, provider).Observe(elapsed.Seconds())
}

// RecordTokenUsage adds the usage of one call. Nil usage is ignored.
func RecordTokenUsage(modelID string, usage *model.TokenUsage) {
	if usage == nil {
		return
	}
	modelTokens.WithLabelValues(modelID, "input").Add(float64(usage.InputTokenCount))
	modelTokens.WithLabelValues(modelID, "output").Add(float64(usage.OutputTokenCount))
}

// RecordParseFailure counts a rejected model output.
func RecordParseFailure(typ, reason string) {
	parseFailures.WithLabelValues(typ, reason).Inc()
}

// RecordHTTPRequest counts one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func RecordHTTPRequest(method, route string, code int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
