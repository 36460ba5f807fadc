package ai

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "campus",
		Subsystem: "ai",
		Name:      "chat_duration_seconds",
		Help:      "Duration of model chat requests",
	}, []string{"provider", "model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus",
		Subsystem: "ai",
		Name:      "chat_failures_total",
		Help:      "Number of failed model chat requests",
	}, []string{"provider", "model"})

	aiTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus",
		Subsystem: "ai",
		Name:      "tokens_total",
		Help:      "Tokens consumed by model chat requests",
	}, []string{"provider", "model", "direction"})
)

func observe(provider, model string, start time.Time, usage Usage) {
	aiDuration.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
	aiTokens.WithLabelValues(provider, model, "input").Add(float64(usage.InputTokens))
	aiTokens.WithLabelValues(provider, model, "output").Add(float64(usage.OutputTokens))
}

func fail(span trace.Span, provider, model string, start time.Time, err error) {
	aiDuration.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
	aiFailures.WithLabelValues(provider, model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
