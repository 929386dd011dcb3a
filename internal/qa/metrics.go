package qa

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const qaInstrumentationName = "github.com/fyrsmithlabs/docqa/internal/qa"

// Metrics holds all answer-generation metrics.
type Metrics struct {
	meter           metric.Meter
	logger          *zap.Logger
	answers         metric.Int64Counter
	retrievalTime   metric.Float64Histogram
	generationTime  metric.Float64Histogram
	generatorErrors metric.Int64Counter
}

// NewMetrics creates a new Metrics instance for the QA engine.
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		meter:  otel.Meter(qaInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.answers, err = m.meter.Int64Counter(
		"docqa.qa.answers_total",
		metric.WithDescription("Total answers produced, labeled by generation mode"),
		metric.WithUnit("{answer}"),
	)
	if err != nil {
		m.logger.Warn("failed to create answers counter", zap.Error(err))
	}

	m.retrievalTime, err = m.meter.Float64Histogram(
		"docqa.qa.retrieval_duration_seconds",
		metric.WithDescription("Duration of the retrieval stage per answer"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0),
	)
	if err != nil {
		m.logger.Warn("failed to create retrieval duration histogram", zap.Error(err))
	}

	m.generationTime, err = m.meter.Float64Histogram(
		"docqa.qa.generation_duration_seconds",
		metric.WithDescription("Duration of the generation or fallback stage per answer"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		m.logger.Warn("failed to create generation duration histogram", zap.Error(err))
	}

	m.generatorErrors, err = m.meter.Int64Counter(
		"docqa.qa.generator_failures_total",
		metric.WithDescription("Generator calls that failed and routed to the extractive fallback"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create generator failures counter", zap.Error(err))
	}
}

// RecordAnswer records the outcome of one Answer call.
func (m *Metrics) RecordAnswer(ctx context.Context, mode GenerationMode, retrievalTime, generationTime time.Duration, generatorFailed bool) {
	attrs := []attribute.KeyValue{
		attribute.String("mode", string(mode)),
	}

	if m.answers != nil {
		m.answers.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if m.retrievalTime != nil {
		m.retrievalTime.Record(ctx, retrievalTime.Seconds(), metric.WithAttributes(attrs...))
	}
	if m.generationTime != nil {
		m.generationTime.Record(ctx, generationTime.Seconds(), metric.WithAttributes(attrs...))
	}
	if generatorFailed && m.generatorErrors != nil {
		m.generatorErrors.Add(ctx, 1)
	}
}
