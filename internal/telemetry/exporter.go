// Package telemetry exports evaluation scores as OpenTelemetry metrics.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/blackwell-systems/cceval/internal/score"
)

const serviceName = "cceval"

// ErrDisabled is returned by NewExporter when telemetry is not configured.
var ErrDisabled = errors.New("telemetry exporter is disabled or endpoint not configured")

// Recorder receives evaluation reports and flushes on Close.
type Recorder interface {
	Observe(ctx context.Context, r *score.Report) error
	Close(ctx context.Context) error
}

// Exporter records evaluation scores to an OTLP collector.
type Exporter struct {
	provider      *sdkmetric.MeterProvider
	overallHist   metric.Float64Histogram
	dimensionHist metric.Float64Histogram
	linesHist     metric.Int64Histogram
	evaluations   metric.Int64Counter
}

// NewExporter creates an OTLP/gRPC exporter and installs its meter
// provider globally.
func NewExporter(ctx context.Context, cfg Config, version string) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, ErrDisabled
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	e, err := newExporter(sdkmetric.NewPeriodicReader(exp), res)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(e.provider)
	return e, nil
}

func newExporter(reader sdkmetric.Reader, res *resource.Resource) (*Exporter, error) {
	opts := []sdkmetric.Option{sdkmetric.WithReader(reader)}
	if res != nil {
		opts = append(opts, sdkmetric.WithResource(res))
	}
	provider := sdkmetric.NewMeterProvider(opts...)
	meter := provider.Meter(serviceName)

	overall, err := meter.Float64Histogram(
		"cceval_overall_score",
		metric.WithDescription("Overall session evaluation score"),
		metric.WithUnit("{score}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating overall histogram: %w", err)
	}

	dimension, err := meter.Float64Histogram(
		"cceval_dimension_score",
		metric.WithDescription("Per-dimension session evaluation score"),
		metric.WithUnit("{score}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dimension histogram: %w", err)
	}

	lines, err := meter.Int64Histogram(
		"cceval_generated_lines",
		metric.WithDescription("Lines of code written per session"),
		metric.WithUnit("{line}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lines histogram: %w", err)
	}

	evaluations, err := meter.Int64Counter(
		"cceval_evaluations_total",
		metric.WithDescription("Total number of session evaluations"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating evaluations counter: %w", err)
	}

	return &Exporter{
		provider:      provider,
		overallHist:   overall,
		dimensionHist: dimension,
		linesHist:     lines,
		evaluations:   evaluations,
	}, nil
}

// Observe records one report.
func (e *Exporter) Observe(ctx context.Context, r *score.Report) error {
	opt := metric.WithAttributes(
		attribute.String("project", r.ProjectPath),
		attribute.String("grade", r.Grade()),
		attribute.Bool("first_completed", r.Completion.FirstCompleted),
	)

	e.overallHist.Record(ctx, r.Overall, opt)
	for _, d := range r.Dimensions {
		e.dimensionHist.Record(ctx, d.Score, metric.WithAttributes(
			attribute.String("project", r.ProjectPath),
			attribute.String("dimension", d.Name),
		))
	}
	e.linesHist.Record(ctx, int64(r.Quality.TotalLines), opt)
	e.evaluations.Add(ctx, 1, opt)
	return nil
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}

// NoOp is a Recorder that does nothing.
type NoOp struct{}

func (NoOp) Observe(context.Context, *score.Report) error { return nil }

func (NoOp) Close(context.Context) error { return nil }

// New returns an Exporter when cfg enables one, and NoOp otherwise.
func New(ctx context.Context, cfg Config, version string) (Recorder, error) {
	if !cfg.Enabled {
		return NoOp{}, nil
	}
	return NewExporter(ctx, cfg, version)
}
