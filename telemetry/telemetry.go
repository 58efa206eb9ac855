// Package telemetry wires OpenTelemetry tracing and metrics for evaluation
// runs. Spans cover one session each, with child spans per oracle round;
// counters track classified windows, oracle queries and confirmations.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/ercarpio/SG-CNN"

// Instruments bundles the tracer and metric instruments of a run.
type Instruments struct {
	tracer trace.Tracer

	windows       metric.Int64Counter
	queries       metric.Int64Counter
	confirmations metric.Int64Counter
	sessions      metric.Int64Counter
}

// New creates the instruments from the given providers. Nil providers fall
// back to no-op implementations.
func New(tp trace.TracerProvider, mp metric.MeterProvider) (*Instruments, error) {
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	in := &Instruments{tracer: tp.Tracer(instrumentationName)}
	var err error

	in.windows, err = meter.Int64Counter(
		"itbn.windows",
		metric.WithDescription("Classifier windows evaluated"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create windows counter: %w", err)
	}

	in.queries, err = meter.Int64Counter(
		"itbn.oracle.queries",
		metric.WithDescription("Oracle queries issued"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create queries counter: %w", err)
	}

	in.confirmations, err = meter.Int64Counter(
		"itbn.events.confirmed",
		metric.WithDescription("Events confirmed by the engine"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create confirmations counter: %w", err)
	}

	in.sessions, err = meter.Int64Counter(
		"itbn.sessions",
		metric.WithDescription("Sessions evaluated"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sessions counter: %w", err)
	}

	return in, nil
}

// Noop returns instruments that record nothing.
func Noop() *Instruments {
	in, _ := New(nil, nil)
	return in
}

// StartSession opens the span covering one session.
func (in *Instruments) StartSession(ctx context.Context, name string, frames int) (context.Context, trace.Span) {
	in.sessions.Add(ctx, 1)
	return in.tracer.Start(ctx, "itbn.session", trace.WithAttributes(
		attribute.String("session.name", name),
		attribute.Int("session.frames", frames),
	))
}

// StartRound opens the span covering one oracle round.
func (in *Instruments) StartRound(ctx context.Context, frame int, pending int) (context.Context, trace.Span) {
	return in.tracer.Start(ctx, "itbn.round", trace.WithAttributes(
		attribute.Int("round.frame", frame),
		attribute.Int("round.pending", pending),
	))
}

// WindowClassified counts one classified window.
func (in *Instruments) WindowClassified(ctx context.Context, modality string, truth, predicted int) {
	in.windows.Add(ctx, 1, metric.WithAttributes(
		attribute.String("modality", modality),
		attribute.Bool("correct", truth == predicted),
	))
}

// OracleQueried counts one oracle query.
func (in *Instruments) OracleQueried(ctx context.Context, event, verdict string) {
	in.queries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("verdict", verdict),
	))
}

// EventConfirmed counts one confirmation.
func (in *Instruments) EventConfirmed(ctx context.Context, event string) {
	in.confirmations.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}
