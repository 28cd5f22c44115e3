package di

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/sghaida/scoped/logger"
)

const instrumentationName = "github.com/sghaida/scoped/di"

// environment carries the logger and telemetry shared by a container tree.
type environment struct {
	log      *logger.Logger
	tracer   trace.Tracer
	calls    metric.Int64Counter
	failures metric.Int64Counter
}

func newEnvironment(log *logger.Logger, tp trace.TracerProvider, mp metric.MeterProvider) *environment {
	if log == nil {
		log = logger.NewNop()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)
	env := &environment{
		log:    log.WithComponent("di"),
		tracer: tp.Tracer(instrumentationName),
	}
	var err error
	env.calls, err = meter.Int64Counter("di.factory.calls",
		metric.WithDescription("Number of factory invocations"),
	)
	if err != nil {
		env.log.Warn("creating di.factory.calls counter", logger.ErrorFields("metrics", err))
	}
	env.failures, err = meter.Int64Counter("di.teardown.failures",
		metric.WithDescription("Number of failed finalizers"),
	)
	if err != nil {
		env.log.Warn("creating di.teardown.failures counter", logger.ErrorFields("metrics", err))
	}
	return env
}

func (e *environment) factoryCalled(ctx context.Context, scope string) {
	if e == nil || e.calls == nil {
		return
	}
	e.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scope)))
}

func (e *environment) teardownFailed(ctx context.Context, scope string, key Key, err error) {
	if e == nil {
		return
	}
	if e.failures != nil {
		e.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scope)))
	}
	e.log.WithError(err).Warn("finalizer failed", logger.Fields(
		logger.FieldScope, scope,
		logger.FieldKey, key.String(),
	))
}

func (e *environment) startSpan(ctx context.Context, name string, scope Scope) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("di.scope", scope.Name),
		attribute.Int("di.scope.level", scope.Level),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
