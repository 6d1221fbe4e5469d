package omf

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/rbaliyan/omf"
)

// otelInstrumentation holds OpenTelemetry instrumentation for the client.
type otelInstrumentation struct {
	enabled bool

	// Tracing
	tracingEnabled bool
	tracer         trace.Tracer

	// Metrics
	metricsEnabled bool

	sendLatency metric.Float64Histogram
	sendCount   metric.Int64Counter
	sendErrors  metric.Int64Counter
	sendBytes   metric.Int64Counter

	tokenLatency metric.Float64Histogram
	tokenCount   metric.Int64Counter
	tokenErrors  metric.Int64Counter
}

// newOtelInstrumentation creates new OTel instrumentation from options.
func newOtelInstrumentation(opts *options) (*otelInstrumentation, error) {
	o := &otelInstrumentation{
		enabled:        opts.tracingEnabled || opts.metricsEnabled,
		tracingEnabled: opts.tracingEnabled,
		metricsEnabled: opts.metricsEnabled,
	}

	if !o.enabled {
		return o, nil
	}

	if opts.tracingEnabled {
		tp := opts.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		o.tracer = tp.Tracer(instrumentationName)
	}

	if opts.metricsEnabled {
		mp := opts.meterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		if err := o.initMetrics(mp); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// initMetrics initializes all metric instruments.
func (o *otelInstrumentation) initMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentationName)

	var err error

	o.sendLatency, err = meter.Float64Histogram(
		"omf.send.duration",
		metric.WithDescription("Duration of message send operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.sendCount, err = meter.Int64Counter(
		"omf.send.count",
		metric.WithDescription("Number of messages sent"),
	)
	if err != nil {
		return err
	}

	o.sendErrors, err = meter.Int64Counter(
		"omf.send.errors",
		metric.WithDescription("Number of send errors"),
	)
	if err != nil {
		return err
	}

	o.sendBytes, err = meter.Int64Counter(
		"omf.send.bytes",
		metric.WithDescription("Bytes posted, after compression"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	o.tokenLatency, err = meter.Float64Histogram(
		"omf.token.duration",
		metric.WithDescription("Duration of token acquisition"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.tokenCount, err = meter.Int64Counter(
		"omf.token.count",
		metric.WithDescription("Number of token acquisitions"),
	)
	if err != nil {
		return err
	}

	o.tokenErrors, err = meter.Int64Counter(
		"omf.token.errors",
		metric.WithDescription("Number of token acquisition errors"),
	)
	if err != nil {
		return err
	}

	return nil
}

// startSpan starts a new span if tracing is enabled.
// Caller must invoke the returned func with the operation's error.
func (o *otelInstrumentation) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if !o.tracingEnabled || o.tracer == nil {
		return ctx, func(error) {}
	}
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// recordSend records send operation metrics.
func (o *otelInstrumentation) recordSend(ctx context.Context, duration time.Duration, msgType MessageType, action Action, bodyBytes int, err error) {
	if !o.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("messagetype", msgType.String()),
		attribute.String("action", action.String()),
	)

	o.sendLatency.Record(ctx, duration.Seconds(), attrs)
	o.sendCount.Add(ctx, 1, attrs)
	o.sendBytes.Add(ctx, int64(bodyBytes), attrs)
	if err != nil {
		o.sendErrors.Add(ctx, 1, attrs)
	}
}

// recordTokenFetch records token acquisition metrics.
func (o *otelInstrumentation) recordTokenFetch(ctx context.Context, duration time.Duration, err error) {
	if !o.metricsEnabled {
		return
	}

	o.tokenLatency.Record(ctx, duration.Seconds())
	o.tokenCount.Add(ctx, 1)
	if err != nil {
		o.tokenErrors.Add(ctx, 1)
	}
}
