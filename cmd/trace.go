// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"

	"github.com/luthersystems/lispc/analyzer"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// logExporter writes finished spans to a logger, one entry per span.
type logExporter struct {
	log logrus.FieldLogger
}

var _ sdktrace.SpanExporter = (*logExporter)(nil)

func (e *logExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		fields := logrus.Fields{
			"span":     s.Name(),
			"trace_id": s.SpanContext().TraceID().String(),
			"duration": s.EndTime().Sub(s.StartTime()).String(),
		}
		for _, kv := range s.Attributes() {
			fields[string(kv.Key)] = kv.Value.AsInterface()
		}
		entry := e.log.WithFields(fields)
		if status := s.Status(); status.Code == codes.Error {
			entry.Warn(status.Description)
			continue
		}
		entry.Info("span finished")
	}
	return ctx.Err()
}

func (e *logExporter) Shutdown(ctx context.Context) error {
	return nil
}

// newTracer returns a tracer whose spans are logged synchronously to log,
// and a function that flushes and stops it.
func newTracer(log logrus.FieldLogger) (trace.Tracer, func(context.Context) error) {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(&logExporter{log: log}),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	return tp.Tracer(analyzer.TracerName), tp.Shutdown
}
