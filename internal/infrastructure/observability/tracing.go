package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const ingestSpanName = "ingest.handle"

// UpdateSpan traces one Telegram update through the ingest pipeline.
type UpdateSpan struct {
	span trace.Span
}

// StartUpdateSpan opens the pipeline span for an update. The returned context carries it.
func StartUpdateSpan(ctx context.Context, updateID int64, kind string) (context.Context, *UpdateSpan) {
	ctx, span := otel.Tracer(TracerName).Start(ctx, ingestSpanName,
		trace.WithAttributes(
			attribute.Int64("telegram.update_id", updateID),
			attribute.String("telegram.update_kind", kind),
		),
	)
	return ctx, &UpdateSpan{span: span}
}

// Fail marks the update as failed. A nil err is ignored.
func (s *UpdateSpan) Fail(err error) {
	if err == nil || !s.span.IsRecording() {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// Finish records the pipeline outcome and ends the span.
func (s *UpdateSpan) Finish(status string, transitions, warnings int) {
	if s.span.IsRecording() {
		s.span.AddEvent("ingest.result", trace.WithAttributes(
			attribute.String("status", status),
			attribute.Int("transitions", transitions),
			attribute.Int("warnings", warnings),
		))
	}
	s.span.End()
}

// TraceID returns the trace id carried by ctx, or "" outside a sampled trace.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
