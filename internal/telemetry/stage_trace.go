package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StageCallAttrs holds the attributes for a span covering one pipeline
// stage's external call (transcode, a blob upload, a document-store write).
type StageCallAttrs struct {
	ItemID   string
	Stage    string // transcode, upload_original, upload_compressed, store_metadata
	Resource string // blob key or document id, when known at span-start time
}

// TraceItem opens the per-item root span that every stage span for that
// item nests under.
func TraceItem(ctx context.Context, itemID string) (context.Context, trace.Span) {
	tracer := otel.Tracer("ingest-pipeline")
	return tracer.Start(ctx, "ingest.item", trace.WithAttributes(
		attribute.String("ingest.item_id", itemID),
	))
}

// TraceStage opens a child span for a single stage's external call.
func TraceStage(ctx context.Context, attrs StageCallAttrs) (context.Context, trace.Span) {
	tracer := otel.Tracer("ingest-pipeline")

	spanName := fmt.Sprintf("ingest.%s", attrs.Stage)
	ctx, span := tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("ingest.item_id", attrs.ItemID),
			attribute.String("ingest.stage", attrs.Stage),
		),
	)
	if attrs.Resource != "" {
		span.SetAttributes(attribute.String("ingest.resource", attrs.Resource))
	}
	return ctx, span
}

// RecordStageError records an error outcome on a stage span and marks it
// failed. A nil err is a no-op, so callers can pass the stage's err
// unconditionally.
func RecordStageError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}

// RecordStageSuccess marks a stage span as completed without error.
func RecordStageSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
