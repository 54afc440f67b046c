package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attrMap(attrs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func TestStartServiceSpan(t *testing.T) {
	recorder := installRecorder(t)

	ctx, span := telemetry.StartServiceSpan(context.Background(), "purchase_order", "approve",
		telemetry.WithAttribute(telemetry.SpanAttrOrderNumber, "PO-2026-00001"),
		telemetry.WithAttribute(telemetry.SpanAttrVersion, 3),
	)
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	assert.NotEmpty(t, telemetry.GetSpanID(ctx))
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderStatus, "approved", 42, "skipped")
	telemetry.AddEvent(span, "level_recorded", "level", 2)
	telemetry.SetOK(span)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "purchase_order.approve", ended[0].Name())
	attrs := attrMap(ended[0].Attributes())
	assert.Equal(t, "PO-2026-00001", attrs[telemetry.SpanAttrOrderNumber])
	assert.Equal(t, "3", attrs[telemetry.SpanAttrVersion])
	assert.Equal(t, "approved", attrs[telemetry.SpanAttrOrderStatus])
	assert.Len(t, attrs, 3)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
}

func TestRecordError(t *testing.T) {
	recorder := installRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "purchase_order.receive")
	telemetry.RecordError(span, errors.New("over receipt"))
	telemetry.RecordError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "over receipt", ended[0].Status().Description)
}

func TestTraceIDWithoutSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
	assert.Empty(t, telemetry.GetSpanID(context.Background()))
}
