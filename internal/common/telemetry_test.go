package common

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

func TestWithContextFoldsInSpanIDs(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	if err != nil {
		t.Fatalf("trace id: %v", err)
	}
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	if err != nil {
		t.Fatalf("span id: %v", err)
	}
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctxLogger := WithContext(ctx, logger)
	ctxLogger.Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"trace_id":"4bf92f3577b34da6a3ce929d0e0e4736"`) {
		t.Fatalf("trace id missing from log line: %s", out)
	}
	if !strings.Contains(out, `"span_id":"00f067aa0ba902b7"`) {
		t.Fatalf("span id missing from log line: %s", out)
	}
}

func TestWithContextWithoutSpanIsUnchanged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctxLogger := WithContext(context.Background(), logger)
	ctxLogger.Info().Msg("hello")

	out := buf.String()
	if strings.Contains(out, "trace_id") || strings.Contains(out, "span_id") {
		t.Fatalf("unexpected trace fields in log line: %s", out)
	}
}
