package httpmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

// sampledContext carries a valid, non-recording span context.
func sampledContext() context.Context {
	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestTraceResponseHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", http.NoBody).WithContext(sampledContext())
	TraceResponseHeaders("", "")(okHandler).ServeHTTP(rec, r)

	if got := rec.Header().Get("X-Trace-Id"); got != "0102030405060708090a0b0c0d0e0f10" {
		t.Fatalf("X-Trace-Id = %q", got)
	}
	if got := rec.Header().Get("X-Span-Id"); got != "0102030405060708" {
		t.Fatalf("X-Span-Id = %q", got)
	}
}

func TestTraceResponseHeaders_NoSpan(t *testing.T) {
	rec := httptest.NewRecorder()
	TraceResponseHeaders("X-T", "X-S")(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if rec.Header().Get("X-T") != "" || rec.Header().Get("X-S") != "" {
		t.Fatal("headers set without a span")
	}
}
