package httpmw

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/timrodz/blog/internal/log"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// recordingSpan starts a real span and returns the recorder that sees it end.
// The recording provider is installed globally for the test so spans started
// by the middleware through otel.Tracer land in the same recorder.
func recordingSpan(t *testing.T, name string) (context.Context, trace.Span, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	ctx, span := tp.Tracer("test").Start(context.Background(), name)
	return ctx, span, sr
}

type logEntry struct {
	level  string
	msg    string
	err    error
	fields []any
}

// captureLogger records every call. With returns a child sharing the sink so
// the fields it was given show up on later entries.
type captureLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
	fields  []any
}

func newCaptureLogger() *captureLogger {
	return &captureLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (c *captureLogger) With(kv ...any) log.Logger {
	f := append(append([]any{}, c.fields...), kv...)
	return &captureLogger{mu: c.mu, entries: c.entries, fields: f}
}

func (c *captureLogger) add(level string, err error, msg string, kv []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := append(append([]any{}, c.fields...), kv...)
	*c.entries = append(*c.entries, logEntry{level: level, msg: msg, err: err, fields: f})
}

func (c *captureLogger) Debug(_ context.Context, msg string, kv ...any) { c.add("debug", nil, msg, kv) }
func (c *captureLogger) Info(_ context.Context, msg string, kv ...any)  { c.add("info", nil, msg, kv) }
func (c *captureLogger) Warn(_ context.Context, msg string, kv ...any)  { c.add("warn", nil, msg, kv) }
func (c *captureLogger) Error(_ context.Context, err error, msg string, kv ...any) {
	c.add("error", err, msg, kv)
}
func (c *captureLogger) Sync() error { return nil }

func (c *captureLogger) all() []logEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]logEntry(nil), *c.entries...)
}

// field extracts a value by key from a kv slice.
func field(fields []any, key string) (any, bool) {
	for i := 0; i+1 < len(fields); i += 2 {
		if k, ok := fields[i].(string); ok && k == key {
			return fields[i+1], true
		}
	}
	return nil, false
}
