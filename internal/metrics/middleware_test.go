package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

func routed(m *ServerMetrics) http.Handler {
	r := chi.NewRouter()
	r.Get("/posts/{slug}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("post body"))
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	r.Get("/quiet", func(w http.ResponseWriter, r *http.Request) {})
	return m.Middleware(r)
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec}
	_, _ = sw.Write([]byte("aaa"))
	_, _ = sw.Write([]byte("bbbbb"))
	if sw.status != http.StatusOK || sw.n != 8 {
		t.Fatalf("status=%d n=%d", sw.status, sw.n)
	}

	sw = &statusWriter{ResponseWriter: httptest.NewRecorder()}
	sw.WriteHeader(http.StatusNotFound)
	if sw.status != http.StatusNotFound {
		t.Fatalf("status = %d", sw.status)
	}
}

func TestMiddleware_RoutePatternLabels(t *testing.T) {
	m := New()
	h := routed(m)
	for _, p := range []string{"/posts/a", "/posts/b", "/posts/c"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, http.NoBody))
	}

	reg := m.Registry()
	got := labeled(t, reg, "blog_http_requests_total", map[string]string{"method": "GET", "route": "/posts/{slug}", "status": "200"})
	if got.GetCounter().GetValue() != 3 {
		t.Fatalf("requests = %v, want 3 under one route label", got.GetCounter().GetValue())
	}
	if n := labeled(t, reg, "blog_http_request_duration_seconds", map[string]string{"route": "/posts/{slug}"}).GetHistogram().GetSampleCount(); n != 3 {
		t.Fatalf("duration samples = %d", n)
	}
	if s := labeled(t, reg, "blog_http_response_size_bytes", map[string]string{"route": "/posts/{slug}"}).GetHistogram().GetSampleSum(); s != 27 {
		t.Fatalf("response bytes sum = %v, want 27", s)
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	m := New()
	routed(m).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/some/random/path", http.NoBody))
	labeled(t, m.Registry(), "blog_http_requests_total", map[string]string{"route": unmatchedRoute, "status": "404"})
}

func TestMiddleware_ErrorsOnlyFor5xx(t *testing.T) {
	m := New()
	h := routed(m)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/quiet", http.NoBody))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))

	f := gatherMetric(t, m.Registry(), "blog_http_errors_total")
	if f == nil || len(f.GetMetric()) != 1 {
		t.Fatalf("error series = %v", f)
	}
	labeled(t, m.Registry(), "blog_http_errors_total", map[string]string{"route": "/boom"})
	labeled(t, m.Registry(), "blog_http_requests_total", map[string]string{"route": "/quiet", "status": "200"})
}

func TestMiddleware_InflightReturnsToZero(t *testing.T) {
	m := New()
	var during float64
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = gaugeValue(t, m.Registry(), "blog_http_inflight_requests")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if during != 1 {
		t.Fatalf("inflight during request = %v", during)
	}
	if v := gaugeValue(t, m.Registry(), "blog_http_inflight_requests"); v != 0 {
		t.Fatalf("inflight after = %v", v)
	}
}

func TestTraceExemplar(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")

	sampled := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))
	if ex := traceExemplar(sampled); ex["trace_id"] != "0102030405060708090a0b0c0d0e0f10" {
		t.Fatalf("exemplar = %v", ex)
	}

	unsampled := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID,
	}))
	if ex := traceExemplar(unsampled); ex != nil {
		t.Fatalf("unsampled exemplar = %v", ex)
	}
	if ex := traceExemplar(context.Background()); ex != nil {
		t.Fatalf("no trace exemplar = %v", ex)
	}
}
