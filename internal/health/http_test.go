package health

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestProbeHandlers(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode int
		wantBody string
	}{
		{name: "healthy", handler: HealthzHandler(Fixed(true, "")), wantCode: http.StatusOK, wantBody: "ok"},
		{name: "unhealthy", handler: HealthzHandler(Fixed(false, "content watcher stalled")), wantCode: http.StatusServiceUnavailable, wantBody: "content watcher stalled"},
		{name: "nil probe", handler: HealthzHandler(nil), wantCode: http.StatusOK, wantBody: "ok"},
		{name: "ready", handler: ReadyzHandler(Fixed(true, "")), wantCode: http.StatusOK, wantBody: "ready"},
		{name: "not ready", handler: ReadyzHandler(Fixed(false, "no content loaded")), wantCode: http.StatusServiceUnavailable, wantBody: "no content loaded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/-/ready", http.NoBody))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Fatalf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
				t.Fatalf("Cache-Control = %q", cc)
			}
		})
	}
}
