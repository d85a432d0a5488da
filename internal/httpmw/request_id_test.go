package httpmw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		inbound  string
		wantKeep bool
	}{
		{name: "generated when missing", inbound: ""},
		{name: "propagates sane id", inbound: "abc-123_x.y:z", wantKeep: true},
		{name: "rejects spaces", inbound: "abc 123"},
		{name: "rejects control chars", inbound: "abc\x00"},
		{name: "rejects oversized", inbound: strings.Repeat("a", maxRequestIDLen+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var inCtx string
			h := RequestID("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				inCtx = RequestIDFromContext(r.Context())
			}))
			r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.inbound != "" {
				r.Header.Set(DefaultRequestIDHeader, tt.inbound)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)

			echoed := rec.Header().Get(DefaultRequestIDHeader)
			if echoed == "" || echoed != inCtx {
				t.Fatalf("echoed %q, context %q", echoed, inCtx)
			}
			if tt.wantKeep && echoed != tt.inbound {
				t.Fatalf("id = %q, want inbound %q", echoed, tt.inbound)
			}
			if !tt.wantKeep && len(echoed) != 32 {
				t.Fatalf("generated id = %q, want 32 hex chars", echoed)
			}
		})
	}
}

func TestRequestID_CustomHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	RequestID("X-Correlation-Id")(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if rec.Header().Get("X-Correlation-Id") == "" {
		t.Fatal("custom header not set")
	}
	if rec.Header().Get(DefaultRequestIDHeader) != "" {
		t.Fatal("default header should not be set")
	}
}

func TestNewRequestID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for range 100 {
		id := newRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
