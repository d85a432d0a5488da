package httpmw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurityHeaders_Defaults(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(SecurityOptions{})(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	want := map[string]string{
		"X-Content-Type-Options":       "nosniff",
		"X-Frame-Options":              "DENY",
		"Referrer-Policy":              "strict-origin-when-cross-origin",
		"Cross-Origin-Opener-Policy":   "same-origin",
		"Cross-Origin-Resource-Policy": "cross-origin",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS should be off unless enabled")
	}
	csp := rec.Header().Get("Content-Security-Policy")
	if strings.Contains(csp, "googletagmanager") {
		t.Errorf("analytics origin allowed without an id: %s", csp)
	}
	if !strings.Contains(csp, "frame-ancestors 'none'") || !strings.Contains(csp, "object-src 'none'") {
		t.Errorf("csp missing lockdown directives: %s", csp)
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(SecurityOptions{HSTS: true})(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if !strings.HasPrefix(rec.Header().Get("Strict-Transport-Security"), "max-age=31536000") {
		t.Fatalf("HSTS = %q", rec.Header().Get("Strict-Transport-Security"))
	}
}

func TestContentSecurityPolicy_AnalyticsAndImages(t *testing.T) {
	csp := ContentSecurityPolicy(SecurityOptions{
		AnalyticsID:  "G-TEST",
		ImageSources: []string{"https://images.example.com"},
	})
	for _, want := range []string{
		"script-src 'self' https://www.googletagmanager.com",
		"connect-src 'self' https://www.google-analytics.com",
		"img-src 'self' data: https://www.google-analytics.com https://images.example.com",
	} {
		if !strings.Contains(csp, want) {
			t.Errorf("csp missing %q:\n%s", want, csp)
		}
	}
}
