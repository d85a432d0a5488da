package httpmw

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		hops       int
		want       string
		keepXFF    bool
	}{
		{name: "public peer ignores XFF", remoteAddr: "203.0.113.1:1234", xff: "10.0.0.1", hops: 1, want: "203.0.113.1"},
		{name: "private peer without hops ignores XFF", remoteAddr: "10.0.0.1:1234", xff: "203.0.113.50", want: "10.0.0.1"},
		{name: "loopback is not private", remoteAddr: "127.0.0.1:1234", xff: "203.0.113.50", hops: 1, want: "127.0.0.1"},
		{name: "single load balancer", remoteAddr: "10.0.0.1:1234", xff: "198.51.100.7, 203.0.113.50", hops: 1, want: "203.0.113.50", keepXFF: true},
		{name: "cdn then load balancer", remoteAddr: "10.0.0.1:1234", xff: "198.51.100.7, 203.0.113.50, 192.0.2.9", hops: 2, want: "203.0.113.50", keepXFF: true},
		{name: "chain shorter than hops fails closed", remoteAddr: "10.0.0.1:1234", xff: "203.0.113.50", hops: 3, want: "10.0.0.1"},
		{name: "garbage XFF entry", remoteAddr: "10.0.0.1:1234", xff: "not-an-ip", hops: 1, want: "10.0.0.1", keepXFF: true},
		{name: "private peer without XFF", remoteAddr: "192.168.1.1:1234", hops: 1, want: "192.168.1.1"},
		{name: "ipv6 private", remoteAddr: "[fd00::1]:1234", xff: "2001:db8::1", hops: 1, want: "2001:db8::1", keepXFF: true},
		{name: "no port", remoteAddr: "10.0.0.1", want: "10.0.0.1"},
		{name: "unparseable host", remoteAddr: "bogus:1234", want: "0.0.0.0"},
		{name: "empty remote", remoteAddr: "", want: "0.0.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := resolveClientIP(r, tt.hops); got != tt.want {
				t.Fatalf("resolveClientIP = %q, want %q", got, tt.want)
			}
			if tt.xff != "" {
				if kept := r.Header.Get("X-Forwarded-For") != ""; kept != tt.keepXFF {
					t.Fatalf("X-Forwarded-For kept = %v, want %v", kept, tt.keepXFF)
				}
			}
		})
	}
}

func TestClientIPWithOptions_StoresInContext(t *testing.T) {
	var got string
	h := ClientIPWithOptions(ClientIPOptions{TrustedHops: 1})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIPFromContext(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	r.RemoteAddr = "10.1.2.3:5555"
	r.Header.Set("X-Forwarded-For", "198.51.100.20")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if got != "198.51.100.20" {
		t.Fatalf("client ip = %q", got)
	}
}

func TestClientIP_DefaultDistrustsHeaders(t *testing.T) {
	var got, proto string
	h := ClientIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIPFromContext(r.Context())
		proto = r.Header.Get("X-Forwarded-Proto")
	}))
	r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	r.RemoteAddr = "10.1.2.3:5555"
	r.Header.Set("X-Forwarded-For", "198.51.100.20")
	r.Header.Set("X-Forwarded-Proto", "https")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if got != "10.1.2.3" || proto != "" {
		t.Fatalf("client ip = %q proto = %q", got, proto)
	}
}

func TestWithClientIP_Empty(t *testing.T) {
	ctx := WithClientIP(t.Context(), "")
	if ClientIPFromContext(ctx) != "" {
		t.Fatal("empty ip should not be stored")
	}
}
