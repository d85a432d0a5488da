package httpmw

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type clientIPKey struct{}

// ClientIPOptions describes the proxies in front of the blog.
type ClientIPOptions struct {
	// TrustedHops is how many proxies append to X-Forwarded-For before a
	// request reaches us. 0 ignores the header, 1 takes the last entry
	// (a single load balancer), 2 the one before it (CDN then load balancer).
	TrustedHops int
}

// ClientIP resolves the client address with no trusted proxies.
func ClientIP(next http.Handler) http.Handler {
	return ClientIPWithOptions(ClientIPOptions{})(next)
}

// ClientIPWithOptions stores the resolved client address in the request
// context for the rate limiter and the access log.
func ClientIPWithOptions(opts ClientIPOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClientIP(r, opts.TrustedHops)
			next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ip)))
		})
	}
}

// resolveClientIP only honours X-Forwarded-For when the peer is a private
// address and proxies are configured. In every other case the forwarding
// headers are stripped so later handlers cannot be fooled by them.
func resolveClientIP(r *http.Request, trustedHops int) string {
	if r.RemoteAddr == "" {
		return "0.0.0.0"
	}
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	ip := net.ParseIP(peer)
	if ip == nil {
		return "0.0.0.0"
	}

	if !ip.IsPrivate() || trustedHops <= 0 {
		dropForwardedHeaders(r)
		return peer
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return peer
	}
	hops := strings.Split(xff, ",")
	i := len(hops) - trustedHops
	if i < 0 {
		// shorter chain than the proxies we expect: spoofed or misrouted
		dropForwardedHeaders(r)
		return peer
	}
	if candidate := strings.TrimSpace(hops[i]); net.ParseIP(candidate) != nil {
		return candidate
	}
	return peer
}

func dropForwardedHeaders(r *http.Request) {
	r.Header.Del("X-Forwarded-For")
	r.Header.Del("X-Forwarded-Proto")
}

func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}
