package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/timrodz/blog/internal/health"
	"github.com/timrodz/blog/internal/httpmw"
	"github.com/timrodz/blog/internal/log"
	"github.com/timrodz/blog/internal/xerrors"
)

const DefaultPort = 8080

// maxRequestBody is generous for a site that only takes GET and HEAD.
const maxRequestBody = 1024

// NewHandler builds the public handler: chi routes inside the middleware
// stack. main owns the *http.Server for graceful shutdown.
func NewHandler(opts *Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}

	r := chi.NewRouter()

	// HEAD is answered by the GET routes with the body dropped
	r.Use(middleware.GetHead)
	r.Use(middleware.Compress(5,
		"text/html",
		"text/css",
		"text/plain",
		"application/javascript",
		"application/json",
		"application/xml",
		"application/rss+xml",
		"image/svg+xml",
	))
	r.Use(httpmw.AnnotateHTTPRoute)
	r.Use(httpmw.AccessLog())
	r.Use(httpmw.MaxBody(maxRequestBody))

	if opts.Health != nil {
		r.Get("/-/healthy", health.HealthzHandler(opts.Health))
	}
	if opts.Readiness != nil {
		r.Get("/-/ready", health.ReadyzHandler(opts.Readiness))
	}

	if opts.APIRoutes != nil {
		r.Group(func(r chi.Router) {
			r.Use(httpmw.Scope("api"))
			opts.APIRoutes(r)
		})
	}
	if opts.SiteRoutes != nil {
		r.Group(func(r chi.Router) {
			r.Use(httpmw.Scope("site"))
			opts.SiteRoutes(r)
		})
	}

	return httpmw.Chain(r,
		// security headers outermost so even a recovered panic carries them
		httpmw.SecurityHeaders(opts.Security),
		recoverMW(logger, opts),
		httpmw.RequestID(httpmw.DefaultRequestIDHeader),
		httpmw.ClientIPWithOptions(opts.ClientIPOpts),
		opts.RateLimitMW,
		tracing,
		httpmw.TraceResponseHeaders("X-Trace-Id", "X-Span-Id"),
		httpmw.ContentHeaders(opts.ContentInfo),
		opts.MetricsMW,
		httpmw.WithLogger(logger),
	)
}

func recoverMW(logger log.Logger, opts *Options) func(http.Handler) http.Handler {
	if !opts.UseRecoverMW {
		return nil
	}
	return httpmw.Recover(logger, opts.OnPanic)
}

// shouldTrace skips probes, crawler files and static assets.
func shouldTrace(p string) bool {
	switch p {
	case "/favicon.ico", "/robots.txt", "/-/healthy", "/-/ready":
		return false
	}
	if strings.HasPrefix(p, "/static/") {
		return false
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".css", ".js", ".png", ".jpg", ".jpeg", ".webp", ".avif", ".gif", ".ico", ".woff", ".woff2", ".map":
		return false
	}
	return true
}

func tracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "http.server",
		otelhttp.WithFilter(func(r *http.Request) bool { return shouldTrace(r.URL.Path) }),
		// AnnotateHTTPRoute renames the span to the route pattern later
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string { return r.Method }),
		otelhttp.WithPublicEndpointFn(func(*http.Request) bool { return true }),
	)
}

// Server timeouts, shared with opshttp.
const (
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 15 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20
)

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
	}
}

// Start listens on opts.Port and serves in the background.
// The returned stop drains in-flight requests and is safe to call twice.
func Start(ctx context.Context, opts *Options) (func(context.Context) error, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := fmt.Sprintf(":%d", port)

	srv := NewServer(addr, NewHandler(opts))
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "listen on %s", addr)
	}

	go func() {
		logger.Info(ctx, "http server listening", "addr", addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, err, "http server error")
		}
	}()

	var once sync.Once
	stop := func(sctx context.Context) (retErr error) {
		once.Do(func() {
			logger.Info(sctx, "http server shutting down")
			c, cancel := context.WithTimeout(sctx, 10*time.Second)
			defer cancel()
			retErr = srv.Shutdown(c)
		})
		return retErr
	}
	return stop, nil
}
