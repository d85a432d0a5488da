package httpmw

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/timrodz/blog/internal/log"
)

const tracerName = "blog/httpmw"

// responseWriter records status and size for the access log, and times the
// response.write child span from the first byte to the end of the handler.
type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64

	ctx      context.Context
	reqStart time.Time

	writeSpan    trace.Span
	spanStarted  bool
	firstWriteAt time.Duration
	blocked      time.Duration
	writeErr     error
}

func (rw *responseWriter) startWriteSpan() {
	if rw.spanStarted {
		return
	}
	rw.spanStarted = true
	rw.firstWriteAt = time.Since(rw.reqStart)

	if !trace.SpanFromContext(rw.ctx).IsRecording() {
		return
	}
	rw.ctx, rw.writeSpan = otel.Tracer(tracerName).Start(rw.ctx, "response.write",
		trace.WithAttributes(attribute.Float64("http.server.ttfb_seconds", rw.firstWriteAt.Seconds())),
	)
}

func (rw *responseWriter) endWriteSpan() {
	if rw.writeSpan == nil {
		return
	}
	rw.writeSpan.SetAttributes(
		attribute.Int("http.response.status_code", rw.statusCode()),
		attribute.Int64("http.response.body.size", rw.bytes),
		attribute.Float64("http.server.write.block_seconds", rw.blocked.Seconds()),
	)
	if rw.writeErr != nil {
		rw.writeSpan.RecordError(rw.writeErr)
		rw.writeSpan.SetStatus(codes.Error, rw.writeErr.Error())
	}
	rw.writeSpan.End()
}

func (rw *responseWriter) statusCode() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.startWriteSpan()
	rw.status = code
	start := time.Now()
	rw.ResponseWriter.WriteHeader(code)
	rw.blocked += time.Since(start)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.startWriteSpan()
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	start := time.Now()
	n, err := rw.ResponseWriter.Write(b)
	rw.blocked += time.Since(start)
	rw.bytes += int64(n)
	if err != nil && rw.writeErr == nil {
		rw.writeErr = err
	}
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying ResponseWriter does not implement http.Hijacker")
	}
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// WithLogger puts a request scoped logger into the context. It carries the
// request id, the client address resolved by ClientIPWithOptions and the
// method and path. The query string is deliberately left out.
func WithLogger(base log.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqID := RequestIDFromContext(ctx)

			peer := r.RemoteAddr
			if host, _, err := net.SplitHostPort(peer); err == nil {
				peer = host
			}
			client := ClientIPFromContext(ctx)
			if client == "" {
				client = peer
			}
			scheme := schemeFromRequest(r)

			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(
					attribute.String("request_id", reqID),
					attribute.String("client.address", client),
					attribute.String("network.peer.address", peer),
					attribute.String("server.address", r.Host),
					attribute.String("url.scheme", scheme),
				)
			}

			l := base.With(
				"request_id", reqID,
				"client.address", client,
				"network.peer.address", peer,
				"server.address", r.Host,
				"http.request.method", r.Method,
				"url.path", r.URL.Path,
				"url.scheme", scheme,
			)
			next.ServeHTTP(w, r.WithContext(log.WithContext(ctx, l)))
		})
	}
}

// quietPath reports paths whose successful requests are not worth an
// access log line. Failures on them are still logged.
func quietPath(p string) bool {
	switch {
	case strings.HasPrefix(p, "/static/"), strings.HasPrefix(p, "/-/"):
		return true
	case p == "/favicon.ico", p == "/robots.txt":
		return true
	}
	return false
}

// SlowRequest is the duration above which an access log line is raised to
// warn.
const SlowRequest = 2 * time.Second

// AccessLog writes one line per request through the logger WithLogger put in
// the context. It must run inside the chi router so the route is known.
// Server errors and slow requests log at warn.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, ctx: r.Context(), reqStart: start}

			next.ServeHTTP(rw, r)
			rw.endWriteSpan()

			status := rw.statusCode()
			if status < http.StatusBadRequest && quietPath(r.URL.Path) {
				return
			}
			elapsed := time.Since(start)
			kv := []any{
				"http.response.status_code", status,
				"http.server.request.duration", elapsed.Seconds(),
				"http.response.body.size", rw.bytes,
				"http.request.body.size", max(r.ContentLength, 0),
				"http.route", routePattern(r),
			}
			if rw.spanStarted {
				kv = append(kv, "http.server.ttfb", rw.firstWriteAt.Seconds())
			}

			ctx := r.Context()
			l := log.FromContext(ctx)
			switch {
			case status >= http.StatusInternalServerError:
				l.Warn(ctx, "http request failed", kv...)
			case elapsed > SlowRequest:
				l.Warn(ctx, "slow http request", kv...)
			default:
				l.Info(ctx, "http request", kv...)
			}
		})
	}
}

// schemeFromRequest trusts X-Forwarded-Proto only while it survives
// ClientIPWithOptions, which strips it from untrusted peers.
func schemeFromRequest(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-Proto"); xf != "" {
		s := strings.ToLower(strings.TrimSpace(strings.Split(xf, ",")[0]))
		if s == "http" || s == "https" {
			return s
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// Scope tags the logger and span of every request below it with a handler
// group name such as "site" or "api".
func Scope(handler string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = log.WithContext(ctx, log.FromContext(ctx).With("handler", handler))
			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(attribute.String("app.handler", handler))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
