package log

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type slogLogger struct {
	h                 slog.Handler
	attrs             []slog.Attr
	includeErrorLinks bool
	maxErrorLinks     int
}

type hasPC interface{ PC() uintptr }

type hasStack interface{ StackPCs() []uintptr }

func newSlog(opts Options) (Logger, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	if opts.StacktraceLevel == 0 {
		opts.StacktraceLevel = slog.LevelError
	}
	if opts.MaxErrorLinks <= 0 {
		opts.MaxErrorLinks = 8
	}

	ho := &slog.HandlerOptions{Level: opts.Level, AddSource: true}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, ho)
	} else {
		h = slog.NewTextHandler(w, ho)
	}
	h = stackHandler{next: traceHandler{next: h}, level: opts.StacktraceLevel}

	base := []slog.Attr{slog.String("app", opts.App)}
	if opts.Version != "" {
		base = append(base, slog.String("version", opts.Version))
	}

	return &slogLogger{
		h:                 h,
		attrs:             base,
		includeErrorLinks: opts.IncludeErrorLinks,
		maxErrorLinks:     opts.MaxErrorLinks,
	}, nil
}

func (s *slogLogger) With(kv ...any) Logger {
	// copy-on-write so derived loggers can be shared across goroutines
	next := make([]slog.Attr, 0, len(s.attrs)+len(kv)/2)
	next = append(next, s.attrs...)
	next = appendKV(next, kv)
	cp := *s
	cp.attrs = next
	return &cp
}

func (s *slogLogger) Debug(ctx context.Context, msg string, kv ...any) {
	s.emit(ctx, slog.LevelDebug, msg, kv)
}

func (s *slogLogger) Info(ctx context.Context, msg string, kv ...any) {
	s.emit(ctx, slog.LevelInfo, msg, kv)
}

func (s *slogLogger) Warn(ctx context.Context, msg string, kv ...any) {
	s.emit(ctx, slog.LevelWarn, msg, kv)
}

func (s *slogLogger) Error(ctx context.Context, err error, msg string, kv ...any) {
	if err != nil {
		surface, root := errorTypes(err)
		kv = append(kv, "err", err, "error_type", surface, "cause_type", root)
		if chain := errorChain(err); len(chain) > 1 {
			kv = append(kv, "error_chain", chain)
		}
		if s.includeErrorLinks {
			kv = append(kv, "error_links", errorLinks(err, s.maxErrorLinks))
		}
	}
	s.emit(ctx, slog.LevelError, msg, kv)
}

func (s *slogLogger) Sync() error { return nil }

func (s *slogLogger) emit(ctx context.Context, lvl slog.Level, msg string, kv []any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.h.Enabled(ctx, lvl) {
		return
	}
	// runtime.Callers, emit, Debug/Info/Warn/Error
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), lvl, msg, pcs[0])
	r.AddAttrs(s.attrs...)
	r.AddAttrs(appendKV(nil, kv)...)
	_ = s.h.Handle(ctx, r)
}

// appendKV converts alternating key/value pairs, dropping non-string keys
// and a dangling trailing key.
func appendKV(dst []slog.Attr, kv []any) []slog.Attr {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			dst = append(dst, slog.Any(k, kv[i+1]))
		}
	}
	return dst
}

// traceHandler adds trace_id/span_id when ctx carries a valid span.
type traceHandler struct{ next slog.Handler }

func (h traceHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(a []slog.Attr) slog.Handler {
	return traceHandler{next: h.next.WithAttrs(a)}
}

func (h traceHandler) WithGroup(g string) slog.Handler {
	return traceHandler{next: h.next.WithGroup(g)}
}

// stackHandler adds a "stack" attr at or above level. A stack captured on
// the "err" attr by xerrors is preferred over the logging call site.
type stackHandler struct {
	next  slog.Handler
	level slog.Level
}

func (h stackHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h stackHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level {
		var pcs []uintptr
		r.Attrs(func(a slog.Attr) bool {
			if a.Key != "err" {
				return true
			}
			if e, ok := a.Value.Any().(error); ok {
				var hs hasStack
				if errors.As(e, &hs) {
					pcs = hs.StackPCs()
				}
			}
			return false
		})
		if len(pcs) == 0 {
			pcs = make([]uintptr, 64)
			pcs = pcs[:runtime.Callers(3, pcs)]
		}
		r.AddAttrs(slog.String("stack", renderStack(pcs)))
	}
	return h.next.Handle(ctx, r)
}

func (h stackHandler) WithAttrs(a []slog.Attr) slog.Handler {
	return stackHandler{next: h.next.WithAttrs(a), level: h.level}
}

func (h stackHandler) WithGroup(g string) slog.Handler {
	return stackHandler{next: h.next.WithGroup(g), level: h.level}
}

// machineryFrames are function name fragments of the logger and error
// helpers. Anything else in this package, tests included, is a caller.
var machineryFrames = []string{
	"/internal/log.(*slogLogger).",
	"/internal/log.stackHandler.",
	"/internal/log.traceHandler.",
	"/internal/xerrors.",
}

// loggingFrame reports frames that belong to the logging machinery itself.
func loggingFrame(fn string) bool {
	if strings.HasPrefix(fn, "log/slog.") {
		return true
	}
	for _, m := range machineryFrames {
		if strings.Contains(fn, m) {
			return true
		}
	}
	return false
}

// renderStack prints func/file:line pairs from the first application frame
// down to (not including) the runtime.
func renderStack(pcs []uintptr) string {
	frames := runtime.CallersFrames(pcs)
	var b strings.Builder
	started := false
	for {
		fr, more := frames.Next()
		if strings.HasPrefix(fr.Function, "runtime.") {
			break
		}
		if !started && !loggingFrame(fr.Function) {
			started = true
		}
		if started {
			fmt.Fprintf(&b, "%s\n\t%s:%d\n", fr.Function, fr.File, fr.Line)
		}
		if !more {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

// errorChain lists distinct messages down the Unwrap chain, then the
// members of a top-level errors.Join.
func errorChain(err error) []string {
	var out []string
	prev := ""
	add := func(msg string) {
		if msg != prev {
			out = append(out, msg)
			prev = msg
		}
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		add(e.Error())
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			add(e.Error())
		}
	}
	return out
}

// errorLinks returns one entry per chain link that knows where it was
// created; the outermost link is always included.
func errorLinks(err error, max int) []map[string]any {
	var links []map[string]any
	depth := 0
	for e := err; e != nil && depth < max; e = errors.Unwrap(e) {
		link := map[string]any{"msg": e.Error()}
		var fr runtime.Frame
		found := false
		switch v := e.(type) {
		case hasPC:
			if v.PC() != 0 {
				fr, _ = runtime.CallersFrames([]uintptr{v.PC()}).Next()
				found = true
			}
		case hasStack:
			fr, found = firstAppFrame(v.StackPCs())
		}
		if found {
			link["func"], link["file"], link["line"] = fr.Function, fr.File, fr.Line
		}
		if depth == 0 || found {
			links = append(links, link)
		}
		depth++
	}
	return links
}

func firstAppFrame(pcs []uintptr) (runtime.Frame, bool) {
	if len(pcs) == 0 {
		return runtime.Frame{}, false
	}
	frames := runtime.CallersFrames(pcs)
	for {
		fr, more := frames.Next()
		if !strings.HasPrefix(fr.Function, "runtime.") && !loggingFrame(fr.Function) {
			return fr, true
		}
		if !more {
			return runtime.Frame{}, false
		}
	}
}

// errorTypes returns the first non-wrapper type in the chain and the type
// of the innermost error.
func errorTypes(err error) (surface, root string) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if _, ok := e.(interface{ IsXerrorsWrapper() }); ok {
			continue
		}
		t := reflect.TypeOf(e)
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		if t.PkgPath() == "fmt" && t.Name() == "wrapError" {
			continue
		}
		surface = fmt.Sprintf("%T", e)
		break
	}
	if surface == "" {
		surface = fmt.Sprintf("%T", err)
	}

	last := err
	for e := err; e != nil; e = errors.Unwrap(e) {
		last = e
	}
	return surface, fmt.Sprintf("%T", last)
}
