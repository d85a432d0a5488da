package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/timrodz/blog/internal/cfg"
	"github.com/timrodz/blog/internal/content"
	"github.com/timrodz/blog/internal/contentapi"
	"github.com/timrodz/blog/internal/health"
	"github.com/timrodz/blog/internal/httpmw"
	"github.com/timrodz/blog/internal/httpserver"
	"github.com/timrodz/blog/internal/log"
	"github.com/timrodz/blog/internal/metrics"
	"github.com/timrodz/blog/internal/opshttp"
	"github.com/timrodz/blog/internal/otelx"
	"github.com/timrodz/blog/internal/prof"
	"github.com/timrodz/blog/internal/ratelimit"
	"github.com/timrodz/blog/internal/render"
	"github.com/timrodz/blog/internal/sitehandler"
	"github.com/timrodz/blog/internal/sitehttp"
	v "github.com/timrodz/blog/internal/version"
	"github.com/timrodz/blog/internal/webassets"
)

const appName = "blog"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "blog:", err)
		os.Exit(1)
	}
}

func run() error {
	vi := v.Get()

	var conf cfg.App
	var showVersion bool
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("%s %s (commit=%s, commit_date=%s, build_date=%s, go=%s, dirty=%v)\n",
			appName, vi.Version, vi.Commit, vi.CommitDate, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		return nil
	}

	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
	if err := cfg.Validate(conf); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	lvl, _ := log.ParseLevel(conf.LogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	lg, err := log.New(log.Options{
		App:               appName,
		Version:           vi.Version,
		Commit:            vi.Short(),
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JSON:              conf.LogJSON,
		MaxErrorLinks:     conf.MaxErrorLinks,
		IncludeErrorLinks: conf.IncludeErrorLinks,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = lg.Sync() }()
	L := lg.With("component", "server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"content_source", conf.ContentSource,
		"watch_content", conf.WatchContent,
		"enable_tracing", conf.EnableTracing,
		"enable_pyroscope", conf.EnablePyroscope,
	)

	m := metrics.New()
	m.SetBuildInfoFromVersion("server", vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       appName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Short(),
		},
		OnActive: m.SetProfilingActive,
	})
	if err != nil {
		// profiling is optional, keep serving
		L.Warn(ctx, "continuing without profiling", "err", err)
	}
	defer stopProf()

	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:     conf.EnableTracing,
		Endpoint:    conf.OTLPEndpoint,
		Insecure:    conf.OTLPInsecure,
		SampleRatio: conf.TraceSample,
		ServiceName: appName,
		Version:     vi.Version,
		Environment: conf.Environment,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	// content: seed first, then the configured source and its watcher
	mgr := content.NewManager()
	seedContent(ctx, L, conf, mgr)

	workers, workerCtx := errgroup.WithContext(ctx)
	if err := setupContent(workerCtx, workers, L, conf, mgr, m); err != nil {
		L.Error(ctx, err, "content setup failed")
		return err
	}
	m.SetContent(contentState(mgr))

	renderer := render.New(render.Options{})
	site, err := sitehandler.New(sitehandler.Options{
		Logger:       L,
		Content:      mgr,
		Renderer:     renderer,
		Templates:    webassets.TemplatesFS(),
		Static:       webassets.StaticFS(),
		FallbackFS:   webassets.FallbackFS(),
		AssetVersion: vi.Short(),
		Dates:        content.DateFormatter{Location: conf.Location()},
	})
	if err != nil {
		return fmt.Errorf("site handler: %w", err)
	}
	api := contentapi.NewAPI(mgr, L)

	var gate health.ShutdownGate
	readiness := health.All(gate.Probe(), health.Named("content", mgr))

	var rateLimitMW func(next http.Handler) http.Handler
	if conf.RateLimitRPS > 0 {
		limiter := ratelimit.New(ctx,
			ratelimit.WithRate(conf.RateLimitRPS, conf.RateLimitBurst),
			ratelimit.WithMaxVisitors(conf.RateLimitMaxVisitors),
			ratelimit.WithExemptPrefixes("/static/", "/-/"),
			ratelimit.WithOnDenied(func(string) { m.IncRateLimitDenied() }),
			// logged once per ip until it is evicted
			ratelimit.WithOnFirstDenied(func(ip string) {
				L.Warn(ctx, "rate limit triggered", "client_ip", ip)
			}),
			ratelimit.WithOnCapacity(func() {
				m.IncRateLimitCapacity()
				L.Warn(ctx, "rate limit capacity reached, rejecting new visitors until some are evicted")
			}),
		)
		rateLimitMW = limiter.Middleware
	}

	siteStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		MetricsMW:    m.Middleware,
		RateLimitMW:  rateLimitMW,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedHops},
		Security: httpmw.SecurityOptions{
			AnalyticsID: conf.AnalyticsID,
			HSTS:        conf.HSTS,
		},
		Health:      health.Fixed(true, ""),
		Readiness:   readiness,
		ContentInfo: mgr,
		APIRoutes:   api.RegisterRoutes,
		SiteRoutes:  sitehttp.New(site).RegisterRoutes,
	})
	if err != nil {
		return fmt.Errorf("site listener: %w", err)
	}

	// the admin listener refuses public peers itself, independent of any
	// network policy in front of it
	opsStop, err := opshttp.Start(ctx, L, &opshttp.Options{
		Port:         conf.AdminPort,
		Metrics:      m.Handler(),
		EnablePprof:  conf.EnablePprof,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
	})
	if err != nil {
		_ = siteStop(context.Background())
		return fmt.Errorf("ops listener: %w", err)
	}

	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd notify skipped", "err", err)
	}

	// a watcher that dies is fatal: the process would silently serve stale content
	select {
	case <-ctx.Done():
		L.Info(context.Background(), "shutdown signal received")
	case <-workerCtx.Done():
		if err := workers.Wait(); err != nil {
			L.Error(context.Background(), err, "content worker stopped")
		}
	}
	stop()

	gate.Set("draining")
	L.Info(context.Background(), "shutdown gate closed, draining", "drain_period", conf.DrainPeriod)
	drain(context.Background(), L, conf.DrainPeriod)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := siteStop(shutdownCtx); err != nil {
		L.Error(shutdownCtx, err, "site http server shutdown")
	}
	if err := opsStop(shutdownCtx); err != nil {
		L.Error(shutdownCtx, err, "ops http server shutdown")
	}
	if err := workers.Wait(); err != nil {
		L.Error(shutdownCtx, err, "content workers")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(shutdownCtx, err, "otel shutdown")
	}

	L.Info(context.Background(), "shutdown complete")
	return nil
}

// drain waits for load balancers to notice the failing readiness probe.
// A second signal skips the wait.
func drain(ctx context.Context, L log.Logger, d time.Duration) {
	if d <= 0 {
		return
	}
	force := make(chan os.Signal, 1)
	signal.Notify(force, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(force)

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		L.Info(ctx, "drain period complete")
	case <-force:
		L.Warn(ctx, "second signal received, skipping drain")
	}
}

func notifySystemd() error {
	// set by systemd for Type=notify units
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify: dial: %w", err)
	}
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		_ = conn.Close()
		return fmt.Errorf("systemd notify: write: %w", err)
	}
	return conn.Close()
}
