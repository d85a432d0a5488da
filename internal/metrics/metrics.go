// Package metrics owns the Prometheus registry for the blog server: HTTP
// RED metrics, build info, rate limiter counters and the content pipeline
// (active snapshot, S3 watcher, local reloads).
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/timrodz/blog/internal/version"
)

const namespace = "blog"

type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight    prometheus.Gauge
	reqTotal    *prometheus.CounterVec
	reqDur      *prometheus.HistogramVec
	respBytes   *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	panicTotal  prometheus.Counter

	buildInfo       *prometheus.GaugeVec
	profilingActive prometheus.Gauge

	ratelimitDenied   prometheus.Counter
	ratelimitCapacity prometheus.Counter

	contentSource   *prometheus.GaugeVec
	contentBundle   *prometheus.GaugeVec
	contentLoadedTs prometheus.Gauge
	contentEntries  *prometheus.GaugeVec
	contentReloads  *prometheus.CounterVec

	watcherPolls       prometheus.Counter
	watcherSwaps       prometheus.Counter
	watcherErrors      *prometheus.CounterVec
	bundleLoadDuration prometheus.Histogram
	watcherLastSuccess prometheus.Gauge
	watcherStale       prometheus.Gauge
}

// New returns a fresh registry with the Go and process collectors plus the
// blog metrics. HTTP labels are limited to method, route pattern and status.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Request latency by method and route",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "Response size by method and route",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"method", "route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total 5xx responses by method and route",
		}, []string{"method", "route"}),
		panicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_panic_total",
			Help:      "Total number of recovered handler panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build metadata (value is always 1)",
		}, []string{"component", "version", "commit", "commit_date", "build_date", "vcs_dirty", "go_version"}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "profiling_active",
			Help:      "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
		ratelimitDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_rate_limited_total",
			Help:      "Total requests rejected by the per-IP rate limiter",
		}),
		ratelimitCapacity: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_rate_limited_capacity_total",
			Help:      "Total requests rejected because the limiter tracked too many clients",
		}),
		contentSource: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "content_source_info",
			Help:      "Where the active content came from (label carries value, gauge is always 1)",
		}, []string{"source"}),
		contentBundle: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "content_bundle_info",
			Help:      "Active content snapshot identity (value is always 1)",
		}, []string{"sha256", "version"}),
		contentLoadedTs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "content_loaded_timestamp_seconds",
			Help:      "Unix timestamp of when the active content was loaded",
		}),
		contentEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "content_entries",
			Help:      "Number of entries in the active content by kind",
		}, []string{"kind"}),
		contentReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_reloads_total",
			Help:      "Local content directory reloads by result",
		}, []string{"result"}),
		watcherPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_watcher_polls_total",
			Help:      "Total number of watcher poll cycles",
		}),
		watcherSwaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_watcher_swaps_total",
			Help:      "Total number of successful content bundle swaps",
		}),
		watcherErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_watcher_errors_total",
			Help:      "Total watcher errors by type",
		}, []string{"type"}),
		bundleLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "content_bundle_load_duration_seconds",
			Help:      "Time to download, verify, and extract a content bundle",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		watcherLastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "content_watcher_last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful SSM poll",
		}),
		watcherStale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "content_watcher_stale",
			Help:      "Whether the content watcher is stale (1) or healthy (0)",
		}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errorsTotal,
		m.panicTotal,
		m.buildInfo,
		m.profilingActive,
		m.ratelimitDenied,
		m.ratelimitCapacity,
		m.contentSource,
		m.contentBundle,
		m.contentLoadedTs,
		m.contentEntries,
		m.contentReloads,
		m.watcherPolls,
		m.watcherSwaps,
		m.watcherErrors,
		m.bundleLoadDuration,
		m.watcherLastSuccess,
		m.watcherStale,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry:          reg,
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) Handler() http.Handler { return m.handler }

// Registry is exposed for tests and extra collectors.
func (m *ServerMetrics) Registry() *prometheus.Registry { return m.reg }

func (m *ServerMetrics) IncHttpPanic() { m.panicTotal.Inc() }

// SetBuildInfoFromVersion is called once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(component string, vi version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"component":   component,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   dirty,
	}).Set(1)
}

func (m *ServerMetrics) SetProfilingActive(active bool) { m.profilingActive.Set(boolGauge(active)) }

func (m *ServerMetrics) IncRateLimitDenied()   { m.ratelimitDenied.Inc() }
func (m *ServerMetrics) IncRateLimitCapacity() { m.ratelimitCapacity.Inc() }

// ContentState describes the active snapshot.
type ContentState struct {
	Source   string
	SHA256   string
	Version  string
	LoadedAt time.Time
	Posts    int
	Projects int
}

// SetContent replaces every content gauge with s. Info gauges are reset
// first so only the active snapshot carries a 1.
func (m *ServerMetrics) SetContent(s ContentState) {
	m.contentSource.Reset()
	m.contentSource.WithLabelValues(s.Source).Set(1)
	m.contentBundle.Reset()
	m.contentBundle.WithLabelValues(s.SHA256, s.Version).Set(1)
	m.contentLoadedTs.Set(float64(s.LoadedAt.Unix()))
	m.contentEntries.WithLabelValues("posts").Set(float64(s.Posts))
	m.contentEntries.WithLabelValues("projects").Set(float64(s.Projects))
}

func (m *ServerMetrics) IncContentReload(result string) {
	m.contentReloads.WithLabelValues(result).Inc()
}

func (m *ServerMetrics) IncWatcherPolls() { m.watcherPolls.Inc() }
func (m *ServerMetrics) IncWatcherSwaps() { m.watcherSwaps.Inc() }

func (m *ServerMetrics) IncWatcherError(errType string) {
	m.watcherErrors.WithLabelValues(errType).Inc()
}

func (m *ServerMetrics) ObserveBundleLoadDuration(seconds float64) {
	m.bundleLoadDuration.Observe(seconds)
}

func (m *ServerMetrics) SetWatcherLastSuccess(unixSeconds float64) {
	m.watcherLastSuccess.Set(unixSeconds)
}

func (m *ServerMetrics) SetWatcherStale(stale bool) { m.watcherStale.Set(boolGauge(stale)) }

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
