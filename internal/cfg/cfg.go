// Package cfg holds the server's runtime configuration. Every setting is a
// flag with an inline default; unset flags are filled from BLOG_* env vars.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/timrodz/blog/internal/log"
)

// EnvPrefix is prepended to upper-cased flag names: -http-port reads
// BLOG_HTTP_PORT.
const EnvPrefix = "BLOG_"

const (
	ContentSourceDisk = "disk"
	ContentSourceS3   = "s3"
)

type App struct {
	LogJSON           bool
	LogLevel          string
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int

	HTTPPort    int
	AdminPort   int
	EnablePprof bool
	DrainPeriod time.Duration

	EnablePyroscope bool
	PyroServer      string
	PyroTenantID    string

	EnableTracing bool
	OTLPEndpoint  string
	OTLPInsecure  bool
	TraceSample   float64
	Environment   string

	// content
	ContentSource         string
	ContentDir            string
	WatchContent          bool
	ContentPollInterval   time.Duration
	ContentStaleThreshold time.Duration
	ContentSSMParam       string
	ContentS3Bucket       string
	ContentS3Prefix       string
	ContentSigningKeyARN  string
	ContentPublicKeyPath  string
	Timezone              string

	// public edge
	TrustedHops          int
	AnalyticsID          string
	HSTS                 bool
	RateLimitRPS         float64
	RateLimitBurst       int
	RateLimitMaxVisitors int
}

// Register binds all config fields to the given FlagSet with defaults inline.
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")

	fs.IntVar(&c.HTTPPort, "http-port", 8080, "public listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof (admin port only)")
	fs.DurationVar(&c.DrainPeriod, "drain-period", 15*time.Second, "how long to fail readiness before closing listeners on shutdown")

	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Push profiles to -pyro-server")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) for pyro-server")

	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Export OTLP traces to -otlp-endpoint")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint (host:port)")
	fs.BoolVar(&c.OTLPInsecure, "otlp-insecure", true, "Plaintext gRPC to the OTLP endpoint")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.1, "trace sampling ratio (0..1)")
	fs.StringVar(&c.Environment, "environment", "dev", "deployment environment reported with traces")

	fs.StringVar(&c.ContentSource, "content-source", ContentSourceDisk, "where content comes from: disk|s3")
	fs.StringVar(&c.ContentDir, "content-dir", "content", "content root for -content-source=disk")
	fs.BoolVar(&c.WatchContent, "watch-content", false, "Reload content on change (fsnotify for disk, SSM polling for s3)")
	fs.DurationVar(&c.ContentPollInterval, "content-poll-interval", 30*time.Second, "SSM poll interval for -content-source=s3")
	fs.DurationVar(&c.ContentStaleThreshold, "content-stale-threshold", 10*time.Minute, "report content stale after this long without a successful poll")
	fs.StringVar(&c.ContentSSMParam, "content-ssm-param", "/blog/content/current", "ssm parameter holding the active bundle sha256")
	fs.StringVar(&c.ContentS3Bucket, "content-s3-bucket", "", "s3 bucket holding content bundles")
	fs.StringVar(&c.ContentS3Prefix, "content-s3-prefix", "content/bundles", "s3 key prefix for content bundles")
	fs.StringVar(&c.ContentSigningKeyARN, "content-signing-key-arn", "", "KMS key ARN for bundle signature verification")
	fs.StringVar(&c.ContentPublicKeyPath, "content-public-key", "", "PEM public key for bundle signature verification")
	fs.StringVar(&c.Timezone, "timezone", "UTC", "IANA zone used for content dates")

	fs.IntVar(&c.TrustedHops, "trusted-hops", 0, "trusted proxies in front of the server (X-Forwarded-For depth)")
	fs.StringVar(&c.AnalyticsID, "analytics-id", "", "Google Analytics measurement id, allowed in the CSP")
	fs.BoolVar(&c.HSTS, "hsts", false, "Send Strict-Transport-Security")
	fs.Float64Var(&c.RateLimitRPS, "rate-limit-rps", 10, "per-ip refill rate, 0 disables rate limiting")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", 30, "per-ip bucket size")
	fs.IntVar(&c.RateLimitMaxVisitors, "rate-limit-max-visitors", 100000, "max tracked ips, 0 is unbounded")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// Location resolves Timezone. Validate has already rejected unknown zones.
func (c App) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks every field and returns all problems joined, or nil.
func Validate(c App) error {
	var errs []error

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}

	if c.DrainPeriod < 0 || c.DrainPeriod > 5*time.Minute {
		errs = append(errs, fmt.Errorf("DRAIN_PERIOD must be 0..5m (got %s)", c.DrainPeriod))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}
	if c.IncludeErrorLinks && (c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64) {
		errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
	}

	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, errors.New("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, errors.New("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %v", c.Timezone, err))
	}

	switch c.ContentSource {
	case ContentSourceDisk:
		if c.ContentDir == "" {
			errs = append(errs, errors.New("CONTENT_DIR is required when CONTENT_SOURCE=disk"))
		}
	case ContentSourceS3:
		if c.ContentSSMParam == "" {
			errs = append(errs, errors.New("CONTENT_SSM_PARAM is required when CONTENT_SOURCE=s3"))
		}
		if c.ContentS3Bucket == "" {
			errs = append(errs, errors.New("CONTENT_S3_BUCKET is required when CONTENT_SOURCE=s3"))
		}
		if c.ContentSigningKeyARN != "" && c.ContentPublicKeyPath != "" {
			errs = append(errs, errors.New("set at most one of CONTENT_SIGNING_KEY_ARN and CONTENT_PUBLIC_KEY"))
		}
		if c.WatchContent && c.ContentPollInterval < time.Second {
			errs = append(errs, fmt.Errorf("CONTENT_POLL_INTERVAL must be at least 1s (got %s)", c.ContentPollInterval))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid CONTENT_SOURCE %q (must be disk or s3)", c.ContentSource))
	}

	if c.TrustedHops < 0 || c.TrustedHops > 10 {
		errs = append(errs, fmt.Errorf("TRUSTED_HOPS must be 0..10 (got %d)", c.TrustedHops))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must not be negative (got %v)", c.RateLimitRPS))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must be at least 1 (got %d)", c.RateLimitBurst))
	}
	if c.RateLimitMaxVisitors < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_MAX_VISITORS must not be negative (got %d)", c.RateLimitMaxVisitors))
	}

	return errors.Join(errs...)
}
