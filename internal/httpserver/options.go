package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/timrodz/blog/internal/health"
	"github.com/timrodz/blog/internal/httpmw"
	"github.com/timrodz/blog/internal/log"
)

// Options configures the public listener.
type Options struct {
	Logger log.Logger
	Port   int

	UseRecoverMW bool
	OnPanic      func()

	MetricsMW   func(http.Handler) http.Handler
	RateLimitMW func(http.Handler) http.Handler

	ClientIPOpts httpmw.ClientIPOptions
	Security     httpmw.SecurityOptions

	Health    health.Probe
	Readiness health.Probe

	// ContentInfo feeds the X-Content-Version and X-Content-Hash headers.
	ContentInfo httpmw.ContentInfo

	// APIRoutes registers the JSON endpoints.
	APIRoutes func(chi.Router)
	// SiteRoutes registers the pages and installs the NotFound fallback.
	// It runs last.
	SiteRoutes func(chi.Router)
}
