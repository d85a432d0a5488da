package opshttp

import (
	"net/http"

	"github.com/timrodz/blog/internal/health"
)

// Options configures the admin listener. It serves probes, Prometheus
// metrics and optionally pprof, and only answers non-public peers.
type Options struct {
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Probe
	Readiness   health.Probe

	UseRecoverMW bool
	// OnPanic runs after a recovered panic, e.g. to bump a counter.
	OnPanic func()
}
