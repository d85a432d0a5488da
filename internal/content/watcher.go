package content

import (
	"context"
	"fmt"
	"time"

	"github.com/timrodz/blog/internal/cryptoutil"
	"github.com/timrodz/blog/internal/log"
)

const (
	DefaultPollInterval   = 30 * time.Second
	DefaultStaleThreshold = 30 * time.Minute

	maxBackoff = 5 * time.Minute
)

type pollResult int

const (
	pollNoChange pollResult = iota
	pollSwapped
	pollSSMError
	pollLoadError
	pollValidationError
)

// errType is the watcher error metric label for a failed poll.
func (r pollResult) errType() string {
	switch r {
	case pollSSMError:
		return "ssm"
	case pollLoadError:
		return "load"
	case pollValidationError:
		return "validation"
	}
	return ""
}

// BundleFetcher is what the Watcher needs from a BundleLoader.
type BundleFetcher interface {
	FetchCurrentHash(ctx context.Context) (string, error)
	LoadHash(ctx context.Context, hash string) (*Snapshot, error)
}

// WatcherMetrics is implemented by the metrics package.
type WatcherMetrics interface {
	IncWatcherPolls()
	IncWatcherSwaps()
	IncWatcherError(errType string)
	ObserveBundleLoadDuration(seconds float64)
	SetWatcherLastSuccess(unixSeconds float64)
	SetWatcherStale(stale bool)
}

type nopWatcherMetrics struct{}

func (nopWatcherMetrics) IncWatcherPolls()                  {}
func (nopWatcherMetrics) IncWatcherSwaps()                  {}
func (nopWatcherMetrics) IncWatcherError(string)            {}
func (nopWatcherMetrics) ObserveBundleLoadDuration(float64) {}
func (nopWatcherMetrics) SetWatcherLastSuccess(float64)     {}
func (nopWatcherMetrics) SetWatcherStale(bool)              {}

type WatcherOptions struct {
	Logger       log.Logger
	Loader       BundleFetcher
	Manager      *Manager
	PollInterval time.Duration

	// Validation defaults to DefaultValidationOptions().
	Validation *ValidationOptions

	// OnSwap runs on the poll goroutine after each successful swap.
	OnSwap func(hash, version string)

	Metrics WatcherMetrics

	// StaleThreshold is how long the SSM parameter may be unreadable before
	// the content is reported stale.
	StaleThreshold time.Duration
}

// Watcher polls the SSM parameter naming the published bundle and swaps
// the Manager's snapshot when the hash changes. Polls back off
// exponentially while SSM is failing. A bundle that fails to load or
// validate is skipped and the current content stays live.
//
// All state is owned by the Run goroutine.
type Watcher struct {
	opts     WatcherOptions
	logger   log.Logger
	metrics  WatcherMetrics
	rules    ValidationOptions
	interval time.Duration

	activeHash      string
	consecutiveErrs int
	lastSuccessAt   time.Time
	staleLogged     bool

	polls, swaps int64
}

func NewWatcher(opts WatcherOptions) *Watcher {
	w := &Watcher{
		opts:          opts,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		rules:         DefaultValidationOptions(),
		interval:      opts.PollInterval,
		lastSuccessAt: time.Now(),
	}
	if w.logger == nil {
		w.logger = log.Nop()
	}
	if w.metrics == nil {
		w.metrics = nopWatcherMetrics{}
	}
	if opts.Validation != nil {
		w.rules = *opts.Validation
	}
	if w.interval <= 0 {
		w.interval = DefaultPollInterval
	}
	if w.opts.StaleThreshold <= 0 {
		w.opts.StaleThreshold = DefaultStaleThreshold
	}
	// startup may already have loaded the published bundle
	if snap, ok := opts.Manager.Get(); ok && snap.Meta.Source == SourceS3 {
		w.activeHash = snap.Meta.SHA256
	}
	return w
}

// Run polls until ctx is cancelled and returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info(ctx, "content watcher started",
		"poll_interval", w.interval.String(),
		"active_hash", truncHash(w.activeHash),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "content watcher stopped", "polls", w.polls, "swaps", w.swaps)
			return ctx.Err()
		case <-ticker.C:
			w.adjust(ctx, ticker, w.checkOnce(ctx))
		}
	}
}

// adjust reschedules the ticker after a poll and tracks staleness. Only
// SSM failures back off; a bad bundle is retried at the normal interval
// in case it gets republished.
func (w *Watcher) adjust(ctx context.Context, ticker *time.Ticker, result pollResult) {
	if result != pollSSMError {
		if w.consecutiveErrs > 0 {
			w.logger.Info(ctx, "ssm reachable again", "failed_polls", w.consecutiveErrs)
			w.consecutiveErrs = 0
			ticker.Reset(w.interval)
		}
		if w.staleLogged {
			w.staleLogged = false
			w.metrics.SetWatcherStale(false)
			w.logger.Info(ctx, "content freshness restored")
		}
		return
	}

	w.consecutiveErrs++
	next := w.backoffDuration()
	ticker.Reset(next)
	w.logger.Warn(ctx, "ssm poll failed, backing off",
		"failed_polls", w.consecutiveErrs,
		"next_poll_in", next.String(),
	)

	since := time.Since(w.lastSuccessAt)
	if since > w.opts.StaleThreshold && !w.staleLogged {
		w.staleLogged = true
		w.metrics.SetWatcherStale(true)
		w.logger.Error(ctx, fmt.Errorf("no successful ssm poll for %s", since.Truncate(time.Second)),
			"content may be stale")
	}
}

func (w *Watcher) fail(ctx context.Context, r pollResult, err error, msg string, kv ...any) pollResult {
	w.metrics.IncWatcherError(r.errType())
	w.logger.Error(ctx, err, msg, kv...)
	return r
}

// checkOnce reads the published hash and, when it differs from the active
// one, loads, validates and swaps in the new bundle.
func (w *Watcher) checkOnce(ctx context.Context) pollResult {
	w.polls++
	w.metrics.IncWatcherPolls()

	hash, err := w.opts.Loader.FetchCurrentHash(ctx)
	if err != nil {
		return w.fail(ctx, pollSSMError, err, "read published bundle hash")
	}
	w.lastSuccessAt = time.Now()
	w.metrics.SetWatcherLastSuccess(float64(w.lastSuccessAt.Unix()))

	if cryptoutil.HashEqual(hash, w.activeHash) {
		return pollNoChange
	}
	w.logger.Info(ctx, "new bundle published",
		"active_hash", truncHash(w.activeHash),
		"published_hash", truncHash(hash),
	)

	started := time.Now()
	snap, err := w.opts.Loader.LoadHash(ctx, hash)
	w.metrics.ObserveBundleLoadDuration(time.Since(started).Seconds())
	if err != nil {
		return w.fail(ctx, pollLoadError, err, "load bundle, keeping current content",
			"hash", truncHash(hash))
	}
	if err := ValidateSnapshot(snap, w.rules); err != nil {
		return w.fail(ctx, pollValidationError, err, "bundle rejected, keeping current content",
			"rejected_hash", truncHash(hash),
			"active_hash", truncHash(w.activeHash),
		)
	}

	w.opts.Manager.Set(*snap)
	prev := w.activeHash
	w.activeHash = hash
	w.swaps++
	w.metrics.IncWatcherSwaps()

	version := w.opts.Manager.ContentVersion()
	w.logger.Info(ctx, "content swapped",
		"previous_hash", truncHash(prev),
		"hash", truncHash(hash),
		"version", version,
		"posts", len(snap.Posts),
		"projects", len(snap.Projects),
	)
	runSwapHook(ctx, w.logger, w.opts.OnSwap, hash, version)
	return pollSwapped
}

// backoffDuration is the poll interval doubled once per consecutive SSM
// failure, capped at maxBackoff.
func (w *Watcher) backoffDuration() time.Duration {
	d := w.interval
	for range w.consecutiveErrs {
		if d >= maxBackoff {
			break
		}
		d *= 2
	}
	return min(d, maxBackoff)
}

// runSwapHook calls fn and logs instead of crashing the watcher if it
// panics.
func runSwapHook(ctx context.Context, logger log.Logger, fn func(hash, version string), hash, version string) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, fmt.Errorf("panic: %v", r), "swap hook failed", "hash", truncHash(hash))
		}
	}()
	fn(hash, version)
}

func truncHash(h string) string { return cryptoutil.ShortHash(h) }
