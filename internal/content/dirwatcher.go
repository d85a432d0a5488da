package content

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/timrodz/blog/internal/log"
	"github.com/timrodz/blog/internal/xerrors"
)

const DefaultDebounce = 250 * time.Millisecond

// SnapshotLoader builds a fresh snapshot; DiskLoader implements it.
type SnapshotLoader interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// ReloadMetrics is implemented by the metrics package.
type ReloadMetrics interface {
	IncContentReload(result string)
}

type DirWatcherOptions struct {
	Logger     log.Logger
	Root       string
	Loader     SnapshotLoader
	Manager    *Manager
	Debounce   time.Duration
	Validation ValidationOptions
	Metrics    ReloadMetrics

	// OnSwap runs on the watcher goroutine after each successful reload.
	OnSwap func(hash, version string)
}

// DirWatcher reloads a disk content root when files under it change.
// Bursts of events (editor saves, git checkouts) collapse into a single
// reload once the tree has been quiet for the debounce period. A reload
// that fails to parse or validate keeps the current snapshot.
type DirWatcher struct {
	opts    DirWatcherOptions
	logger  log.Logger
	watcher *fsnotify.Watcher
	reloads int64
}

func NewDirWatcher(opts DirWatcherOptions) (*DirWatcher, error) {
	if opts.Root == "" {
		return nil, xerrors.New("dir watcher: root is required")
	}
	if opts.Loader == nil || opts.Manager == nil {
		return nil, xerrors.New("dir watcher: loader and manager are required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, xerrors.Wrap(err, "create fsnotify watcher")
	}
	// fsnotify is not recursive; the category dirs hold the content files
	for _, dir := range []string{opts.Root, filepath.Join(opts.Root, PostsDir), filepath.Join(opts.Root, ProjectsDir)} {
		if err := fw.Add(dir); err != nil && dir == opts.Root {
			fw.Close()
			return nil, xerrors.Wrapf(err, "watch %s", dir)
		}
	}
	return &DirWatcher{opts: opts, logger: opts.Logger, watcher: fw}, nil
}

// Run processes events until ctx is cancelled, then closes the underlying
// watcher and returns ctx.Err().
func (d *DirWatcher) Run(ctx context.Context) error {
	defer d.watcher.Close()

	d.logger.Info(ctx, "content dir watcher starting",
		"root", d.opts.Root,
		"debounce", d.opts.Debounce.String(),
	)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info(ctx, "content dir watcher stopping", "reloads", d.reloads)
			return ctx.Err()

		case ev, ok := <-d.watcher.Events:
			if !ok {
				return nil
			}
			if !d.relevant(ev) {
				continue
			}
			d.trackNewDir(ctx, ev)
			d.logger.Debug(ctx, "content change", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(d.opts.Debounce)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.Error(ctx, err, "content dir watcher error")

		case <-timer.C:
			d.reload(ctx)
		}
	}
}

func (d *DirWatcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(ev.Name)
	// editor swap and backup files
	if base == "" || base[0] == '.' || base[len(base)-1] == '~' {
		return false
	}
	return true
}

// trackNewDir starts watching a category directory created after startup.
func (d *DirWatcher) trackNewDir(ctx context.Context, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) {
		return
	}
	if filepath.Dir(ev.Name) != filepath.Clean(d.opts.Root) {
		return
	}
	if base := filepath.Base(ev.Name); base != PostsDir && base != ProjectsDir {
		return
	}
	if err := d.watcher.Add(ev.Name); err != nil {
		d.logger.Warn(ctx, "could not watch new content dir", "path", ev.Name, "error", err)
	}
}

func (d *DirWatcher) count(result string) {
	if d.opts.Metrics != nil {
		d.opts.Metrics.IncContentReload(result)
	}
}

func (d *DirWatcher) reload(ctx context.Context) {
	snap, err := d.opts.Loader.Load(ctx)
	if err != nil {
		d.logger.Error(ctx, err, "content reload failed, keeping current content")
		d.count("error")
		return
	}
	if err := ValidateSnapshot(snap, d.opts.Validation); err != nil {
		d.logger.Error(ctx, err, "reloaded content failed validation, keeping current content")
		d.count("invalid")
		return
	}
	if snap.Meta.SHA256 != "" && snap.Meta.SHA256 == d.opts.Manager.ContentHash() {
		d.count("unchanged")
		return
	}

	d.opts.Manager.Set(*snap)
	d.reloads++
	d.count("swapped")
	d.logger.Info(ctx, "content reloaded",
		"hash", truncHash(snap.Meta.SHA256),
		"posts", len(snap.Posts),
		"projects", len(snap.Projects),
	)
	runSwapHook(ctx, d.logger, d.opts.OnSwap, snap.Meta.SHA256, snap.Meta.Version)
}
