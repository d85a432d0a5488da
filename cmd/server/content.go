package main

import (
	"context"
	"errors"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"golang.org/x/sync/errgroup"

	"github.com/timrodz/blog/internal/cfg"
	"github.com/timrodz/blog/internal/content"
	"github.com/timrodz/blog/internal/cryptoutil"
	"github.com/timrodz/blog/internal/log"
	"github.com/timrodz/blog/internal/metrics"
	"github.com/timrodz/blog/internal/webassets"
	"github.com/timrodz/blog/internal/xerrors"
)

// contentState mirrors the manager's active snapshot into the content gauges.
func contentState(mgr *content.Manager) metrics.ContentState {
	st := metrics.ContentState{
		Source:   string(mgr.Source()),
		SHA256:   mgr.ContentHash(),
		Version:  mgr.ContentVersion(),
		LoadedAt: mgr.LoadedAt(),
	}
	if snap, ok := mgr.Get(); ok {
		st.Posts = len(snap.Posts)
		st.Projects = len(snap.Projects)
	}
	return st
}

// seedContent loads the embedded seed tree so the site renders something
// before the configured source is read.
func seedContent(ctx context.Context, L log.Logger, conf cfg.App, mgr *content.Manager) {
	seedFS, ok := webassets.SeedFS()
	if !ok {
		L.Info(ctx, "no seed content embedded")
		return
	}
	loader := &content.DiskLoader{FS: seedFS, Source: content.SourceSeed, Location: conf.Location(), Logger: L}
	snap, err := loader.Load(ctx)
	if err != nil {
		L.Error(ctx, err, "seed content failed to load")
		return
	}
	snap.Meta.Version = "seed"
	mgr.Set(*snap)
	L.Info(ctx, "loaded seed content", "posts", len(snap.Posts), "projects", len(snap.Projects))
}

// setupContent loads the configured source into mgr and adds any watcher to g.
func setupContent(ctx context.Context, g *errgroup.Group, L log.Logger, conf cfg.App, mgr *content.Manager, m *metrics.ServerMetrics) error {
	onSwap := func(hash, version string) {
		m.SetContent(contentState(mgr))
	}

	switch conf.ContentSource {
	case cfg.ContentSourceDisk:
		return setupDiskContent(ctx, g, L, conf, mgr, m, onSwap)
	case cfg.ContentSourceS3:
		return setupS3Content(ctx, g, L, conf, mgr, m, onSwap)
	default:
		return xerrors.Newf("unknown content source %q", conf.ContentSource)
	}
}

func setupDiskContent(ctx context.Context, g *errgroup.Group, L log.Logger, conf cfg.App, mgr *content.Manager, m *metrics.ServerMetrics, onSwap func(string, string)) error {
	loader := &content.DiskLoader{Root: conf.ContentDir, Location: conf.Location(), Logger: L}
	snap, err := loader.Load(ctx)
	if err != nil {
		// a broken local tree is an operator error, fail loudly
		return xerrors.Wrapf(err, "load content from %s", conf.ContentDir)
	}
	mgr.Set(*snap)
	L.Info(ctx, "loaded content from disk",
		"content_dir", conf.ContentDir,
		"content_hash", mgr.ContentHash(),
		"posts", len(snap.Posts),
		"projects", len(snap.Projects),
	)

	if !conf.WatchContent {
		return nil
	}
	dw, err := content.NewDirWatcher(content.DirWatcherOptions{
		Logger:  L,
		Root:    conf.ContentDir,
		Loader:  loader,
		Manager: mgr,
		Metrics: m,
		OnSwap:  onSwap,
	})
	if err != nil {
		return xerrors.Wrap(err, "watch content dir")
	}
	g.Go(func() error { return ignoreCanceled(dw.Run(ctx)) })
	return nil
}

func setupS3Content(ctx context.Context, g *errgroup.Group, L log.Logger, conf cfg.App, mgr *content.Manager, m *metrics.ServerMetrics, onSwap func(string, string)) error {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return xerrors.Wrap(err, "load aws config")
	}

	var verifier cryptoutil.Verifier
	switch {
	case conf.ContentSigningKeyARN != "":
		verifier = cryptoutil.NewKMSVerifier(kms.NewFromConfig(awsCfg), conf.ContentSigningKeyARN)
	case conf.ContentPublicKeyPath != "":
		pem, err := os.ReadFile(conf.ContentPublicKeyPath)
		if err != nil {
			return xerrors.Wrap(err, "read content public key")
		}
		kv, err := cryptoutil.ParsePEMVerifier(pem)
		if err != nil {
			return err
		}
		verifier = kv
	default:
		L.Warn(ctx, "content bundle signatures are not verified")
	}

	loader, err := content.NewBundleLoader(content.BundleLoaderOptions{
		Logger:   L,
		SSMParam: conf.ContentSSMParam,
		S3Bucket: conf.ContentS3Bucket,
		S3Prefix: conf.ContentS3Prefix,
		S3:       s3.NewFromConfig(awsCfg),
		SSM:      ssm.NewFromConfig(awsCfg),
		Verifier: verifier,
		Location: conf.Location(),
	})
	if err != nil {
		return err
	}

	// a failed first fetch keeps the seed; the watcher retries
	if snap, err := loader.Load(ctx); err != nil {
		m.IncWatcherError("load")
		L.Error(ctx, err, "initial content bundle load failed, serving seed content")
	} else if err := content.ValidateSnapshot(snap, content.DefaultValidationOptions()); err != nil {
		m.IncWatcherError("validation")
		L.Error(ctx, err, "initial content bundle rejected, serving seed content", "content_hash", snap.Meta.SHA256)
	} else {
		mgr.Set(*snap)
		L.Info(ctx, "loaded content bundle from s3",
			"content_hash", mgr.ContentHash(),
			"content_version", mgr.ContentVersion(),
			"signed", snap.Meta.Signed,
		)
	}

	if !conf.WatchContent {
		return nil
	}
	w := content.NewWatcher(content.WatcherOptions{
		Logger:         L,
		Loader:         loader,
		Manager:        mgr,
		PollInterval:   conf.ContentPollInterval,
		StaleThreshold: conf.ContentStaleThreshold,
		Metrics:        m,
		OnSwap:         onSwap,
	})
	g.Go(func() error { return ignoreCanceled(w.Run(ctx)) })
	return nil
}

func ignoreCanceled(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
