// Package prof runs continuous profiling against a Pyroscope server.
package prof

import (
	"context"
	"net/url"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"

	"github.com/timrodz/blog/internal/log"
	"github.com/timrodz/blog/internal/xerrors"
)

type Options struct {
	Enabled       bool
	AppName       string
	ServerAddress string
	// BasicAuthUser and BasicAuthPassword are used with hosted Pyroscope.
	BasicAuthUser        string
	BasicAuthPassword    string
	TenantID             string
	Tags                 map[string]string
	ProfileMutexFraction int
	BlockProfileRate     int

	// OnActive reports whether the profiler is running, for the
	// profiling_active gauge.
	OnActive func(bool)
}

func (o Options) validate() error {
	if o.ServerAddress == "" {
		return xerrors.Newf("invalid server address (%q)", o.ServerAddress)
	}
	u, err := url.Parse(o.ServerAddress)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return xerrors.Newf("invalid server address (%q)", o.ServerAddress)
	}
	if o.AppName == "" {
		return xerrors.New("pyroscope app name is required")
	}
	return nil
}

// Start begins profiling when enabled. The returned stop func is never nil
// and may be called any number of times.
func Start(ctx context.Context, opts Options) (func(), error) {
	L := log.FromContext(ctx)
	active := func(b bool) {
		if opts.OnActive != nil {
			opts.OnActive(b)
		}
	}
	noop := func() {}

	if !opts.Enabled {
		L.Info(ctx, "pyroscope disabled")
		active(false)
		return noop, nil
	}

	if err := opts.validate(); err != nil {
		L.Error(ctx, err, "pyroscope options")
		active(false)
		return noop, err
	}

	if opts.ProfileMutexFraction > 0 {
		runtime.SetMutexProfileFraction(opts.ProfileMutexFraction)
	}
	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}

	cfg := pyroscope.Config{
		ApplicationName:   opts.AppName,
		ServerAddress:     opts.ServerAddress,
		BasicAuthUser:     opts.BasicAuthUser,
		BasicAuthPassword: opts.BasicAuthPassword,
		TenantID:          opts.TenantID,
		Tags:              opts.Tags,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount,
			pyroscope.ProfileBlockDuration,
		},
	}

	profiler, err := pyroscope.Start(cfg)
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed",
			"server_address", opts.ServerAddress,
			"app_name", opts.AppName,
		)
		active(false)
		return noop, xerrors.Wrap(err, "start pyroscope")
	}

	L.Info(ctx, "pyroscope started",
		"server_address", opts.ServerAddress,
		"app_name", opts.AppName,
	)
	active(true)

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := profiler.Stop(); err != nil {
				L.Warn(context.Background(), "pyroscope stop", "err", err)
			}
			active(false)
			L.Info(context.Background(), "pyroscope stopped", "app_name", opts.AppName)
		})
	}, nil
}
