package prof

import (
	"context"
	"strings"
	"testing"

	"github.com/timrodz/blog/internal/log"
)

func TestStart_Disabled(t *testing.T) {
	var states []bool
	ctx := log.WithContext(context.Background(), log.Nop())
	stop, err := Start(ctx, Options{
		Enabled:              false,
		BasicAuthPassword:    "secret",
		ProfileMutexFraction: 999,
		OnActive:             func(b bool) { states = append(states, b) },
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	stop()
	stop()
	if len(states) != 1 || states[0] {
		t.Fatalf("OnActive calls = %v, want [false]", states)
	}
}

func TestStart_NoLoggerInContext(t *testing.T) {
	stop, err := Start(context.Background(), Options{})
	if err != nil || stop == nil {
		t.Fatalf("Start: stop nil=%v, err=%v", stop == nil, err)
	}
	stop()
}

func TestStart_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"empty address", Options{Enabled: true, AppName: "blog"}, "invalid server address"},
		{"no scheme", Options{Enabled: true, AppName: "blog", ServerAddress: "pyroscope:4040"}, "invalid server address"},
		{"ftp", Options{Enabled: true, AppName: "blog", ServerAddress: "ftp://pyroscope"}, "invalid server address"},
		{"no app name", Options{Enabled: true, ServerAddress: "http://pyroscope:4040"}, "app name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var active *bool
			tt.opts.OnActive = func(b bool) { active = &b }

			stop, err := Start(context.Background(), tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
			if stop == nil {
				t.Fatal("stop must never be nil")
			}
			stop()
			stop()
			if active == nil || *active {
				t.Fatal("OnActive(false) not reported on invalid options")
			}
		})
	}
}
