package opshttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/timrodz/blog/internal/health"
	"github.com/timrodz/blog/internal/log"
)

// test helpers

func getFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp4", ":0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func startOps(t *testing.T, opts *Options) (int, func(context.Context) error) {
	t.Helper()
	if opts.Port == 0 {
		opts.Port = getFreePort(t)
	}
	stop, err := Start(context.Background(), log.Nop(), opts)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = stop(context.Background()) })
	return opts.Port, stop
}

func opsGet(t *testing.T, port int, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d%s", port, path))
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

// local requests through the handler, no listener

func serveLocal(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	req.RemoteAddr = "127.0.0.1:40000"
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewHandler_Probes(t *testing.T) {
	var gate health.ShutdownGate
	h := NewHandler(log.Nop(), &Options{
		Health:    health.Fixed(true, ""),
		Readiness: health.All(gate.Probe(), health.Fixed(true, "")),
	})

	if rec := serveLocal(h, "/-/healthy"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("healthy = %d %q", rec.Code, rec.Body.String())
	}
	if rec := serveLocal(h, "/-/ready"); rec.Code != http.StatusOK {
		t.Fatalf("ready = %d", rec.Code)
	}

	gate.Set("shutting down")
	rec := serveLocal(h, "/-/ready")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "shutting down") {
		t.Fatalf("draining ready = %d %q", rec.Code, rec.Body.String())
	}
}

func TestNewHandler_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("blog_up 1\n"))
	})
	if rec := serveLocal(NewHandler(log.Nop(), &Options{Metrics: metrics}), "/metrics"); !strings.Contains(rec.Body.String(), "blog_up 1") {
		t.Fatalf("metrics body = %q", rec.Body.String())
	}
	if rec := serveLocal(NewHandler(log.Nop(), &Options{}), "/metrics"); rec.Code != http.StatusNotFound {
		t.Fatalf("metrics without handler = %d, want 404", rec.Code)
	}
}

func TestNewHandler_Pprof(t *testing.T) {
	if rec := serveLocal(NewHandler(log.Nop(), &Options{EnablePprof: true}), "/debug/pprof/"); rec.Code != http.StatusOK {
		t.Fatalf("pprof enabled = %d", rec.Code)
	}
	if rec := serveLocal(NewHandler(log.Nop(), &Options{}), "/debug/pprof/"); rec.Code != http.StatusNotFound {
		t.Fatalf("pprof disabled = %d, want 404", rec.Code)
	}
}

func TestNewHandler_RecoverMW(t *testing.T) {
	var panics int
	boom := health.CheckFunc(func(context.Context) error { panic("probe exploded") })
	h := NewHandler(log.Nop(), &Options{Health: boom, UseRecoverMW: true, OnPanic: func() { panics++ }})
	if rec := serveLocal(h, "/-/healthy"); rec.Code != http.StatusInternalServerError || panics != 1 {
		t.Fatalf("status = %d panics = %d", rec.Code, panics)
	}
}

// requireNonPublicNetwork

func TestRequireNonPublicNetwork(t *testing.T) {
	tests := []struct {
		addr string
		want int
	}{
		{"127.0.0.1:12345", http.StatusOK},
		{"[::1]:12345", http.StatusOK},
		{"10.0.0.1:8080", http.StatusOK},
		{"172.16.0.1:8080", http.StatusOK},
		{"192.168.1.1:8080", http.StatusOK},
		{"169.254.1.1:8080", http.StatusOK},
		{"[::ffff:10.0.0.1]:80", http.StatusOK},
		{"8.8.8.8:12345", http.StatusForbidden},
		{"203.0.113.1:80", http.StatusForbidden},
		{"[::ffff:8.8.8.8]:80", http.StatusForbidden},
		{"[2001:4860::8888]:80", http.StatusForbidden},
		{"not-an-ip:80", http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := requireNonPublicNetwork(log.Nop(), inner)

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/-/healthy", http.NoBody)
			req.RemoteAddr = tt.addr
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// Start - lifecycle

func TestStart_ServesAndStops(t *testing.T) {
	port, stop := startOps(t, &Options{Health: health.Fixed(true, "")})

	if code, body := opsGet(t, port, "/-/healthy"); code != http.StatusOK || !strings.Contains(body, "ok") {
		t.Fatalf("healthy = %d %q", code, body)
	}

	if err := stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if _, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/-/healthy", port)); err == nil {
		t.Fatal("server still answering after stop")
	}
}

func TestStart_PortConflict(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	_, err = Start(context.Background(), log.Nop(), &Options{Port: ln.Addr().(*net.TCPAddr).Port})
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("err = %v, want a listen error", err)
	}
}
