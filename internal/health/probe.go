package health

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/timrodz/blog/internal/xerrors"
)

// Probe is evaluated per request. A nil error means pass.
type Probe interface{ Check(context.Context) error }

// CheckFunc adapts a function into a Probe.
type CheckFunc func(context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// Fixed always passes, or always fails with reason.
func Fixed(ok bool, reason string) CheckFunc {
	if ok {
		return func(context.Context) error { return nil }
	}
	if reason == "" {
		reason = "unhealthy"
	}
	err := xerrors.New(reason)
	return func(context.Context) error { return err }
}

// Named prefixes p's failures with name, so a readiness body says which
// dependency is failing ("content: no snapshot loaded").
func Named(name string, p Probe) CheckFunc {
	return func(ctx context.Context) error {
		if p == nil {
			return nil
		}
		if err := p.Check(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
}

// All runs every non-nil probe and fails with all of their failures joined.
func All(ps ...Probe) CheckFunc {
	return func(ctx context.Context) error {
		var errs []error
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.Check(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// ShutdownGate fails readiness once shutdown begins. The zero value is open.
type ShutdownGate struct {
	reason atomic.Pointer[string]
}

// Set closes the gate. An empty reason reports "draining".
func (g *ShutdownGate) Set(reason string) {
	if reason == "" {
		reason = "draining"
	}
	g.reason.Store(&reason)
}

// Clear reopens the gate.
func (g *ShutdownGate) Clear() { g.reason.Store(nil) }

func (g *ShutdownGate) Draining() bool { return g.reason.Load() != nil }

func (g *ShutdownGate) Probe() CheckFunc {
	return func(context.Context) error {
		if r := g.reason.Load(); r != nil {
			return errors.New(*r)
		}
		return nil
	}
}
