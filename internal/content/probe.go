package content

import (
	"context"
	"errors"
)

var errNoSnapshot = errors.New("content: no active snapshot")

// ReadyErr returns an error if there is no active snapshot.
func (m *Manager) ReadyErr() error {
	if _, ok := m.Get(); !ok {
		return errNoSnapshot
	}
	return nil
}

// Check adapts ReadyErr to a readiness probe.
func (m *Manager) Check(context.Context) error { return m.ReadyErr() }
