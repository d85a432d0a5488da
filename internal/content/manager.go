package content

import (
	"sync/atomic"
	"time"
)

// Manager holds the active Snapshot. Readers never block; a reload swaps
// the whole snapshot in one store.
type Manager struct {
	active atomic.Pointer[Snapshot]
}

func NewManager() *Manager { return &Manager{} }

// Set stores a copy of s as the active snapshot.
func (m *Manager) Set(s Snapshot) {
	cp := new(Snapshot)
	*cp = s
	if cp.LoadedAt.IsZero() {
		cp.LoadedAt = time.Now().UTC()
	}
	m.active.Store(cp)
}

// Get returns the active snapshot and whether one is usable.
func (m *Manager) Get() (*Snapshot, bool) {
	s := m.active.Load()
	return s, s != nil && s.FS != nil
}

// view applies f to the active snapshot, or returns T's zero value when
// nothing is loaded.
func view[T any](m *Manager, f func(*Snapshot) T) T {
	if s := m.active.Load(); s != nil {
		return f(s)
	}
	var zero T
	return zero
}

func (m *Manager) Post(slug string) (Post, bool) {
	if s, ok := m.Get(); ok {
		return s.Post(slug)
	}
	return Post{}, false
}

func (m *Manager) Project(slug string) (Project, bool) {
	if s, ok := m.Get(); ok {
		return s.Project(slug)
	}
	return Project{}, false
}

// ContentVersion prefers the bundle's provenance version.
func (m *Manager) ContentVersion() string {
	return view(m, func(s *Snapshot) string {
		if s.Provenance != nil && s.Provenance.Version != "" {
			return s.Provenance.Version
		}
		return s.Meta.Version
	})
}

// ContentHash is the digest the snapshot was loaded under, falling back to
// the manifest's tree hash.
func (m *Manager) ContentHash() string {
	return view(m, func(s *Snapshot) string {
		if s.Meta.SHA256 == "" && s.Provenance != nil {
			return s.Provenance.ContentHash
		}
		return s.Meta.SHA256
	})
}

func (m *Manager) Provenance() *Provenance {
	return view(m, func(s *Snapshot) *Provenance { return s.Provenance })
}

func (m *Manager) Source() Source {
	if src := view(m, func(s *Snapshot) Source { return s.Meta.Source }); src != "" {
		return src
	}
	return SourceUnknown
}

func (m *Manager) LoadedAt() time.Time {
	return view(m, func(s *Snapshot) time.Time { return s.LoadedAt })
}
