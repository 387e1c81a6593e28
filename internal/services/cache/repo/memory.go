package repo

import (
	"context"
	"sync"

	"cancioneiro/internal/core/annotation"
	"cancioneiro/internal/modkit/repokit"
	"cancioneiro/internal/services/cache/domain"
)

// Memory is a process local cache repo, used by the CLI and tests
type Memory struct {
	mu      sync.RWMutex
	entries map[domain.Key]annotation.AnnotatedToken
}

// NewMemory returns an empty in-memory repo
func NewMemory() *Memory {
	return &Memory{entries: make(map[domain.Key]annotation.AnnotatedToken)}
}

// Bind satisfies repokit.Binder; the queryer is ignored
func (m *Memory) Bind(repokit.Queryer) domain.Repo { return m }

// Get returns a deep copy of the stored snapshot
func (m *Memory) Get(_ context.Context, k domain.Key) (annotation.AnnotatedToken, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.entries[k]
	if !ok {
		return annotation.AnnotatedToken{}, false, nil
	}
	return t.Clone(), true, nil
}

// Put is insert-if-absent
func (m *Memory) Put(_ context.Context, k domain.Key, tok annotation.AnnotatedToken) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[k]; ok {
		return false, nil
	}
	snap := tok.Clone()
	if snap.Origin == "" || snap.Origin == annotation.SourceCache {
		snap.Origin = snap.Source
	}
	snap.Source = snap.Origin
	snap.Surface = k.Surface
	snap.Index = 0
	m.entries[k] = snap
	return true, nil
}

// Purge drops all entries of a surface
func (m *Memory) Purge(_ context.Context, surface string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.entries {
		if k.Surface == surface {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// Count returns the number of entries
func (m *Memory) Count(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries)), nil
}
