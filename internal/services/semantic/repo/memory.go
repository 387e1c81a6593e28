package repo

import (
	"context"
	"slices"
	"sync"

	"cancioneiro/internal/modkit/repokit"
	"cancioneiro/internal/services/semantic/domain"
)

// Memory is an in-process domain.Repo
type Memory struct {
	mu   sync.RWMutex
	rows map[string]domain.Classification
}

// NewMemory returns an empty store
func NewMemory() *Memory { return &Memory{rows: map[string]domain.Classification{}} }

// Bind lets Memory stand in where a binder is expected
func (m *Memory) Bind(repokit.Queryer) domain.Repo { return m }

func (m *Memory) Get(_ context.Context, word string) (domain.Classification, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.rows[word]
	return clone(c), ok, nil
}

func (m *Memory) GetMany(_ context.Context, words []string) (map[string]domain.Classification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.Classification, len(words))
	for _, w := range words {
		if c, ok := m.rows[w]; ok {
			out[w] = clone(c)
		}
	}
	return out, nil
}

func (m *Memory) Put(_ context.Context, c domain.Classification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[c.Word]; ok {
		return false, nil
	}
	c = clone(c)
	c.Fallback = false
	m.rows[c.Word] = c
	return true, nil
}

func (m *Memory) Delete(_ context.Context, word string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[word]
	delete(m.rows, word)
	return ok, nil
}

// Len returns the number of stored rows
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

func clone(c domain.Classification) domain.Classification {
	c.Alternates = slices.Clone(c.Alternates)
	return c
}
