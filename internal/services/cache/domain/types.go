// Package domain holds the annotation cache types and ports
package domain

import (
	"context"

	"cancioneiro/internal/core/annotation"
	"cancioneiro/internal/core/normalize"
)

// DefaultThreshold is the minimum confidence an annotation needs to be written
const DefaultThreshold = 0.95

// Key identifies a cache entry by surface form and its immediate neighbours
type Key struct {
	Surface string
	Left    string
	Right   string
}

// NewKey normalizes the three parts; surface keeps its case folding to lowercase too
// so "Fui" and "fui" in the same context share an entry
func NewKey(surface, left, right string) Key {
	return Key{
		Surface: normalize.Word(surface),
		Left:    normalize.Word(left),
		Right:   normalize.Word(right),
	}
}

// Entry is a stored snapshot
type Entry struct {
	Key   Key
	Token annotation.AnnotatedToken
}

// Repo is the persistence surface for cache entries
type Repo interface {
	// Get returns the stored snapshot, found=false on miss
	Get(ctx context.Context, k Key) (annotation.AnnotatedToken, bool, error)
	// Put inserts when absent and reports whether a row was written
	Put(ctx context.Context, k Key, tok annotation.AnnotatedToken) (bool, error)
	// Purge removes every entry for a surface form
	Purge(ctx context.Context, surface string) (int64, error)
	// Count returns the number of stored entries
	Count(ctx context.Context) (int64, error)
}

// Ports is what other modules consume
type Ports interface {
	Lookup(ctx context.Context, surface, left, right string) (annotation.AnnotatedToken, bool)
	Store(ctx context.Context, surface, left, right string, tok annotation.AnnotatedToken) error
	Purge(ctx context.Context, surface string) (int64, error)
}
