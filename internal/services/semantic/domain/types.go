// Package domain holds semantic classification types and ports
package domain

import (
	"context"

	"cancioneiro/internal/core/annotation"
	"cancioneiro/internal/core/taxonomy"
)

// DefaultFallbackConfidence is assigned to every word of a batch that could not be classified
const DefaultFallbackConfidence = 0.3

// DefaultBatchSize is the number of words sent per classifier call
const DefaultBatchSize = 25

// Item is one word queued for classification
type Item struct {
	Word  string
	Lemma string
	POS   annotation.POS
}

// ItemOf builds an Item from an annotated token
func ItemOf(t annotation.AnnotatedToken) Item {
	return Item{Word: t.Surface, Lemma: t.Lemma, POS: t.POS}
}

// Classification is the semantic domain assigned to a word
type Classification struct {
	Word         string          `json:"word"`
	Code         taxonomy.Code   `json:"code"`
	Alternates   []taxonomy.Code `json:"alternates,omitempty"`
	IsPolysemous bool            `json:"isPolysemous"`
	Confidence   float64         `json:"confidence"`
	// Fallback is set when the classifier output was unusable
	Fallback bool `json:"fallback,omitempty"`
}

// Repo persists classifications, write-once per word
type Repo interface {
	// Get returns the stored result, found=false on miss
	Get(ctx context.Context, word string) (Classification, bool, error)
	// GetMany returns stored results keyed by word
	GetMany(ctx context.Context, words []string) (map[string]Classification, error)
	// Put inserts when absent and reports whether a row was written
	Put(ctx context.Context, c Classification) (bool, error)
	// Delete removes a stored result
	Delete(ctx context.Context, word string) (bool, error)
}

// Completer is the chat transport the classifier talks to
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, system, user string) (string, error)
}

// Ports is what other modules consume
type Ports interface {
	Classify(ctx context.Context, items []Item) ([]Classification, error)
	Reprocess(ctx context.Context, items []Item) ([]Classification, error)
}
