// Package service runs tokens through the cache and the three annotation layers in order of cost
package service

import (
	"context"
	"strings"

	"cancioneiro/internal/core/annotation"
	"cancioneiro/internal/core/grammar"
	"cancioneiro/internal/core/normalize"
	"cancioneiro/internal/core/tokenize"
	"cancioneiro/internal/platform/logger"
	cachedomain "cancioneiro/internal/services/cache/domain"
	"cancioneiro/internal/services/pipeline/domain"
	semdomain "cancioneiro/internal/services/semantic/domain"
)

// Deps are the collaborators of the pipeline
type Deps struct {
	Tokenizer *tokenize.Tokenizer
	Grammar   *grammar.Annotator
	Cache     cachedomain.Ports
	// External is Layer 2, nil skips it
	External *External
	// Semantic is Layer 3, nil skips it
	Semantic semdomain.Ports
}

// Service is the layered annotator
type Service struct {
	tok   *tokenize.Tokenizer
	gram  *grammar.Annotator
	cache cachedomain.Ports
	ext   *External
	sem   semdomain.Ports
}

var _ domain.Ports = (*Service)(nil)

// New wires the pipeline
func New(d Deps) *Service {
	if d.Tokenizer == nil || d.Grammar == nil || d.Cache == nil {
		panic("pipeline.Service requires Tokenizer, Grammar and Cache")
	}
	ext := d.External
	if ext == nil {
		ext = NewExternal(nil)
	}
	return &Service{tok: d.Tokenizer, gram: d.Grammar, cache: d.Cache, ext: ext, sem: d.Semantic}
}

// WithoutSemantic returns a copy that stops after Layer 2
func (s *Service) WithoutSemantic() *Service {
	cp := *s
	cp.sem = nil
	return &cp
}

// Tokenize normalizes and splits text with the shared tokenizer
func (s *Service) Tokenize(text string) []tokenize.Token { return s.tok.Tokenize(text) }

// Annotate tokenizes text and annotates every token
func (s *Service) Annotate(ctx context.Context, text string) (domain.Result, error) {
	norm := normalize.Text(text)
	toks := s.tok.Split(norm)
	return s.AnnotateRange(ctx, toks, 0, len(toks), norm)
}

// AnnotateRange annotates toks[from:to]. Neighbours outside the range still count as context.
// Only persistence errors are returned; Layer 2 and 3 failures degrade in place
func (s *Service) AnnotateRange(ctx context.Context, toks []tokenize.Token, from, to int, fullText string) (domain.Result, error) {
	res, err := s.AnnotateSegments(ctx, []domain.Segment{{Tokens: toks, From: from, To: to, Text: fullText}})
	if err != nil {
		return domain.Result{}, err
	}
	return res[0], nil
}

// pendingRef locates a word of a segment and keeps its cache key context
type pendingRef struct {
	seg, word   int
	left, right string
}

// AnnotateSegments resolves every segment through the cache and Layer 1, then sends
// what is left to Layer 2 in one request and the content words to Layer 3 in one pass,
// so batching and the classifier delay span the whole set of segments
func (s *Service) AnnotateSegments(ctx context.Context, segs []domain.Segment) ([]domain.Result, error) {
	var (
		words   = make([][]domain.Word, len(segs))
		pending []pendingRef
		texts   []string
	)

	for si, sg := range segs {
		from, to := max(sg.From, 0), min(sg.To, len(sg.Tokens))
		if from >= to {
			continue
		}
		ws := make([]domain.Word, 0, to-from)
		open := len(pending)
		for i := from; i < to; i++ {
			t := sg.Tokens[i]
			left, right := tokenize.Context(sg.Tokens, i)

			if hit, ok := s.cache.Lookup(ctx, t.Surface, left, right); ok {
				hit.Index = t.Index
				ws = append(ws, domain.Word{AnnotatedToken: hit})
				continue
			}

			at := s.gram.Annotate(t.Annotation(), left, right)
			if at.Resolved() {
				if err := s.cache.Store(ctx, t.Surface, left, right, at); err != nil {
					return nil, err
				}
			} else {
				pending = append(pending, pendingRef{seg: si, word: len(ws), left: left, right: right})
			}
			ws = append(ws, domain.Word{AnnotatedToken: at})
		}
		words[si] = ws
		// segments cut from one song share a text
		if len(pending) > open && (len(texts) == 0 || texts[len(texts)-1] != sg.Text) {
			texts = append(texts, sg.Text)
		}
	}

	if len(pending) > 0 {
		if err := s.external(ctx, words, pending, strings.Join(texts, "\n")); err != nil {
			return nil, err
		}
	}

	if s.sem != nil {
		if err := s.classify(ctx, words); err != nil {
			return nil, err
		}
	}

	out := make([]domain.Result, len(segs))
	var total domain.Stats
	for i, ws := range words {
		out[i] = domain.Result{Words: ws, Stats: tally(ws)}
		total.Add(out[i].Stats)
	}
	logger.C(ctx).Debug().
		Int("segments", len(segs)).
		Int("tokens", total.Tokens).
		Int("cached", total.Cached).
		Int("external", total.External).
		Int("unresolved", total.Unresolved).
		Int("classified", total.Classified).
		Msg("pipeline run")
	return out, nil
}

// external sends the unresolved words to Layer 2 as one batch and caches what it resolved
func (s *Service) external(ctx context.Context, words [][]domain.Word, pending []pendingRef, fullText string) error {
	batch := make([]annotation.AnnotatedToken, len(pending))
	for j, p := range pending {
		batch[j] = words[p.seg][p.word].AnnotatedToken
	}
	got := s.ext.Annotate(ctx, batch, fullText)
	for j, p := range pending {
		words[p.seg][p.word].AnnotatedToken = got[j]
		if got[j].Source != annotation.SourceExternal {
			continue
		}
		if err := s.cache.Store(ctx, got[j].Surface, p.left, p.right, got[j]); err != nil {
			return err
		}
	}
	return nil
}

// classify sends the content words of every segment to Layer 3 in one call and attaches the result in place
func (s *Service) classify(ctx context.Context, words [][]domain.Word) error {
	type at struct{ seg, word int }
	var (
		idx   []at
		items []semdomain.Item
	)
	for si, ws := range words {
		for i, w := range ws {
			if w.POS.ContentWord() {
				idx = append(idx, at{si, i})
				items = append(items, semdomain.ItemOf(w.AnnotatedToken))
			}
		}
	}
	if len(items) == 0 {
		return nil
	}
	got, err := s.sem.Classify(ctx, items)
	if err != nil {
		return err
	}
	for j, p := range idx {
		c := got[j]
		words[p.seg][p.word].Domain = &c
	}
	return nil
}

func tally(words []domain.Word) domain.Stats {
	st := domain.Stats{Tokens: len(words)}
	for _, w := range words {
		switch {
		case w.Source == annotation.SourceCache:
			st.Cached++
		case !w.Resolved():
			st.Unresolved++
		case w.Source == annotation.SourceExternal:
			st.External++
		default:
			st.Rule++
		}
		if w.Domain != nil {
			if w.Domain.Fallback {
				st.Fallback++
			} else {
				st.Classified++
			}
		}
	}
	return st
}
