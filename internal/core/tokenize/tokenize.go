// Package tokenize splits text into surface tokens, keeping multi-word expressions as one token.
// MWE spans are detected first over the lowercased text, then the gaps between spans are split
// on non-word runes. Output is a pure function of the input text and the pattern set
package tokenize

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"cancioneiro/internal/core/annotation"
	"cancioneiro/internal/core/lexicon"
	"cancioneiro/internal/core/normalize"
)

// Span is an accepted MWE occurrence, [Start,End) byte offsets into the normalized text
type Span struct {
	Start int
	End   int
	Entry string // lowercased pattern
}

// Token is one surface unit with its position in the normalized text
type Token struct {
	Surface string
	Start   int
	End     int
	Index   int
	MWE     bool
}

// Annotation converts to the shared token value
func (t Token) Annotation() annotation.Token {
	return annotation.Token{Surface: t.Surface, Index: t.Index}
}

// Tokenizer holds the compiled MWE dictionary, safe for concurrent use after New
type Tokenizer struct {
	ac       *acAutomaton
	patterns []string // id -> pattern
}

// New compiles a tokenizer; patterns are lowercased, deduped and sorted
func New(patterns []string) *Tokenizer {
	uniq := make(map[string]struct{}, len(patterns))
	list := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = normalize.Word(p)
		if p == "" {
			continue
		}
		if _, ok := uniq[p]; ok {
			continue
		}
		uniq[p] = struct{}{}
		list = append(list, p)
	}
	sort.Strings(list)

	ac := newAutomaton()
	for _, p := range list {
		ac.add([]byte(p))
	}
	ac.build()
	return &Tokenizer{ac: ac, patterns: list}
}

// FromLexicon compiles the MWE dictionary of l
func FromLexicon(l *lexicon.Lexicon) *Tokenizer { return New(l.MWETexts()) }

// Patterns returns the compiled pattern set
func (t *Tokenizer) Patterns() []string {
	out := make([]string, len(t.patterns))
	copy(out, t.patterns)
	return out
}

// Tokenize normalizes raw and returns tokens in text order
func (t *Tokenizer) Tokenize(raw string) []Token {
	return t.Split(normalize.Text(raw))
}

// Split tokenizes already normalized text
func (t *Tokenizer) Split(text string) []Token {
	spans := t.Spans(text)
	out := make([]Token, 0, len(text)/5+len(spans))

	pos := 0
	for _, sp := range spans {
		out = appendWords(out, text, pos, sp.Start)
		out = append(out, Token{Surface: text[sp.Start:sp.End], Start: sp.Start, End: sp.End, MWE: true})
		pos = sp.End
	}
	out = appendWords(out, text, pos, len(text))

	for i := range out {
		out[i].Index = i
	}
	return out
}

// Spans returns non-overlapping MWE spans sorted by start.
// Overlaps resolve longest first, ties to the earliest start
func (t *Tokenizer) Spans(text string) []Span {
	if len(t.patterns) == 0 || text == "" {
		return nil
	}
	low := lowerAligned(text)

	type cand struct{ start, end, id int }
	var cands []cand
	t.ac.each([]byte(low), func(start, end, id int) {
		if onBoundary(low, start, end) {
			cands = append(cands, cand{start, end, id})
		}
	})
	if len(cands) == 0 {
		return nil
	}

	sort.Slice(cands, func(i, j int) bool {
		li, lj := cands[i].end-cands[i].start, cands[j].end-cands[j].start
		if li != lj {
			return li > lj
		}
		return cands[i].start < cands[j].start
	})

	var acc []Span
	for _, c := range cands {
		clash := false
		for _, s := range acc {
			if c.start < s.End && s.Start < c.end {
				clash = true
				break
			}
		}
		if !clash {
			acc = append(acc, Span{Start: c.start, End: c.end, Entry: t.patterns[c.id]})
		}
	}
	sort.Slice(acc, func(i, j int) bool { return acc[i].Start < acc[j].Start })
	return acc
}

// Context returns the lowercased neighbours of tokens[i], empty at the edges
func Context(tokens []Token, i int) (left, right string) {
	if i > 0 && i-1 < len(tokens) {
		left = normalize.Word(tokens[i-1].Surface)
	}
	if i+1 < len(tokens) && i >= 0 {
		right = normalize.Word(tokens[i+1].Surface)
	}
	return left, right
}

// Surfaces is a convenience for logging and the external service payload
func Surfaces(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Surface
	}
	return out
}

// appendWords splits text[from:to] into word tokens
func appendWords(out []Token, text string, from, to int) []Token {
	start := -1
	i := from
	for i < to {
		r, sz := utf8.DecodeRuneInString(text[i:])
		word := isWord(r)
		if !word && start >= 0 && isJoiner(r) {
			// apostrophe or hyphen stays inside a word when letters sit on both sides
			prev, _ := utf8.DecodeLastRuneInString(text[:i])
			next, _ := utf8.DecodeRuneInString(text[i+sz : to])
			if i+sz < to && unicode.IsLetter(prev) && unicode.IsLetter(next) {
				word = true
			}
		}
		switch {
		case word && start < 0:
			start = i
		case !word && start >= 0:
			out = append(out, Token{Surface: text[start:i], Start: start, End: i})
			start = -1
		}
		i += sz
	}
	if start >= 0 {
		out = append(out, Token{Surface: text[start:to], Start: start, End: to})
	}
	return out
}

// lowerAligned lowercases rune by rune, keeping a rune as is when its lowercase form has a different width.
// Offsets into the result are valid offsets into s
func lowerAligned(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, sz := utf8.DecodeRuneInString(s[i:])
		if l := unicode.ToLower(r); l != r && utf8.RuneLen(l) == sz {
			b.WriteRune(l)
		} else {
			b.WriteString(s[i : i+sz])
		}
		i += sz
	}
	return b.String()
}

// onBoundary reports whether [start,end) is delimited by non-word runes
func onBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWord(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWord(r) {
			return false
		}
	}
	return true
}

// isWord reports whether r is a word character: letters, numbers,
// combining marks (Mn), and connector punctuation (Pc, e.g. underscore)
func isWord(r rune) bool {
	if r == utf8.RuneError || r == 0 {
		return false
	}
	return unicode.IsLetter(r) ||
		unicode.IsNumber(r) ||
		unicode.In(r, unicode.Mn, unicode.Pc)
}

func isJoiner(r rune) bool { return r == '\'' || r == '-' }
