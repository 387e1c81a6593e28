// Package annotation holds the token and annotated token values shared by every layer
package annotation

import (
	"maps"
	"strings"
)

// POS is a coarse part-of-speech tag (Universal Dependencies inventory)
type POS string

// Coarse tags
const (
	NOUN  POS = "NOUN"
	VERB  POS = "VERB"
	AUX   POS = "AUX"
	ADJ   POS = "ADJ"
	ADV   POS = "ADV"
	PRON  POS = "PRON"
	DET   POS = "DET"
	ADP   POS = "ADP"
	CCONJ POS = "CCONJ"
	SCONJ POS = "SCONJ"
	NUM   POS = "NUM"
	PROPN POS = "PROPN"
	INTJ  POS = "INTJ"
	X     POS = "X" // unknown
)

var knownPOS = map[POS]struct{}{
	NOUN: {}, VERB: {}, AUX: {}, ADJ: {}, ADV: {}, PRON: {}, DET: {},
	ADP: {}, CCONJ: {}, SCONJ: {}, NUM: {}, PROPN: {}, INTJ: {}, X: {},
}

// ParsePOS maps an external tag onto the coarse set, unknown tags become X
func ParsePOS(s string) POS {
	p := POS(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := knownPOS[p]; ok {
		return p
	}
	switch p {
	case "CONJ":
		return CCONJ
	case "PREP":
		return ADP
	case "ART":
		return DET
	}
	return X
}

// ContentWord reports whether tokens with this tag are eligible for semantic domain classification
func (p POS) ContentWord() bool {
	switch p {
	case NOUN, VERB, ADJ, ADV, PROPN, X:
		return true
	}
	return false
}

// Feature keys, only present features are set
const (
	FeatTense  = "Tense"
	FeatNumber = "Number"
	FeatPerson = "Person"
	FeatGender = "Gender"
	FeatMood   = "Mood"
)

// Source names the layer that produced an annotation
type Source string

// Sources
const (
	SourceRule     Source = "rule-grammar"
	SourceExternal Source = "external-service"
	SourceLLM      Source = "llm-batch"
	SourceCache    Source = "cache"
)

// Valid reports whether s is one of the known sources
func (s Source) Valid() bool {
	switch s {
	case SourceRule, SourceExternal, SourceLLM, SourceCache:
		return true
	}
	return false
}

// Token is one surface unit with its inferred morphology
// values are never mutated after a layer returns them, use With* to derive a new one
type Token struct {
	Surface     string            `json:"surface"`
	Lemma       string            `json:"lemma"`
	POS         POS               `json:"pos"`
	PosDetailed string            `json:"pos_detailed,omitempty"`
	Features    map[string]string `json:"features,omitempty"`
	Index       int               `json:"index"`
}

// Clone returns a deep copy so callers never share the feature map
func (t Token) Clone() Token {
	out := t
	if t.Features != nil {
		out.Features = maps.Clone(t.Features)
	}
	return out
}

// AnnotatedToken is a token plus provenance and confidence
type AnnotatedToken struct {
	Token
	Source Source `json:"source"`
	// Origin is the layer that produced the annotation, equal to Source unless served from cache
	Origin     Source  `json:"origin"`
	Confidence float64 `json:"confidence"`
}

// Unresolved is the zero-confidence marker a layer returns when it has no answer
func Unresolved(surface string, index int) AnnotatedToken {
	return AnnotatedToken{
		Token:      Token{Surface: surface, Lemma: strings.ToLower(surface), POS: X, Index: index},
		Source:     SourceRule,
		Origin:     SourceRule,
		Confidence: 0,
	}
}

// Resolved reports whether a layer produced a usable tag
func (a AnnotatedToken) Resolved() bool {
	return a.POS != X && a.POS != "" && a.Confidence > 0
}

// Clone deep copies the annotated token
func (a AnnotatedToken) Clone() AnnotatedToken {
	out := a
	out.Token = a.Token.Clone()
	return out
}

// FromCache rewraps a stored snapshot, keeping the confidence of the original write
func (a AnnotatedToken) FromCache(index int) AnnotatedToken {
	out := a.Clone()
	if out.Origin == "" || out.Origin == SourceCache {
		out.Origin = a.Source
	}
	out.Source = SourceCache
	out.Index = index
	return out
}

// Clamp bounds a confidence into [0,1]
func Clamp(c float64) float64 {
	switch {
	case c != c: // NaN
		return 0
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
