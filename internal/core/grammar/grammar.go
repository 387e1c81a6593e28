// Package grammar is the rule-based first layer: closed-set lookups and suffix heuristics.
// Every branch assigns a fixed confidence, nothing is derived from data
package grammar

import (
	"maps"
	"strings"
	"unicode"

	"cancioneiro/internal/core/annotation"
	"cancioneiro/internal/core/lexicon"
	"cancioneiro/internal/core/normalize"
)

// Fixed confidences per branch
const (
	ConfClosedSet = 1.0
	ConfUnknown   = 0.0
)

// Rule names the branch that resolved a token, useful for debugging and tests
type Rule string

// Rules in resolution order
const (
	RuleMWE         Rule = "mwe"
	RuleVerb        Rule = "irregular_verb"
	RulePronoun     Rule = "pronoun"
	RuleDeterminer  Rule = "determiner"
	RulePreposition Rule = "preposition"
	RuleConjunction Rule = "conjunction"
	RuleAdverb      Rule = "adverb"
	RuleNumeral     Rule = "numeral"
	RuleSuffix      Rule = "suffix"
	RuleUnresolved  Rule = "unresolved"
)

type step struct {
	rule  Rule
	table lexicon.Table
}

// Annotator resolves tokens against a compiled lexicon, safe for concurrent use
type Annotator struct {
	lex   *lexicon.Lexicon
	steps []step
}

// New builds an annotator over l
func New(l *lexicon.Lexicon) *Annotator {
	return &Annotator{
		lex: l,
		steps: []step{
			{RuleMWE, l.MWETable},
			{RuleVerb, l.Verbs},
			{RulePronoun, l.Pronouns},
			{RuleDeterminer, l.Determiners},
			{RulePreposition, l.Prepositions},
			{RuleConjunction, l.Conjunctions},
			{RuleAdverb, l.Adverbs},
			{RuleNumeral, l.Numerals},
		},
	}
}

// Annotate resolves one token. Context is accepted for interface symmetry with the other layers;
// the closed sets are context free
func (a *Annotator) Annotate(tok annotation.Token, left, right string) annotation.AnnotatedToken {
	at, _ := a.Explain(tok, left, right)
	return at
}

// Explain is Annotate plus the rule that fired
func (a *Annotator) Explain(tok annotation.Token, _, _ string) (annotation.AnnotatedToken, Rule) {
	form := normalize.Word(tok.Surface)
	if form == "" {
		return annotation.Unresolved(tok.Surface, tok.Index), RuleUnresolved
	}

	for _, s := range a.steps {
		if e, ok := s.table.Lookup(form); ok {
			return resolved(tok, e.Lemma, e.POS, e.Detail, e.Features, ConfClosedSet), s.rule
		}
	}

	if isNumeric(form) {
		return resolved(tok, form, annotation.NUM, "NUM_DIGIT", nil, ConfClosedSet), RuleNumeral
	}

	for _, sf := range a.lex.Suffixes {
		// the stem must keep at least two runes so "ção" alone is not a noun
		if strings.HasSuffix(form, sf.Suffix) && len([]rune(form))-len([]rune(sf.Suffix)) >= 2 {
			return resolved(tok, form, sf.POS, sf.Detail, sf.Features, sf.Confidence), RuleSuffix
		}
	}

	u := annotation.Unresolved(tok.Surface, tok.Index)
	u.Lemma = form
	return u, RuleUnresolved
}

// Classify is the chain shape: the annotation plus whether it clears minConfidence
func (a *Annotator) Classify(tok annotation.Token, left, right string, minConfidence float64) (annotation.AnnotatedToken, bool) {
	at := a.Annotate(tok, left, right)
	return at, at.Resolved() && at.Confidence >= minConfidence
}

func resolved(tok annotation.Token, lemma string, pos annotation.POS, detail string, feats map[string]string, conf float64) annotation.AnnotatedToken {
	out := tok.Clone()
	out.Lemma = lemma
	out.POS = pos
	out.PosDetailed = detail
	out.Features = nil
	if len(feats) > 0 {
		out.Features = maps.Clone(feats)
	}
	return annotation.AnnotatedToken{
		Token:      out,
		Source:     annotation.SourceRule,
		Origin:     annotation.SourceRule,
		Confidence: conf,
	}
}

func isNumeric(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.' || r == ',' || r == 'º' || r == 'ª':
		default:
			return false
		}
	}
	return digits > 0
}
