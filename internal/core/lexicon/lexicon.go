// Package lexicon loads the embedded Portuguese lexicon used by the rule layer and the tokenizer.
// Closed sets are keyed by lowercased form; iteration order is deterministic for tests/debug
package lexicon

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cancioneiro/internal/core/annotation"
	"cancioneiro/internal/core/normalize"
)

//go:embed lexicon.json
var embedded []byte

type rawEntry struct {
	Form        string            `json:"form"`
	Text        string            `json:"text"`
	Lemma       string            `json:"lemma"`
	POS         string            `json:"pos"`
	Detail      string            `json:"detail"`
	Contraction string            `json:"contraction"`
	Features    map[string]string `json:"features"`
}

type rawSuffix struct {
	Suffix     string            `json:"suffix"`
	POS        string            `json:"pos"`
	Detail     string            `json:"detail"`
	Confidence float64           `json:"confidence"`
	Features   map[string]string `json:"features"`
}

type rawLexicon struct {
	Version      int                   `json:"version"`
	Meta         map[string]any        `json:"meta"`
	MWEs         []rawEntry            `json:"mwes"`
	Verbs        []rawEntry            `json:"verbs"`
	Pronouns     map[string][]rawEntry `json:"pronouns"`
	Determiners  []rawEntry            `json:"determiners"`
	Prepositions []rawEntry            `json:"prepositions"`
	Conjunctions map[string][]string   `json:"conjunctions"`
	Adverbs      []string              `json:"adverbs"`
	Numerals     []string              `json:"numerals"`
	Suffixes     []rawSuffix           `json:"suffixes"`
}

// Entry is one closed-set lookup result
type Entry struct {
	Form     string
	Lemma    string
	POS      annotation.POS
	Detail   string
	Features map[string]string
}

// Suffix is a morphology heuristic applied when no closed set matched
type Suffix struct {
	Suffix     string
	POS        annotation.POS
	Detail     string
	Confidence float64
	Features   map[string]string
}

// Table is a closed set keyed by lowercased form
type Table map[string]Entry

// Lookup returns the entry for a lowercased form
func (t Table) Lookup(form string) (Entry, bool) {
	e, ok := t[form]
	return e, ok
}

// Lexicon is the compiled lexicon
type Lexicon struct {
	Version int
	Meta    map[string]any

	// MWEs sorted by text, each is also present in MWETable
	MWEs     []Entry
	MWETable Table

	Verbs        Table
	Pronouns     Table // all pronoun classes, Detail names the class
	Determiners  Table
	Prepositions Table // contractions carry Features["Contraction"]
	Conjunctions Table
	Adverbs      Table
	Numerals     Table

	// Suffixes sorted longest first so "ções" wins over "ção"
	Suffixes []Suffix
}

// pronoun classes in lookup order
var pronounClasses = []string{"personal", "possessive", "demonstrative", "indefinite", "relative", "interrogative"}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
	defaultErr  error
)

// Default returns the process-wide compiled lexicon from the embedded json
func Default() (*Lexicon, error) {
	defaultOnce.Do(func() {
		defaultLex, defaultErr = Parse(embedded)
	})
	return defaultLex, defaultErr
}

// MustDefault panics when the embedded lexicon is broken
func MustDefault() *Lexicon {
	l, err := Default()
	if err != nil {
		panic(err)
	}
	return l
}

// Parse compiles a lexicon document
func Parse(data []byte) (*Lexicon, error) {
	var rl rawLexicon
	if err := json.Unmarshal(data, &rl); err != nil {
		return nil, fmt.Errorf("lexicon: parse: %w", err)
	}
	if rl.Version != 1 {
		return nil, fmt.Errorf("lexicon: unsupported version %d (want 1)", rl.Version)
	}

	l := &Lexicon{
		Version:      rl.Version,
		Meta:         rl.Meta,
		MWETable:     make(Table, len(rl.MWEs)),
		Verbs:        make(Table, len(rl.Verbs)),
		Pronouns:     make(Table, 128),
		Determiners:  make(Table, len(rl.Determiners)),
		Prepositions: make(Table, len(rl.Prepositions)),
		Conjunctions: make(Table, 32),
		Adverbs:      make(Table, len(rl.Adverbs)),
		Numerals:     make(Table, len(rl.Numerals)),
	}

	for _, m := range rl.MWEs {
		text := normalize.Word(m.Text)
		if !strings.ContainsAny(text, " -") {
			return nil, fmt.Errorf("lexicon: mwe %q is a single word", m.Text)
		}
		e := entryFrom(m, text, annotation.POS(""))
		l.MWEs = append(l.MWEs, e)
		l.MWETable[text] = e
	}

	if err := fill(l.Verbs, rl.Verbs, annotation.VERB); err != nil {
		return nil, err
	}
	for _, class := range pronounClasses {
		if err := fill(l.Pronouns, rl.Pronouns[class], annotation.PRON); err != nil {
			return nil, err
		}
	}
	if err := fill(l.Determiners, rl.Determiners, annotation.DET); err != nil {
		return nil, err
	}
	for _, p := range rl.Prepositions {
		if p.Contraction != "" {
			if p.Features == nil {
				p.Features = map[string]string{}
			}
			p.Features["Contraction"] = p.Contraction
		}
		if p.Detail == "" {
			p.Detail = "PREP"
		}
		if err := fill(l.Prepositions, []rawEntry{p}, annotation.ADP); err != nil {
			return nil, err
		}
	}
	words(l.Conjunctions, rl.Conjunctions["coordinating"], annotation.CCONJ, "CONJ_COORD")
	words(l.Conjunctions, rl.Conjunctions["subordinating"], annotation.SCONJ, "CONJ_SUB")
	words(l.Adverbs, rl.Adverbs, annotation.ADV, "ADV")
	words(l.Numerals, rl.Numerals, annotation.NUM, "NUM")

	for _, s := range rl.Suffixes {
		suf := normalize.Word(s.Suffix)
		if suf == "" {
			continue
		}
		if s.Confidence <= 0 || s.Confidence >= 1 {
			return nil, fmt.Errorf("lexicon: suffix %q confidence %v out of (0,1)", s.Suffix, s.Confidence)
		}
		l.Suffixes = append(l.Suffixes, Suffix{
			Suffix:     suf,
			POS:        annotation.ParsePOS(s.POS),
			Detail:     s.Detail,
			Confidence: s.Confidence,
			Features:   s.Features,
		})
	}

	// Deterministic iteration for tests/debug
	sort.Slice(l.MWEs, func(i, j int) bool { return l.MWEs[i].Form < l.MWEs[j].Form })
	sort.SliceStable(l.Suffixes, func(i, j int) bool {
		if len(l.Suffixes[i].Suffix) != len(l.Suffixes[j].Suffix) {
			return len(l.Suffixes[i].Suffix) > len(l.Suffixes[j].Suffix)
		}
		return l.Suffixes[i].Suffix < l.Suffixes[j].Suffix
	})

	return l, nil
}

// fill adds entries, first definition of a form wins
func fill(t Table, rows []rawEntry, def annotation.POS) error {
	for _, r := range rows {
		form := normalize.Word(r.Form)
		if form == "" {
			return fmt.Errorf("lexicon: empty form (lemma %q)", r.Lemma)
		}
		if _, dup := t[form]; dup {
			continue
		}
		t[form] = entryFrom(r, form, def)
	}
	return nil
}

func words(t Table, forms []string, pos annotation.POS, detail string) {
	for _, f := range forms {
		f = normalize.Word(f)
		if f == "" {
			continue
		}
		if _, dup := t[f]; dup {
			continue
		}
		t[f] = Entry{Form: f, Lemma: f, POS: pos, Detail: detail}
	}
}

func entryFrom(r rawEntry, form string, def annotation.POS) Entry {
	pos := def
	if r.POS != "" {
		pos = annotation.ParsePOS(r.POS)
	}
	lemma := normalize.Word(r.Lemma)
	if lemma == "" {
		lemma = form
	}
	return Entry{Form: form, Lemma: lemma, POS: pos, Detail: r.Detail, Features: r.Features}
}

// MWETexts returns the lowercased MWE patterns in deterministic order
func (l *Lexicon) MWETexts() []string {
	out := make([]string, len(l.MWEs))
	for i, e := range l.MWEs {
		out[i] = e.Form
	}
	return out
}

// Stats counts entries per table
func (l *Lexicon) Stats() map[string]int {
	return map[string]int{
		"mwes":         len(l.MWETable),
		"verbs":        len(l.Verbs),
		"pronouns":     len(l.Pronouns),
		"determiners":  len(l.Determiners),
		"prepositions": len(l.Prepositions),
		"conjunctions": len(l.Conjunctions),
		"adverbs":      len(l.Adverbs),
		"numerals":     len(l.Numerals),
		"suffixes":     len(l.Suffixes),
	}
}
