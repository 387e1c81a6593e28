package lexicon

import (
	"testing"

	"cancioneiro/internal/core/annotation"
)

func TestDefault_Loads(t *testing.T) {
	t.Parallel()

	l, err := Default()
	if err != nil {
		t.Fatalf("Default(): %v", err)
	}
	if l.Version != 1 {
		t.Fatalf("version = %d", l.Version)
	}
	for name, n := range l.Stats() {
		if n == 0 {
			t.Fatalf("table %s is empty", name)
		}
	}
}

func TestClosedSets(t *testing.T) {
	t.Parallel()

	l := MustDefault()

	if e, ok := l.Verbs.Lookup("fui"); !ok || e.Lemma != "ser" {
		t.Fatalf("fui -> %+v ok=%v", e, ok)
	}
	if e, ok := l.Verbs.Lookup("têm"); !ok || e.Lemma != "ter" || e.Features[annotation.FeatNumber] != "Plur" {
		t.Fatalf("têm -> %+v", e)
	}
	if e, ok := l.Pronouns.Lookup("minha"); !ok || e.POS != annotation.PRON || e.Detail != "PRON_POSS" {
		t.Fatalf("minha -> %+v", e)
	}
	if e, ok := l.Prepositions.Lookup("do"); !ok || e.POS != annotation.ADP || e.Features["Contraction"] != "de+o" {
		t.Fatalf("do -> %+v", e)
	}
	if e, ok := l.Conjunctions.Lookup("porque"); !ok || e.POS != annotation.SCONJ {
		t.Fatalf("porque -> %+v", e)
	}
	if e, ok := l.Conjunctions.Lookup("mas"); !ok || e.POS != annotation.CCONJ {
		t.Fatalf("mas -> %+v", e)
	}
	if _, ok := l.MWETable.Lookup("de repente"); !ok {
		t.Fatalf("mwe de repente missing")
	}
}

func TestSuffixesLongestFirst(t *testing.T) {
	t.Parallel()

	l := MustDefault()
	for i := 1; i < len(l.Suffixes); i++ {
		if len(l.Suffixes[i-1].Suffix) < len(l.Suffixes[i].Suffix) {
			t.Fatalf("suffix order broken at %d: %q before %q", i, l.Suffixes[i-1].Suffix, l.Suffixes[i].Suffix)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"bad json":      `{`,
		"bad version":   `{"version": 9}`,
		"single mwe":    `{"version": 1, "mwes": [{"text": "saudade"}]}`,
		"empty form":    `{"version": 1, "verbs": [{"form": " ", "lemma": "x"}]}`,
		"bad suffix cf": `{"version": 1, "suffixes": [{"suffix": "mente", "pos": "ADV", "confidence": 1.5}]}`,
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestParse_FirstDefinitionWins(t *testing.T) {
	t.Parallel()

	l, err := Parse([]byte(`{"version": 1, "verbs": [
		{"form": "vimos", "lemma": "ver", "pos": "VERB"},
		{"form": "vimos", "lemma": "vir", "pos": "VERB"}
	]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if e := l.Verbs["vimos"]; e.Lemma != "ver" {
		t.Fatalf("vimos lemma = %q", e.Lemma)
	}
}
