// Package normalize provides the deterministic text normalizer applied before tokenization
// Pipeline order
// 1 Sanitize controls and drop invalid UTF-8
// 2 Unicode NFC composition (diacritics are kept, they carry meaning in Portuguese)
// 3 Remove format characters (ZWJ, ZWNJ, BOM)
// 4 Width fold fullwidth to ASCII
// 5 Typographic apostrophes and dashes to ASCII
// 6 Collapse whitespace, keeping single line breaks
package normalize

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFC,
			runes.Remove(runes.In(unicode.Cf)), // strip format chars ZWJ ZWNJ FEFF etc
			width.Fold,                         // map fullwidth forms to ASCII
			runes.Map(punctFold),
		)
	},
}

// lowerPool holds Portuguese lowercasers, cases.Caser is not safe for concurrent use
var lowerPool = sync.Pool{
	New: func() any {
		c := cases.Lower(language.BrazilianPortuguese)
		return &c
	},
}

// Text returns the normalized form of s following the pipeline described above
func Text(s string) string {
	if s == "" {
		return ""
	}

	s = Sanitize(s)

	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	return collapseSpaces(ns)
}

// Word lowercases a single surface form for lexicon and cache keys
func Word(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	c := lowerPool.Get().(*cases.Caser)
	out := c.String(norm.NFC.String(s))
	lowerPool.Put(c)
	return out
}

// control reports the runes Sanitize drops: C0 controls other than tab and
// line breaks, DEL and the C1 block
func control(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return r < 0x20 || (r >= 0x7f && r <= 0x9f)
}

// Sanitize drops control runes and invalid UTF-8. Clean input comes back as is
func Sanitize(s string) string {
	if utf8.ValidString(s) && strings.IndexFunc(s, control) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if control(r) {
			return -1
		}
		return r
	}, strings.ToValidUTF8(s, ""))
}

// punctFold maps typographic variants that matter for word boundaries
func punctFold(r rune) rune {
	switch r {
	case '‘', '’', 'ʼ', '`', '´':
		return '\''
	case '‐', '‑':
		return '-'
	default:
		return r
	}
}

// collapseSpaces converts whitespace runs to a single ASCII space, but preserves line breaks.
// Runs that contain any newline are collapsed to a single newline. Leading/trailing spaces/newlines are trimmed
func collapseSpaces(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	sawNL := false
	flush := func() {
		if !inWS {
			return
		}
		if sawNL {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
		inWS = false
		sawNL = false
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			if r == '\n' || r == '\r' {
				sawNL = true
			}
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return strings.Trim(b.String(), " \n\t\r")
}
