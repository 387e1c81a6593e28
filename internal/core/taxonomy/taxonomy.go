// Package taxonomy is the closed set of semantic domain codes a classification may carry
package taxonomy

import (
	"sort"
	"strings"
)

// Code is a two letter semantic domain code
type Code string

// Unclassified is the sentinel assigned when a word cannot be classified
const Unclassified Code = "NC"

// Domain is one taxonomy entry
type Domain struct {
	Code  Code   `json:"code"`
	Label string `json:"label"`
	Hint  string `json:"hint"`
}

var domains = []Domain{
	{"NA", "Natureza", "elementos naturais, paisagem, clima, plantas"},
	{"AN", "Animais", "fauna, criaturas"},
	{"CO", "Corpo humano", "partes do corpo, saúde, sentidos"},
	{"SE", "Sentimentos", "emoções, estados de ânimo, amor, saudade"},
	{"RE", "Relações sociais", "família, amizade, comunidade, papéis sociais"},
	{"TR", "Trabalho e economia", "ofícios, dinheiro, ferramentas de trabalho"},
	{"AL", "Alimentação", "comida, bebida, cozinha"},
	{"CU", "Cultura e arte", "música, dança, festa, tradição"},
	{"RL", "Religião", "fé, santos, rituais, sagrado"},
	{"ES", "Espaço e lugares", "cidades, regiões, casa, caminho"},
	{"TE", "Tempo", "dias, estações, duração, memória temporal"},
	{"OB", "Objetos", "artefatos, utensílios, roupas"},
	{"AB", "Abstrações", "ideias, valores, conceitos"},
	{"AC", "Ações e movimentos", "verbos de ação, deslocamento, gestos"},
	{"QU", "Qualidades", "atributos, cores, intensidades"},
	{Unclassified, "Não classificado", "sem domínio identificável"},
}

var byCode = func() map[Code]Domain {
	m := make(map[Code]Domain, len(domains))
	for _, d := range domains {
		m[d.Code] = d
	}
	return m
}()

// All returns every domain including the sentinel, sorted by code
func All() []Domain {
	out := make([]Domain, len(domains))
	copy(out, domains)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Assignable returns the domains a classifier may pick, the sentinel excluded
func Assignable() []Domain {
	out := make([]Domain, 0, len(domains)-1)
	for _, d := range All() {
		if d.Code != Unclassified {
			out = append(out, d)
		}
	}
	return out
}

// Parse normalizes s and reports whether it names a taxonomy code
func Parse(s string) (Code, bool) {
	c := Code(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := byCode[c]
	return c, ok
}

// Valid reports whether c is in the closed set
func Valid(c Code) bool {
	_, ok := byCode[c]
	return ok
}

// Label returns the human label, empty for unknown codes
func Label(c Code) string { return byCode[c].Label }

// Describe renders the taxonomy as prompt lines, one "CODE: Label (hint)" per domain
func Describe() string {
	var b strings.Builder
	for _, d := range All() {
		b.WriteString(string(d.Code))
		b.WriteString(": ")
		b.WriteString(d.Label)
		if d.Hint != "" {
			b.WriteString(" (")
			b.WriteString(d.Hint)
			b.WriteString(")")
		}
		b.WriteByte('\n')
	}
	return b.String()
}
