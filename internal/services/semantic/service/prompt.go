package service

import (
	"fmt"
	"strings"

	"cancioneiro/internal/core/taxonomy"
	"cancioneiro/internal/services/semantic/domain"
)

// systemPrompt is stable for a given taxonomy so it is built once
var systemPrompt = buildSystemPrompt()

func buildSystemPrompt() string {
	var b strings.Builder
	b.WriteString("Você classifica palavras de letras de música em português em domínios semânticos.\n")
	b.WriteString("Use apenas os códigos abaixo:\n\n")
	b.WriteString(taxonomy.Describe())
	b.WriteString("\nPara cada palavra numerada, devolva um objeto JSON no formato:\n")
	b.WriteString(`{"classifications":[{"word":"...","code":"XX","alternates":["YY"],"confidence":0.0}]}`)
	b.WriteString("\nMantenha a ordem e a grafia das palavras. Use \"alternates\" apenas para palavras polissêmicas.")
	b.WriteString(" Use NC quando nenhum domínio se aplica. Responda somente com o JSON.")
	return b.String()
}

// userPrompt lists the batch as numbered "word (lemma, POS)" lines
func userPrompt(items []domain.Item) string {
	var b strings.Builder
	for i, it := range items {
		lemma := it.Lemma
		if lemma == "" {
			lemma = it.Word
		}
		fmt.Fprintf(&b, "%d. %s (%s, %s)\n", i+1, it.Word, lemma, it.POS)
	}
	return b.String()
}
