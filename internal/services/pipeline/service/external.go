package service

import (
	"context"
	"maps"

	"cancioneiro/internal/adapters/nlp"
	"cancioneiro/internal/core/annotation"
	"cancioneiro/internal/core/normalize"
	"cancioneiro/internal/platform/logger"
)

// NLP is the slice of the external service client Layer 2 needs
type NLP interface {
	Configured() bool
	Health(ctx context.Context) (nlp.Health, error)
	Annotate(ctx context.Context, tokens []string, fullText string) ([]nlp.Annotation, error)
}

// External is Layer 2. It never fails: when the service is unconfigured,
// unhealthy or erroring the input batch comes back unchanged
type External struct {
	client NLP
}

// NewExternal wraps client, nil behaves as unconfigured
func NewExternal(client NLP) *External { return &External{client: client} }

// Annotate returns a batch of the same length and order as in
func (e *External) Annotate(ctx context.Context, in []annotation.AnnotatedToken, fullText string) []annotation.AnnotatedToken {
	if len(in) == 0 || e.client == nil || !e.client.Configured() {
		return in
	}
	log := logger.C(ctx)
	if _, err := e.client.Health(ctx); err != nil {
		log.Warn().Err(err).Int("tokens", len(in)).Msg("nlp unavailable, skipping layer 2")
		return in
	}

	surfaces := make([]string, len(in))
	for i, t := range in {
		surfaces[i] = t.Surface
	}
	got, err := e.client.Annotate(ctx, surfaces, fullText)
	if err != nil {
		log.Warn().Err(err).Int("tokens", len(in)).Msg("nlp annotate failed, skipping layer 2")
		return in
	}
	return merge(in, got)
}

// merge pairs annotations positionally when the service echoed the batch,
// otherwise by word; tokens without a usable answer pass through untouched
func merge(in []annotation.AnnotatedToken, got []nlp.Annotation) []annotation.AnnotatedToken {
	aligned := len(got) == len(in)
	if aligned {
		for i := range in {
			if normalize.Word(got[i].Word) != normalize.Word(in[i].Surface) {
				aligned = false
				break
			}
		}
	}
	var byWord map[string]nlp.Annotation
	if !aligned {
		byWord = make(map[string]nlp.Annotation, len(got))
		for _, a := range got {
			k := normalize.Word(a.Word)
			if _, ok := byWord[k]; !ok {
				byWord[k] = a
			}
		}
	}

	out := make([]annotation.AnnotatedToken, len(in))
	for i, t := range in {
		var (
			a  nlp.Annotation
			ok bool
		)
		if aligned {
			a, ok = got[i], true
		} else {
			a, ok = byWord[normalize.Word(t.Surface)]
		}
		if !ok {
			out[i] = t
			continue
		}
		out[i] = fromService(t, a)
	}
	return out
}

func fromService(t annotation.AnnotatedToken, a nlp.Annotation) annotation.AnnotatedToken {
	pos := annotation.ParsePOS(a.POS)
	conf := annotation.Clamp(a.Confidence)
	if pos == annotation.X || conf == 0 {
		return t
	}
	out := annotation.AnnotatedToken{
		Token: annotation.Token{
			Surface:     t.Surface,
			Lemma:       a.Lemma,
			POS:         pos,
			PosDetailed: a.PosDetailed,
			Index:       t.Index,
		},
		Source:     annotation.SourceExternal,
		Origin:     annotation.SourceExternal,
		Confidence: conf,
	}
	if out.Lemma == "" {
		out.Lemma = normalize.Word(t.Surface)
	}
	if len(a.Features) > 0 {
		out.Features = maps.Clone(a.Features)
	}
	return out
}
