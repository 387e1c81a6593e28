// Package service implements Layer 3, the batch semantic classifier
package service

import (
	"context"
	"time"

	"cancioneiro/internal/core/annotation"
	"cancioneiro/internal/core/normalize"
	"cancioneiro/internal/core/taxonomy"
	"cancioneiro/internal/platform/logger"
	tim "cancioneiro/internal/platform/time"
	"cancioneiro/internal/services/semantic/domain"
)

// Config tunes batching and fallback
type Config struct {
	// BatchSize is the number of words per classifier call
	BatchSize int
	// Delay is the pause between consecutive classifier calls
	Delay time.Duration
	// FallbackConfidence is assigned to NC results of a failed batch
	FallbackConfidence float64
}

// Service classifies words into taxonomy domains
type Service struct {
	repo domain.Repo
	llm  domain.Completer
	cfg  Config
	log  logger.Logger
}

var _ domain.Ports = (*Service)(nil)

// New constructs the classifier
func New(repo domain.Repo, llm domain.Completer, cfg Config) *Service {
	if repo == nil || llm == nil {
		panic("semantic.Service requires non nil Repo and Completer")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = domain.DefaultBatchSize
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.FallbackConfidence <= 0 || cfg.FallbackConfidence > 1 {
		cfg.FallbackConfidence = domain.DefaultFallbackConfidence
	}
	return &Service{repo: repo, llm: llm, cfg: cfg, log: *logger.Named("semantic")}
}

// Classify returns one classification per item, in order.
// Stored results are reused; the rest go to the classifier in batches
func (s *Service) Classify(ctx context.Context, items []domain.Item) ([]domain.Classification, error) {
	return s.classify(ctx, items, false)
}

// Reprocess drops stored results for the items and classifies them again
func (s *Service) Reprocess(ctx context.Context, items []domain.Item) ([]domain.Classification, error) {
	return s.classify(ctx, items, true)
}

func (s *Service) classify(ctx context.Context, items []domain.Item, fresh bool) ([]domain.Classification, error) {
	if len(items) == 0 {
		return nil, nil
	}

	// one lookup per distinct word, first occurrence wins for lemma and POS
	keys := make([]string, len(items))
	var (
		distinct []string
		firstOf  = make(map[string]domain.Item, len(items))
	)
	for i, it := range items {
		k := normalize.Word(it.Word)
		keys[i] = k
		if k == "" {
			continue
		}
		if _, ok := firstOf[k]; !ok {
			it.Word = k
			firstOf[k] = it
			distinct = append(distinct, k)
		}
	}

	if fresh {
		for _, w := range distinct {
			if _, err := s.repo.Delete(ctx, w); err != nil {
				return nil, err
			}
		}
	}

	known := map[string]domain.Classification{}
	if !fresh && len(distinct) > 0 {
		got, err := s.repo.GetMany(ctx, distinct)
		if err != nil {
			s.log.Warn().Err(err).Int("words", len(distinct)).Msg("classification read failed, reclassifying")
		} else {
			known = got
		}
	}

	var pending []domain.Item
	for _, w := range distinct {
		if _, ok := known[w]; !ok {
			pending = append(pending, firstOf[w])
		}
	}

	for start := 0; start < len(pending); start += s.cfg.BatchSize {
		if start > 0 {
			if err := tim.Sleep(ctx, s.cfg.Delay); err != nil {
				return nil, err
			}
		}
		end := min(start+s.cfg.BatchSize, len(pending))
		batch := pending[start:end]
		for _, c := range s.classifyBatch(ctx, batch) {
			known[c.Word] = c
			if c.Fallback {
				// fallbacks, including substituted codes, are not persisted so a later pass can classify the word
				continue
			}
			if _, err := s.repo.Put(ctx, c); err != nil {
				return nil, err
			}
		}
	}

	out := make([]domain.Classification, len(items))
	for i, k := range keys {
		c, ok := known[k]
		if !ok {
			c = s.fallback(items[i].Word)
		}
		c.Word = items[i].Word
		out[i] = c
	}
	return out, nil
}

// classifyBatch never fails; any problem yields NC for the whole batch
func (s *Service) classifyBatch(ctx context.Context, batch []domain.Item) []domain.Classification {
	if !s.llm.Configured() {
		return s.fallbackAll(batch)
	}
	content, err := s.llm.Complete(ctx, systemPrompt, userPrompt(batch))
	if err != nil {
		s.log.Warn().Err(err).Int("words", len(batch)).Msg("classifier call failed, using fallback")
		return s.fallbackAll(batch)
	}
	entries, err := parseResponse(content, batch)
	if err != nil {
		s.log.Warn().Err(err).Int("words", len(batch)).Msg("classifier output unusable, using fallback")
		return s.fallbackAll(batch)
	}

	out := make([]domain.Classification, len(batch))
	for i, e := range entries {
		out[i] = s.build(batch[i].Word, e)
	}
	s.log.Debug().Int("words", len(batch)).Msg("batch classified")
	return out
}

func (s *Service) build(word string, e rawEntry) domain.Classification {
	code, ok := taxonomy.Parse(e.Code)
	conf := annotation.Clamp(e.Confidence)
	if !ok {
		s.log.Warn().Str("word", word).Str("code", e.Code).Msg("classifier returned unknown code, substituting NC")
		code = taxonomy.Unclassified
		conf = s.cfg.FallbackConfidence
	}

	var alts []taxonomy.Code
	seen := map[taxonomy.Code]struct{}{code: {}}
	for _, a := range e.Alternates {
		ac, ok := taxonomy.Parse(a)
		if !ok || ac == taxonomy.Unclassified {
			continue
		}
		if _, dup := seen[ac]; dup {
			continue
		}
		seen[ac] = struct{}{}
		alts = append(alts, ac)
	}
	return domain.Classification{
		Word:         word,
		Code:         code,
		Alternates:   alts,
		IsPolysemous: len(alts) > 0,
		Confidence:   conf,
		// a substituted code is retried like a failed batch
		Fallback: !ok,
	}
}

func (s *Service) fallback(word string) domain.Classification {
	return domain.Classification{
		Word:       word,
		Code:       taxonomy.Unclassified,
		Confidence: s.cfg.FallbackConfidence,
		Fallback:   true,
	}
}

func (s *Service) fallbackAll(batch []domain.Item) []domain.Classification {
	out := make([]domain.Classification, len(batch))
	for i, it := range batch {
		out[i] = s.fallback(it.Word)
	}
	return out
}
