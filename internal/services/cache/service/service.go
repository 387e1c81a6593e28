// Package service implements the annotation cache on top of a domain.Repo
package service

import (
	"context"

	"cancioneiro/internal/core/annotation"
	"cancioneiro/internal/platform/logger"
	"cancioneiro/internal/services/cache/domain"
)

// Config tunes the cache write policy
type Config struct {
	// Threshold is the minimum confidence to persist, <=0 -> domain.DefaultThreshold
	Threshold float64
}

// Service is the annotation cache
type Service struct {
	repo      domain.Repo
	threshold float64
}

var _ domain.Ports = (*Service)(nil)

// New constructs the cache service
func New(repo domain.Repo, cfg Config) *Service {
	if repo == nil {
		panic("cache.Service requires a non nil Repo")
	}
	th := cfg.Threshold
	if th <= 0 {
		th = domain.DefaultThreshold
	}
	return &Service{repo: repo, threshold: th}
}

// Threshold returns the configured write threshold
func (s *Service) Threshold() float64 { return s.threshold }

// Lookup returns the stored annotation for (surface, left, right) with Source=cache.
// Read errors are logged and reported as a miss
func (s *Service) Lookup(ctx context.Context, surface, left, right string) (annotation.AnnotatedToken, bool) {
	k := domain.NewKey(surface, left, right)
	if k.Surface == "" {
		return annotation.AnnotatedToken{}, false
	}
	tok, ok, err := s.repo.Get(ctx, k)
	if err != nil {
		logger.C(ctx).Warn().Err(err).Str("surface", k.Surface).Msg("cache read failed, treating as miss")
		return annotation.AnnotatedToken{}, false
	}
	if !ok {
		return annotation.AnnotatedToken{}, false
	}
	out := tok.FromCache(0)
	out.Surface = surface
	return out, true
}

// Store persists tok when its confidence clears the threshold.
// Writing an existing key is a no-op
func (s *Service) Store(ctx context.Context, surface, left, right string, tok annotation.AnnotatedToken) error {
	if tok.Confidence < s.threshold || !tok.Resolved() {
		return nil
	}
	if tok.Source == annotation.SourceCache {
		// already persisted under some key, never re-derive
		return nil
	}
	k := domain.NewKey(surface, left, right)
	if k.Surface == "" {
		return nil
	}
	wrote, err := s.repo.Put(ctx, k, tok)
	if err != nil {
		return err
	}
	if wrote {
		logger.C(ctx).Debug().Str("surface", k.Surface).Str("origin", string(tok.Source)).
			Float64("confidence", tok.Confidence).Msg("cache write")
	}
	return nil
}

// Purge removes every entry of surface so the next pass reannotates it
func (s *Service) Purge(ctx context.Context, surface string) (int64, error) {
	return s.repo.Purge(ctx, domain.NewKey(surface, "", "").Surface)
}

// Size returns the number of stored entries
func (s *Service) Size(ctx context.Context) (int64, error) { return s.repo.Count(ctx) }
