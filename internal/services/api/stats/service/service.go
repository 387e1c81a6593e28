// Package service contains stats workflows
package service

import (
	"context"
	"sort"

	"cancioneiro/internal/core/taxonomy"
	"cancioneiro/internal/modkit/repokit"
	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/services/api/stats/domain"
	"cancioneiro/internal/services/api/stats/repo"
	jobsdomain "cancioneiro/internal/services/jobs/domain"

	"github.com/google/uuid"
)

// Service defines the stats service contract
type Service interface {
	domain.ServicePort
}

// Totals reads per kind unit sums from the analytics mirror
type Totals interface {
	Totals(ctx context.Context) (map[jobsdomain.Kind]int64, error)
}

// Jobs resolves job existence so unknown ids are 404 rather than empty
type Jobs interface {
	Get(ctx context.Context, id uuid.UUID) (jobsdomain.View, error)
}

// Svc implements the stats service
type Svc struct {
	Repo   repo.Repo
	jobs   Jobs
	totals Totals
}

// New constructs a stats service. jobs and totals may be nil
func New(db repokit.Queryer, binder repokit.Binder[repo.Repo], jobs Jobs, totals Totals) *Svc {
	if binder == nil {
		panic("stats.Service requires a non nil Repo binder")
	}
	return &Svc{Repo: binder.Bind(db), jobs: jobs, totals: totals}
}

// Breakdown groups the tokens a job wrote by source, origin, domain and POS
func (s *Svc) Breakdown(ctx context.Context, jobID uuid.UUID) (domain.Breakdown, error) {
	if s.jobs != nil {
		if _, err := s.jobs.Get(ctx, jobID); err != nil {
			return domain.Breakdown{}, err
		}
	}
	n, err := s.Repo.Count(ctx, jobID)
	if err != nil {
		return domain.Breakdown{}, err
	}
	out := domain.Breakdown{JobID: jobID, Tokens: n}
	groups := []struct {
		col repo.Column
		dst *[]domain.Bucket
	}{
		{repo.BySource, &out.Sources},
		{repo.ByOrigin, &out.Origins},
		{repo.ByDomain, &out.Domains},
		{repo.ByPOS, &out.POS},
	}
	for _, g := range groups {
		rows, err := s.Repo.GroupBy(ctx, jobID, g.col)
		if err != nil {
			return domain.Breakdown{}, err
		}
		buckets := make([]domain.Bucket, 0, len(rows))
		for _, r := range rows {
			b := domain.Bucket{Key: r.Key, Count: r.Count}
			if g.col == repo.ByDomain {
				if r.Key == "" {
					// tokens outside the content word classes are never classified
					continue
				}
				b.Label = taxonomy.Label(taxonomy.Code(r.Key))
			}
			buckets = append(buckets, b)
		}
		*g.dst = buckets
	}
	return out, nil
}

// Events returns units processed per job kind from the analytics mirror
func (s *Svc) Events(ctx context.Context, in domain.EventsInput) ([]domain.KindTotal, error) {
	if s.totals == nil {
		return nil, perr.Newf(perr.ErrorCodeUnavailable, "analytics mirror not configured")
	}
	m, err := s.totals.Totals(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.KindTotal, 0, len(m))
	for k, n := range m {
		if in.Kind != "" && string(k) != in.Kind {
			continue
		}
		out = append(out, domain.KindTotal{Kind: string(k), Units: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}
