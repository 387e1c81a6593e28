// Package repo provides postgres and in-memory access for annotation stats
package repo

import (
	"context"
	"fmt"

	"cancioneiro/internal/modkit/repokit"
	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/platform/store"

	"github.com/google/uuid"
)

// Column names a grouping of annotated_tokens
type Column string

// Groupings
const (
	BySource Column = "source"
	ByOrigin Column = "origin"
	ByDomain Column = "domain_code"
	ByPOS    Column = "pos"
)

// Repo is the minimal persistence surface for stats
type Repo interface {
	Count(ctx context.Context, jobID uuid.UUID) (int64, error)
	GroupBy(ctx context.Context, jobID uuid.UUID, col Column) ([]Row, error)
}

// Row is one grouped count; Key is empty for null groups
type Row struct {
	Key   string
	Count int64
}

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements the Repo interface
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) Count(ctx context.Context, jobID uuid.UUID) (int64, error) {
	n, err := store.Scalar[int64](ctx, r.q, `select count(1) from annotated_tokens where job_id = $1`, jobID)
	if err != nil {
		return 0, perr.FromPostgres(err, "stats count")
	}
	return n, nil
}

func scanGroup(row repokit.Row) (Row, error) {
	var rr Row
	err := row.Scan(&rr.Key, &rr.Count)
	return rr, err
}

func (r *queries) GroupBy(ctx context.Context, jobID uuid.UUID, col Column) ([]Row, error) {
	switch col {
	case BySource, ByOrigin, ByDomain, ByPOS:
	default:
		return nil, perr.InvalidArgf("unknown grouping %q", col)
	}
	// col is one of the constants above
	sql := fmt.Sprintf(`
select coalesce(%[1]s, ''), count(1) as n
from annotated_tokens
where job_id = $1
group by %[1]s
order by n desc, 1 asc
`, col)
	out, err := store.Many(ctx, r.q, scanGroup, sql, jobID)
	if err != nil {
		return nil, perr.FromPostgres(err, "stats group")
	}
	return out, nil
}
