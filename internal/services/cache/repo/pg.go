// Package repo provides postgres and in-memory persistence for the annotation cache
package repo

import (
	"context"
	"encoding/json"
	"errors"

	"cancioneiro/internal/core/annotation"
	"cancioneiro/internal/modkit/repokit"
	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/services/cache/domain"

	"github.com/jackc/pgx/v5"
)

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements domain.Repo
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the postgres repo
func NewPG() repokit.Binder[domain.Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) domain.Repo { return &queries{q: q} }

func (r *queries) Get(ctx context.Context, k domain.Key) (annotation.AnnotatedToken, bool, error) {
	const sql = `
select lemma, pos, pos_detailed, features, origin, confidence
from annotation_cache
where surface = $1 and left_ctx = $2 and right_ctx = $3
`
	var (
		out   annotation.AnnotatedToken
		pos   string
		feats []byte
		orig  string
	)
	err := r.q.QueryRow(ctx, sql, k.Surface, k.Left, k.Right).
		Scan(&out.Lemma, &pos, &out.PosDetailed, &feats, &orig, &out.Confidence)
	if errors.Is(err, pgx.ErrNoRows) {
		return annotation.AnnotatedToken{}, false, nil
	}
	if err != nil {
		return annotation.AnnotatedToken{}, false, perr.FromPostgres(err, "cache get")
	}
	if len(feats) > 0 && string(feats) != "{}" {
		if err := json.Unmarshal(feats, &out.Features); err != nil {
			return annotation.AnnotatedToken{}, false, perr.Wrap(err, perr.ErrorCodeJSON, "cache features")
		}
	}
	out.Surface = k.Surface
	out.POS = annotation.POS(pos)
	out.Source = annotation.Source(orig)
	out.Origin = annotation.Source(orig)
	return out, true, nil
}

func (r *queries) Put(ctx context.Context, k domain.Key, tok annotation.AnnotatedToken) (bool, error) {
	const sql = `
insert into annotation_cache (surface, left_ctx, right_ctx, lemma, pos, pos_detailed, features, origin, confidence)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
on conflict (surface, left_ctx, right_ctx) do nothing
`
	feats := []byte("{}")
	if len(tok.Features) > 0 {
		b, err := json.Marshal(tok.Features)
		if err != nil {
			return false, perr.Wrap(err, perr.ErrorCodeJSON, "cache features")
		}
		feats = b
	}
	origin := tok.Origin
	if origin == "" || origin == annotation.SourceCache {
		origin = tok.Source
	}
	tag, err := r.q.Exec(ctx, sql,
		k.Surface, k.Left, k.Right,
		tok.Lemma, string(tok.POS), tok.PosDetailed, feats, string(origin), tok.Confidence,
	)
	if err != nil {
		return false, perr.FromPostgres(err, "cache put")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queries) Purge(ctx context.Context, surface string) (int64, error) {
	tag, err := r.q.Exec(ctx, `delete from annotation_cache where surface = $1`, surface)
	if err != nil {
		return 0, perr.FromPostgres(err, "cache purge")
	}
	return tag.RowsAffected(), nil
}

func (r *queries) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `select count(*) from annotation_cache`).Scan(&n); err != nil {
		return 0, perr.FromPostgres(err, "cache count")
	}
	return n, nil
}
