// Package repo provides postgres and in-memory persistence for semantic classifications
package repo

import (
	"context"
	"errors"

	"cancioneiro/internal/core/taxonomy"
	"cancioneiro/internal/modkit/repokit"
	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/services/semantic/domain"

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

const selectCols = `word, code, alternates, is_polysemous, confidence`

func scan(row repokit.Row) (domain.Classification, error) {
	var (
		c    domain.Classification
		code string
		alts []string
	)
	if err := row.Scan(&c.Word, &code, &alts, &c.IsPolysemous, &c.Confidence); err != nil {
		return domain.Classification{}, err
	}
	c.Code = taxonomy.Code(code)
	for _, a := range alts {
		c.Alternates = append(c.Alternates, taxonomy.Code(a))
	}
	return c, nil
}

func (r *queries) Get(ctx context.Context, word string) (domain.Classification, bool, error) {
	c, err := scan(r.q.QueryRow(ctx, `select `+selectCols+` from semantic_classifications where word = $1`, word))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Classification{}, false, nil
	}
	if err != nil {
		return domain.Classification{}, false, perr.FromPostgres(err, "semantic get")
	}
	return c, true, nil
}

func (r *queries) GetMany(ctx context.Context, words []string) (map[string]domain.Classification, error) {
	out := make(map[string]domain.Classification, len(words))
	if len(words) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `select `+selectCols+` from semantic_classifications where word = any($1)`, words)
	if err != nil {
		return nil, perr.FromPostgres(err, "semantic get many")
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, perr.FromPostgres(err, "semantic scan")
		}
		out[c.Word] = c
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "semantic rows")
	}
	return out, nil
}

func (r *queries) Put(ctx context.Context, c domain.Classification) (bool, error) {
	const sql = `
insert into semantic_classifications (word, code, alternates, is_polysemous, confidence)
values ($1, $2, $3, $4, $5)
on conflict (word) do nothing
`
	alts := make([]string, 0, len(c.Alternates))
	for _, a := range c.Alternates {
		alts = append(alts, string(a))
	}
	tag, err := r.q.Exec(ctx, sql, c.Word, string(c.Code), alts, c.IsPolysemous, c.Confidence)
	if err != nil {
		return false, perr.FromPostgres(err, "semantic put")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queries) Delete(ctx context.Context, word string) (bool, error) {
	tag, err := r.q.Exec(ctx, `delete from semantic_classifications where word = $1`, word)
	if err != nil {
		return false, perr.FromPostgres(err, "semantic delete")
	}
	return tag.RowsAffected() > 0, nil
}
