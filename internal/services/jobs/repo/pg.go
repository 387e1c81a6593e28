// Package repo provides postgres and in-memory persistence for jobs, their sources and output
package repo

import (
	"context"
	"errors"
	"time"

	"cancioneiro/internal/modkit/repokit"
	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/platform/store"
	"cancioneiro/internal/services/jobs/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements domain.Repo
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the postgres job repo
func NewPG() repokit.Binder[domain.Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) domain.Repo { return &queries{q: q} }

const jobCols = `
id, kind, target, status, total, processed, produced_new, produced_cached, chunk_size, chunks_done,
cursor_song, cursor_word, cursor_offset, last_activity_at, started_at, finished_at, coalesce(error_message, ''),
pause_requested, cancel_requested, in_flight, resuming, resuming_at, auto_resume_attempts, needs_attention,
pause_count, created_at, updated_at`

func scanJob(row repokit.Row) (domain.Job, error) {
	var (
		j            domain.Job
		kind, status string
		lastActivity *time.Time
	)
	err := row.Scan(
		&j.ID, &kind, &j.Target, &status, &j.Total, &j.Processed, &j.ProducedNew, &j.ProducedCached,
		&j.ChunkSize, &j.ChunksDone,
		&j.Cursor.Song, &j.Cursor.Word, &j.Cursor.Offset, &lastActivity, &j.StartedAt, &j.FinishedAt, &j.ErrorMessage,
		&j.PauseRequested, &j.CancelRequested, &j.InFlight, &j.Resuming, &j.ResumingAt, &j.AutoResumeAttempts,
		&j.NeedsAttention, &j.PauseCount, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return domain.Job{}, err
	}
	j.Kind = domain.Kind(kind)
	j.Status = domain.Status(status)
	if lastActivity != nil {
		j.LastActivityAt = *lastActivity
	}
	return j, nil
}

// maybeJob maps no rows to ok=false
func maybeJob(row repokit.Row, op string) (domain.Job, bool, error) {
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Job{}, false, nil
	}
	if err != nil {
		return domain.Job{}, false, perr.FromPostgres(err, op)
	}
	return j, true, nil
}

func (r *queries) Insert(ctx context.Context, j domain.Job, items []string) error {
	const sql = `
insert into annotation_jobs (id, kind, target, status, total, chunk_size, last_activity_at, finished_at, created_at, updated_at)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
`
	if _, err := r.q.Exec(ctx, sql,
		j.ID, string(j.Kind), j.Target, string(j.Status), j.Total, j.ChunkSize, j.LastActivityAt, j.FinishedAt, j.CreatedAt,
	); err != nil {
		return perr.FromPostgres(err, "jobs insert")
	}
	if len(items) == 0 {
		return nil
	}
	// unnest keeps the snapshot a single round trip
	const itemsSQL = `
insert into job_items (job_id, position, word)
select $1, t.ord - 1, t.word from unnest($2::text[]) with ordinality as t(word, ord)
`
	if _, err := r.q.Exec(ctx, itemsSQL, j.ID, items); err != nil {
		return perr.FromPostgres(err, "jobs insert items")
	}
	return nil
}

func (r *queries) Get(ctx context.Context, id uuid.UUID) (domain.Job, error) {
	j, ok, err := maybeJob(r.q.QueryRow(ctx, `select `+jobCols+` from annotation_jobs where id = $1`, id), "jobs get")
	if err != nil {
		return domain.Job{}, err
	}
	if !ok {
		return domain.Job{}, perr.NotFoundf("job %s not found", id)
	}
	return j, nil
}

func (r *queries) List(ctx context.Context, f domain.ListFilter) ([]domain.Job, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	out, err := store.Many(ctx, r.q, scanJob, `
select `+jobCols+` from annotation_jobs
where ($1 = '' or status = $1)
order by created_at desc
limit $2`, string(f.Status), limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "jobs list")
	}
	return out, nil
}

func (r *queries) Claim(ctx context.Context, id uuid.UUID, cur domain.Cursor, now, staleBefore time.Time) (domain.Job, bool, error) {
	return maybeJob(r.q.QueryRow(ctx, `
update annotation_jobs set
  status = 'running',
  in_flight = true,
  last_activity_at = $5,
  started_at = coalesce(started_at, $5),
  updated_at = $5
where id = $1
  and status in ('queued', 'running')
  and cursor_song = $2 and cursor_word = $3 and cursor_offset = $4
  and (not in_flight or last_activity_at is null or last_activity_at < $6)
returning `+jobCols, id, cur.Song, cur.Word, cur.Offset, now, staleBefore), "jobs claim")
}

func (r *queries) Advance(ctx context.Context, id uuid.UUID, from domain.Cursor, a domain.Advance) (domain.Job, bool, error) {
	// right hand sides read the pre update row
	return maybeJob(r.q.QueryRow(ctx, `
update annotation_jobs set
  cursor_song = $5, cursor_word = $6, cursor_offset = $7,
  processed = processed + $8,
  produced_new = produced_new + $9,
  produced_cached = produced_cached + $10,
  chunks_done = chunks_done + 1,
  last_activity_at = $12,
  in_flight = false,
  auto_resume_attempts = 0,
  status = case
    when $11::boolean then 'completed'
    when cancel_requested then 'cancelled'
    when pause_requested then 'paused'
    else status end,
  pause_count = pause_count + case when not $11::boolean and not cancel_requested and pause_requested then 1 else 0 end,
  pause_requested = false,
  finished_at = case when $11::boolean or cancel_requested then $12 else finished_at end,
  updated_at = $12
where id = $1
  and status = 'running'
  and in_flight
  and cursor_song = $2 and cursor_word = $3 and cursor_offset = $4
returning `+jobCols,
		id, from.Song, from.Word, from.Offset,
		a.To.Song, a.To.Word, a.To.Offset,
		a.Units, a.New, a.Cached, a.Done, a.Now,
	), "jobs advance")
}

func (r *queries) Fail(ctx context.Context, id uuid.UUID, msg string, now time.Time) (domain.Job, error) {
	j, ok, err := maybeJob(r.q.QueryRow(ctx, `
update annotation_jobs set
  status = 'failed', error_message = $2, in_flight = false, finished_at = $3, updated_at = $3
where id = $1 and status in ('queued', 'running')
returning `+jobCols, id, msg, now), "jobs fail")
	if err != nil {
		return domain.Job{}, err
	}
	if !ok {
		return r.Get(ctx, id)
	}
	return j, nil
}

func (r *queries) RequestPause(ctx context.Context, id uuid.UUID, now time.Time) (domain.Job, bool, error) {
	return maybeJob(r.q.QueryRow(ctx, `
update annotation_jobs set
  status = case when status = 'queued' then 'paused' else status end,
  pause_requested = (status = 'running'),
  pause_count = pause_count + case when status = 'queued' then 1 else 0 end,
  updated_at = $2
where id = $1 and status in ('queued', 'running')
returning `+jobCols, id, now), "jobs pause")
}

func (r *queries) RequestCancel(ctx context.Context, id uuid.UUID, now time.Time) (domain.Job, bool, error) {
	return maybeJob(r.q.QueryRow(ctx, `
update annotation_jobs set
  status = case when status in ('queued', 'paused') then 'cancelled' else status end,
  cancel_requested = (status = 'running'),
  finished_at = case when status in ('queued', 'paused') then $2 else finished_at end,
  updated_at = $2
where id = $1 and status in ('queued', 'running', 'paused')
returning `+jobCols, id, now), "jobs cancel")
}

func (r *queries) BeginResume(ctx context.Context, id uuid.UUID, now, leaseBefore time.Time) (domain.Job, bool, error) {
	return maybeJob(r.q.QueryRow(ctx, `
update annotation_jobs set resuming = true, resuming_at = $2
where id = $1 and (not resuming or resuming_at is null or resuming_at < $3)
returning `+jobCols, id, now, leaseBefore), "jobs begin resume")
}

func (r *queries) EndResume(ctx context.Context, id uuid.UUID) error {
	if _, err := r.q.Exec(ctx, `update annotation_jobs set resuming = false, resuming_at = null where id = $1`, id); err != nil {
		return perr.FromPostgres(err, "jobs end resume")
	}
	return nil
}

func (r *queries) ManualResume(ctx context.Context, id uuid.UUID, now time.Time) (domain.Job, bool, error) {
	return maybeJob(r.q.QueryRow(ctx, `
update annotation_jobs set
  status = case when status = 'paused' then 'running' else status end,
  pause_requested = false,
  auto_resume_attempts = 0,
  needs_attention = false,
  updated_at = $2
where id = $1 and status in ('queued', 'running', 'paused')
returning `+jobCols, id, now), "jobs manual resume")
}

func (r *queries) AutoResume(ctx context.Context, id uuid.UUID, rewindTo, now time.Time) (domain.Job, bool, error) {
	return maybeJob(r.q.QueryRow(ctx, `
update annotation_jobs set
  auto_resume_attempts = auto_resume_attempts + 1,
  last_activity_at = $2,
  updated_at = $3
where id = $1 and status = 'running'
returning `+jobCols, id, rewindTo, now), "jobs auto resume")
}

func (r *queries) MarkNeedsAttention(ctx context.Context, id uuid.UUID, now time.Time) (domain.Job, error) {
	j, ok, err := maybeJob(r.q.QueryRow(ctx, `
update annotation_jobs set needs_attention = true, updated_at = $2
where id = $1
returning `+jobCols, id, now), "jobs needs attention")
	if err != nil {
		return domain.Job{}, err
	}
	if !ok {
		return domain.Job{}, perr.NotFoundf("job %s not found", id)
	}
	return j, nil
}

func (r *queries) Stalled(ctx context.Context, before time.Time, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	out, err := store.Many(ctx, r.q, scanJob, `
select `+jobCols+` from annotation_jobs
where status = 'running' and not needs_attention
  and (last_activity_at is null or last_activity_at < $1)
order by last_activity_at nulls first
limit $2`, before, limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "jobs stalled")
	}
	return out, nil
}
