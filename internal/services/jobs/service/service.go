// Package service runs annotation jobs one chunk per continuation
package service

import (
	"context"
	"errors"
	"time"

	"cancioneiro/internal/modkit/repokit"
	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/platform/logger"
	tim "cancioneiro/internal/platform/time"
	"cancioneiro/internal/services/jobs/domain"
	"cancioneiro/internal/services/jobs/guardrails"
	pipedomain "cancioneiro/internal/services/pipeline/domain"

	"github.com/google/uuid"
)

// Defaults
const (
	DefaultChunkSize    = 50
	DefaultMaxChunkSize = 500
	DefaultStallAfter   = 10 * time.Minute
	DefaultResumeLease  = 2 * time.Minute
	// rewindMargin pushes a forced resume safely past the stall threshold
	rewindMargin = time.Minute
)

// Config tunes the orchestrator
type Config struct {
	ChunkSize    int
	MaxChunkSize int
	// StallAfter is how long an in flight chunk may stay silent before another claim may take over
	StallAfter time.Duration
	// ResumeLease expires a resume flag left behind by a crashed holder
	ResumeLease time.Duration
	Autostart   bool
	Timeouts    guardrails.Timeouts
}

// Deps are the collaborators of the orchestrator
type Deps struct {
	// DB is bound into every binder; nil is fine for in-memory binders
	DB       repokit.Queryer
	Repo     repokit.Binder[domain.Repo]
	Sources  repokit.Binder[domain.Sources]
	Output   repokit.Binder[domain.Output]
	Pipeline pipedomain.Ports
	// Trigger schedules continuations, nil leaves that to the caller
	Trigger domain.Trigger
	// Events is optional
	Events domain.Events
	Clock  tim.Clock
}

// Service implements domain.Ports
type Service struct {
	repo    domain.Repo
	sources domain.Sources
	output  domain.Output
	pipe    pipedomain.Ports
	trigger domain.Trigger
	events  domain.Events
	now     tim.Clock
	cfg     Config
	log     logger.Logger
}

var _ domain.Ports = (*Service)(nil)

// New wires the orchestrator
func New(d Deps, cfg Config) *Service {
	if d.Repo == nil || d.Sources == nil || d.Output == nil {
		panic("jobs.Service requires Repo, Sources and Output binders")
	}
	if d.Pipeline == nil {
		panic("jobs.Service requires a Pipeline")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = DefaultMaxChunkSize
	}
	cfg.ChunkSize = min(cfg.ChunkSize, cfg.MaxChunkSize)
	if cfg.StallAfter <= 0 {
		cfg.StallAfter = DefaultStallAfter
	}
	if cfg.ResumeLease <= 0 {
		cfg.ResumeLease = DefaultResumeLease
	}
	clock := d.Clock
	if clock == nil {
		clock = tim.Now
	}
	return &Service{
		repo:    d.Repo.Bind(d.DB),
		sources: d.Sources.Bind(d.DB),
		output:  d.Output.Bind(d.DB),
		pipe:    d.Pipeline,
		trigger: d.Trigger,
		events:  d.Events,
		now:     clock,
		cfg:     cfg,
		log:     *logger.Named("jobs"),
	}
}

// Create sizes the work set, stores the job and schedules the first continuation when autostarting
func (s *Service) Create(ctx context.Context, in domain.CreateInput) (domain.Job, error) {
	if !in.Kind.Valid() {
		return domain.Job{}, perr.InvalidArgf("unknown job kind %q", in.Kind)
	}
	if in.Kind != domain.KindWords && in.Target == "" {
		return domain.Job{}, perr.InvalidArgf("%s jobs need a target", in.Kind)
	}
	size := in.ChunkSize
	if size <= 0 {
		size = s.cfg.ChunkSize
	}
	if size > s.cfg.MaxChunkSize {
		return domain.Job{}, perr.InvalidArgf("chunk_size %d exceeds %d", size, s.cfg.MaxChunkSize)
	}

	total, items, err := s.sizeOf(ctx, in)
	if err != nil {
		return domain.Job{}, err
	}

	now := s.now()
	j := domain.Job{
		ID:             uuid.New(),
		Kind:           in.Kind,
		Target:         in.Target,
		Status:         domain.StatusQueued,
		Total:          total,
		ChunkSize:      size,
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if total == 0 {
		j.Status = domain.StatusCompleted
		j.FinishedAt = tim.Ptr(now)
	}

	dctx, cancel := guardrails.ForDB(ctx, s.cfg.Timeouts)
	defer cancel()
	if err := s.repo.Insert(dctx, j, items); err != nil {
		return domain.Job{}, err
	}

	log := logger.C(logger.WithJob(ctx, j.ID.String()))
	log.Info().Str("kind", string(j.Kind)).Str("target", j.Target).Int("total", total).Int("chunk_size", size).Msg("job created")

	autostart := s.cfg.Autostart
	if in.Autostart != nil {
		autostart = *in.Autostart
	}
	if autostart && j.Status == domain.StatusQueued {
		s.schedule(ctx, j.ID, domain.Cursor{})
	}
	return j, nil
}

// ProcessNext is the continuation entrypoint. It claims the job at cur, runs one chunk,
// advances the cursor and schedules the next continuation while work remains.
// Repeated calls with the same cursor do the work at most once
func (s *Service) ProcessNext(ctx context.Context, id uuid.UUID, cur domain.Cursor) (domain.Outcome, error) {
	ctx = logger.WithJob(ctx, id.String())
	log := logger.C(ctx)

	now := s.now()
	cctx, cancel := guardrails.ForDB(ctx, s.cfg.Timeouts)
	j, ok, err := s.repo.Claim(cctx, id, cur, now, now.Add(-s.cfg.StallAfter))
	cancel()
	if err != nil {
		return domain.Outcome{}, err
	}
	if !ok {
		return s.skipped(ctx, id, cur)
	}

	started := s.now()
	wctx, cancel := guardrails.ForChunk(ctx, s.cfg.Timeouts)
	sl, stats, err := s.work(wctx, j, cur)
	cancel()
	if err != nil {
		return s.fail(ctx, j, err)
	}

	adv := domain.Advance{
		To:     sl.Next,
		Units:  sl.Units,
		New:    stats.Fresh(),
		Cached: stats.Cached,
		Done:   sl.Exhausted || j.Processed+sl.Units >= j.Total,
		Now:    s.now(),
	}
	actx, cancel := guardrails.Detached(ctx, s.cfg.Timeouts.DB)
	next, ok, err := s.repo.Advance(actx, id, cur, adv)
	cancel()
	if err != nil {
		return s.fail(ctx, j, err)
	}
	if !ok {
		// a stale takeover advanced first; its output for this cursor is identical
		log.Warn().Any("cursor", cur).Msg("advance lost to another continuation")
		latest, gerr := s.repo.Get(ctx, id)
		if gerr != nil {
			return domain.Outcome{}, gerr
		}
		return domain.Outcome{Job: latest, Skipped: true, Reason: domain.SkipLostAdvance}, nil
	}

	s.record(ctx, next, sl.Units, stats, adv.Now.Sub(started))
	log.Info().
		Int("chunk", next.ChunksDone).
		Int("units", sl.Units).
		Int("processed", next.Processed).
		Int("total", next.Total).
		Str("status", string(next.Status)).
		Msg("chunk done")

	out := domain.Outcome{Job: next, Units: sl.Units}
	if next.Status == domain.StatusRunning {
		out.Continue = s.schedule(ctx, id, next.Cursor)
	}
	return out, nil
}

// work fetches the slice, annotates all of its segments in one pipeline pass
// and persists the output of the chunk at once
func (s *Service) work(ctx context.Context, j domain.Job, cur domain.Cursor) (domain.Slice, pipedomain.Stats, error) {
	var stats pipedomain.Stats
	sl, err := s.slice(ctx, j, cur, j.ChunkSize)
	if err != nil {
		return domain.Slice{}, stats, perr.WithOp(err, "fetch slice")
	}
	if len(sl.Segments) == 0 {
		return sl, stats, nil
	}
	segs := make([]pipedomain.Segment, len(sl.Segments))
	for i, seg := range sl.Segments {
		segs[i] = seg.Segment
	}
	res, err := s.pipe.AnnotateSegments(ctx, segs)
	if err != nil {
		return domain.Slice{}, stats, perr.WithOp(err, "annotate chunk")
	}
	units := make([]domain.UnitWords, len(res))
	for i, r := range res {
		units[i] = domain.UnitWords{Unit: sl.Segments[i].Unit, Words: r.Words}
		stats.Add(r.Stats)
	}
	if err := s.output.Save(ctx, j.ID, units); err != nil {
		return domain.Slice{}, stats, perr.WithOp(err, "save chunk")
	}
	return sl, stats, nil
}

// fail records a chunk fatal error on a context that outlives the chunk
func (s *Service) fail(ctx context.Context, j domain.Job, cause error) (domain.Outcome, error) {
	logger.C(ctx).Error().Err(cause).Any("cursor", j.Cursor).Msg("chunk failed")
	fctx, cancel := guardrails.Detached(ctx, s.cfg.Timeouts.DB)
	defer cancel()
	failed, err := s.repo.Fail(fctx, j.ID, cause.Error(), s.now())
	if err != nil {
		return domain.Outcome{}, errors.Join(cause, err)
	}
	return domain.Outcome{Job: failed}, cause
}

// skipped explains a claim that did not happen
func (s *Service) skipped(ctx context.Context, id uuid.UUID, cur domain.Cursor) (domain.Outcome, error) {
	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Outcome{}, err
	}
	reason := skipReason(j, cur)
	logger.C(ctx).Debug().Str("reason", string(reason)).Any("cursor", cur).Msg("continuation skipped")
	return domain.Outcome{Job: j, Skipped: true, Reason: reason}, nil
}

func skipReason(j domain.Job, cur domain.Cursor) domain.SkipReason {
	switch {
	case j.Status.Terminal():
		return domain.SkipTerminal
	case j.Status == domain.StatusPaused:
		return domain.SkipPaused
	case j.Cursor != cur:
		return domain.SkipStaleCursor
	default:
		return domain.SkipBusy
	}
}

// schedule asks the trigger for the next continuation; failures are left to the watchdog
func (s *Service) schedule(ctx context.Context, id uuid.UUID, cur domain.Cursor) bool {
	if s.trigger == nil {
		return false
	}
	tctx := context.WithoutCancel(ctx)
	if err := s.trigger.Trigger(tctx, id, cur); err != nil {
		logger.C(ctx).Warn().Err(err).Any("cursor", cur).Msg("continuation trigger failed, watchdog will recover")
		return false
	}
	return true
}

func (s *Service) record(ctx context.Context, j domain.Job, units int, stats pipedomain.Stats, took time.Duration) {
	if s.events == nil {
		return
	}
	ev := domain.ChunkEvent{
		JobID:    j.ID,
		Kind:     j.Kind,
		Chunk:    j.ChunksDone,
		Units:    units,
		Stats:    stats,
		Duration: took,
		At:       s.now(),
	}
	if err := s.events.Record(ctx, ev); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("chunk event not recorded")
	}
}

// RunToEnd drives a job in process until it stops running, used when no trigger is wired
func (s *Service) RunToEnd(ctx context.Context, id uuid.UUID) (domain.Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Job{}, err
		}
		j, err := s.repo.Get(ctx, id)
		if err != nil {
			return domain.Job{}, err
		}
		if j.Status != domain.StatusQueued && j.Status != domain.StatusRunning {
			return j, nil
		}
		out, err := s.ProcessNext(ctx, id, j.Cursor)
		if err != nil {
			return out.Job, err
		}
		if out.Skipped {
			if out.Reason == domain.SkipBusy {
				return out.Job, perr.Conflictf("job %s has a chunk in flight", id)
			}
			if out.Reason != domain.SkipStaleCursor {
				return out.Job, nil
			}
		}
	}
}

// Get returns the job with its progress estimate
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.View, error) {
	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.View{}, err
	}
	return domain.View{Job: j, Progress: domain.ProgressOf(j, s.now())}, nil
}

// List returns jobs newest first
func (s *Service) List(ctx context.Context, f domain.ListFilter) ([]domain.View, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, perr.InvalidArgf("unknown status %q", f.Status)
	}
	js, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]domain.View, 0, len(js))
	for _, j := range js {
		out = append(out, domain.View{Job: j, Progress: domain.ProgressOf(j, now)})
	}
	return out, nil
}

// Pause stops a queued job now or a running one at the next chunk boundary
func (s *Service) Pause(ctx context.Context, id uuid.UUID) (domain.Job, error) {
	j, ok, err := s.repo.RequestPause(ctx, id, s.now())
	if err != nil {
		return domain.Job{}, err
	}
	if ok {
		logger.C(logger.WithJob(ctx, id.String())).Info().Str("status", string(j.Status)).Msg("pause requested")
		return j, nil
	}
	j, err = s.repo.Get(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	if j.Status == domain.StatusPaused {
		return j, nil
	}
	return domain.Job{}, perr.Conflictf("job %s is %s", id, j.Status)
}

// Cancel stops a queued or paused job now or a running one at the next chunk boundary
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (domain.Job, error) {
	j, ok, err := s.repo.RequestCancel(ctx, id, s.now())
	if err != nil {
		return domain.Job{}, err
	}
	if ok {
		logger.C(logger.WithJob(ctx, id.String())).Info().Str("status", string(j.Status)).Msg("cancel requested")
		return j, nil
	}
	j, err = s.repo.Get(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	if j.Status == domain.StatusCancelled {
		return j, nil
	}
	return domain.Job{}, perr.Conflictf("job %s is %s", id, j.Status)
}

// Resume is the manual resume: paused becomes running, attempts and attention are reset and
// a continuation is scheduled at the persisted cursor
func (s *Service) Resume(ctx context.Context, id uuid.UUID) (domain.Job, error) {
	release, err := s.beginResume(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	defer release()

	j, ok, err := s.repo.ManualResume(ctx, id, s.now())
	if err != nil {
		return domain.Job{}, err
	}
	if !ok {
		if j, err = s.repo.Get(ctx, id); err != nil {
			return domain.Job{}, err
		}
		return domain.Job{}, perr.Conflictf("job %s is %s", id, j.Status)
	}
	logger.C(logger.WithJob(ctx, id.String())).Info().Any("cursor", j.Cursor).Msg("job resumed")
	s.schedule(ctx, id, j.Cursor)
	return j, nil
}

// ForceResume is the watchdog resume of a stalled running job. It gives up with
// ErrAttemptsExhausted once maxAttempts resumes in a row made no progress
func (s *Service) ForceResume(ctx context.Context, id uuid.UUID, maxAttempts int) (domain.Job, error) {
	release, err := s.beginResume(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	defer release()

	log := logger.C(logger.WithJob(ctx, id.String()))
	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	if j.Status != domain.StatusRunning {
		return j, perr.Conflictf("job %s is %s", id, j.Status)
	}
	if j.AutoResumeAttempts >= maxAttempts {
		if !j.NeedsAttention {
			if j, err = s.repo.MarkNeedsAttention(ctx, id, s.now()); err != nil {
				return domain.Job{}, err
			}
		}
		return j, domain.ErrAttemptsExhausted
	}

	now := s.now()
	rewind := now.Add(-(s.cfg.StallAfter + rewindMargin))
	j, ok, err := s.repo.AutoResume(ctx, id, rewind, now)
	if err != nil {
		return domain.Job{}, err
	}
	if !ok {
		return j, perr.Conflictf("job %s left running", id)
	}
	log.Warn().Int("attempt", j.AutoResumeAttempts).Int("max", maxAttempts).Any("cursor", j.Cursor).Msg("forcing resume of stalled job")
	s.schedule(ctx, id, j.Cursor)
	return j, nil
}

// beginResume takes the per job resume flag and returns its release
func (s *Service) beginResume(ctx context.Context, id uuid.UUID) (func(), error) {
	now := s.now()
	_, ok, err := s.repo.BeginResume(ctx, id, now, now.Add(-s.cfg.ResumeLease))
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := s.repo.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, perr.Wrap(domain.ErrResumeInFlight, perr.ErrorCodeConflict, "resume in flight")
	}
	return func() {
		rctx, cancel := guardrails.Detached(ctx, s.cfg.Timeouts.DB)
		defer cancel()
		if err := s.repo.EndResume(rctx, id); err != nil {
			logger.C(ctx).Warn().Err(err).Msg("resume flag not released")
		}
	}, nil
}

// Stalled lists running jobs with no activity for idleFor
func (s *Service) Stalled(ctx context.Context, idleFor time.Duration, limit int) ([]domain.Job, error) {
	return s.repo.Stalled(ctx, s.now().Add(-idleFor), limit)
}
