package repo

import (
	"context"
	"slices"
	"sync"
	"time"

	"cancioneiro/internal/modkit/repokit"
	perr "cancioneiro/internal/platform/errors"
	tim "cancioneiro/internal/platform/time"
	"cancioneiro/internal/services/jobs/domain"

	"github.com/google/uuid"
)

// Memory is a process local job repo with the same conditional semantics as PG
type Memory struct {
	mu    sync.Mutex
	jobs  map[uuid.UUID]*domain.Job
	items map[uuid.UUID][]string
}

// NewMemory returns an empty in-memory job repo
func NewMemory() *Memory {
	return &Memory{jobs: map[uuid.UUID]*domain.Job{}, items: map[uuid.UUID][]string{}}
}

// Bind satisfies repokit.Binder; the queryer is ignored
func (m *Memory) Bind(repokit.Queryer) domain.Repo { return m }

// Items returns the snapshotted words of a job
func (m *Memory) Items(id uuid.UUID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items[id])
}

func (m *Memory) Insert(_ context.Context, j domain.Job, items []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[j.ID]; ok {
		return perr.DuplicateKeyf("job %s exists", j.ID)
	}
	cp := j
	m.jobs[j.ID] = &cp
	if len(items) > 0 {
		m.items[j.ID] = slices.Clone(items)
	}
	return nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, perr.NotFoundf("job %s not found", id)
	}
	return *j, nil
}

func (m *Memory) List(_ context.Context, f domain.ListFilter) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if f.Status != "" && j.Status != f.Status {
			continue
		}
		out = append(out, *j)
	}
	slices.SortFunc(out, func(a, b domain.Job) int { return b.CreatedAt.Compare(a.CreatedAt) })
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// update runs fn on the stored job under the lock; fn reports whether it applied
func (m *Memory) update(id uuid.UUID, fn func(j *domain.Job) bool) (domain.Job, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, false, nil
	}
	if !fn(j) {
		return domain.Job{}, false, nil
	}
	return *j, true, nil
}

func (m *Memory) Claim(_ context.Context, id uuid.UUID, cur domain.Cursor, now, staleBefore time.Time) (domain.Job, bool, error) {
	return m.update(id, func(j *domain.Job) bool {
		if j.Status != domain.StatusQueued && j.Status != domain.StatusRunning {
			return false
		}
		if j.Cursor != cur {
			return false
		}
		if j.InFlight && !j.LastActivityAt.IsZero() && !j.LastActivityAt.Before(staleBefore) {
			return false
		}
		j.Status = domain.StatusRunning
		j.InFlight = true
		j.LastActivityAt = now
		if j.StartedAt == nil {
			j.StartedAt = tim.Ptr(now)
		}
		j.UpdatedAt = now
		return true
	})
}

func (m *Memory) Advance(_ context.Context, id uuid.UUID, from domain.Cursor, a domain.Advance) (domain.Job, bool, error) {
	return m.update(id, func(j *domain.Job) bool {
		if j.Status != domain.StatusRunning || !j.InFlight || j.Cursor != from {
			return false
		}
		j.Cursor = a.To
		j.Processed += a.Units
		j.ProducedNew += a.New
		j.ProducedCached += a.Cached
		j.ChunksDone++
		j.LastActivityAt = a.Now
		j.InFlight = false
		j.AutoResumeAttempts = 0
		switch {
		case a.Done:
			j.Status = domain.StatusCompleted
			j.FinishedAt = tim.Ptr(a.Now)
		case j.CancelRequested:
			j.Status = domain.StatusCancelled
			j.FinishedAt = tim.Ptr(a.Now)
		case j.PauseRequested:
			j.Status = domain.StatusPaused
			j.PauseCount++
		}
		j.PauseRequested = false
		j.UpdatedAt = a.Now
		return true
	})
}

func (m *Memory) Fail(ctx context.Context, id uuid.UUID, msg string, now time.Time) (domain.Job, error) {
	j, ok, _ := m.update(id, func(j *domain.Job) bool {
		if j.Status != domain.StatusQueued && j.Status != domain.StatusRunning {
			return false
		}
		j.Status = domain.StatusFailed
		j.ErrorMessage = msg
		j.InFlight = false
		j.FinishedAt = tim.Ptr(now)
		j.UpdatedAt = now
		return true
	})
	if !ok {
		return m.Get(ctx, id)
	}
	return j, nil
}

func (m *Memory) RequestPause(_ context.Context, id uuid.UUID, now time.Time) (domain.Job, bool, error) {
	return m.update(id, func(j *domain.Job) bool {
		switch j.Status {
		case domain.StatusQueued:
			j.Status = domain.StatusPaused
			j.PauseCount++
		case domain.StatusRunning:
			j.PauseRequested = true
		default:
			return false
		}
		j.UpdatedAt = now
		return true
	})
}

func (m *Memory) RequestCancel(_ context.Context, id uuid.UUID, now time.Time) (domain.Job, bool, error) {
	return m.update(id, func(j *domain.Job) bool {
		switch j.Status {
		case domain.StatusQueued, domain.StatusPaused:
			j.Status = domain.StatusCancelled
			j.FinishedAt = tim.Ptr(now)
		case domain.StatusRunning:
			j.CancelRequested = true
		default:
			return false
		}
		j.UpdatedAt = now
		return true
	})
}

func (m *Memory) BeginResume(_ context.Context, id uuid.UUID, now, leaseBefore time.Time) (domain.Job, bool, error) {
	return m.update(id, func(j *domain.Job) bool {
		if j.Resuming && j.ResumingAt != nil && !j.ResumingAt.Before(leaseBefore) {
			return false
		}
		j.Resuming = true
		j.ResumingAt = tim.Ptr(now)
		return true
	})
}

func (m *Memory) EndResume(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		j.Resuming = false
		j.ResumingAt = nil
	}
	return nil
}

func (m *Memory) ManualResume(_ context.Context, id uuid.UUID, now time.Time) (domain.Job, bool, error) {
	return m.update(id, func(j *domain.Job) bool {
		switch j.Status {
		case domain.StatusQueued, domain.StatusRunning, domain.StatusPaused:
		default:
			return false
		}
		if j.Status == domain.StatusPaused {
			j.Status = domain.StatusRunning
		}
		j.PauseRequested = false
		j.AutoResumeAttempts = 0
		j.NeedsAttention = false
		j.UpdatedAt = now
		return true
	})
}

func (m *Memory) AutoResume(_ context.Context, id uuid.UUID, rewindTo, now time.Time) (domain.Job, bool, error) {
	return m.update(id, func(j *domain.Job) bool {
		if j.Status != domain.StatusRunning {
			return false
		}
		j.AutoResumeAttempts++
		j.LastActivityAt = rewindTo
		j.UpdatedAt = now
		return true
	})
}

func (m *Memory) MarkNeedsAttention(_ context.Context, id uuid.UUID, now time.Time) (domain.Job, error) {
	j, ok, _ := m.update(id, func(j *domain.Job) bool {
		j.NeedsAttention = true
		j.UpdatedAt = now
		return true
	})
	if !ok {
		return domain.Job{}, perr.NotFoundf("job %s not found", id)
	}
	return j, nil
}

func (m *Memory) Stalled(_ context.Context, before time.Time, limit int) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Job
	for _, j := range m.jobs {
		if j.Status != domain.StatusRunning || j.NeedsAttention {
			continue
		}
		if !j.LastActivityAt.IsZero() && !j.LastActivityAt.Before(before) {
			continue
		}
		out = append(out, *j)
	}
	slices.SortFunc(out, func(a, b domain.Job) int { return a.LastActivityAt.Compare(b.LastActivityAt) })
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
