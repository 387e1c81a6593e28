// Package http provides http transport for annotation jobs
package http

import (
	"context"
	stdhttp "net/http"
	"strconv"
	"time"

	"cancioneiro/internal/modkit/httpkit"
	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/platform/logger"
	"cancioneiro/internal/services/jobs/domain"

	"github.com/google/uuid"
)

// Register mounts the routes. chunkTimeout bounds a continuation that runs after the 202 reply
func Register(r httpkit.Router, svc domain.Ports, chunkTimeout time.Duration) {
	h := &handlers{svc: svc, chunkTimeout: chunkTimeout}
	httpkit.PostJSON[domain.CreateInput](r, "/", h.create)
	httpkit.Get(r, "/", h.list)
	httpkit.Get(r, "/{id}", h.get)
	httpkit.PostJSON[domain.ContinueInput](r, "/{id}/continue", h.next)
	httpkit.Post(r, "/{id}/pause", h.pause)
	httpkit.Post(r, "/{id}/resume", h.resume)
	httpkit.Post(r, "/{id}/cancel", h.cancel)
}

type handlers struct {
	svc          domain.Ports
	chunkTimeout time.Duration
}

func jobID(r *stdhttp.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(httpkit.Param(r, "id"))
	if err != nil {
		return uuid.Nil, perr.InvalidArgf("invalid job id %q", httpkit.Param(r, "id"))
	}
	return id, nil
}

// swagger:route POST /jobs Jobs create
// @Summary Create an annotation job
// @Tags jobs
// @Accept json
// @Produce json
// @Param payload body domain.CreateInput true "Job"
// @Success 201 {object} domain.Job "created"
// @Failure 404 {object} httpkit.Envelope "unknown artist or corpus"
// @Failure 422 {object} httpkit.Envelope "invalid input"
// @Router /jobs [post]
func (h *handlers) create(r *stdhttp.Request, in domain.CreateInput) (any, error) {
	j, err := h.svc.Create(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(j), nil
}

// swagger:route GET /jobs Jobs list
// @Summary List jobs newest first
// @Tags jobs
// @Produce json
// @Param status query string false "Status filter"
// @Param limit query int false "Max jobs"
// @Success 200 {array} domain.View "ok"
// @Router /jobs [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	q := r.URL.Query()
	f := domain.ListFilter{Status: domain.Status(q.Get("status"))}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return nil, perr.InvalidArgf("invalid limit %q", s)
		}
		f.Limit = n
	}
	return h.svc.List(r.Context(), f)
}

// swagger:route GET /jobs/{id} Jobs get
// @Summary Job status and progress
// @Tags jobs
// @Produce json
// @Param id path string true "Job id"
// @Success 200 {object} domain.View "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /jobs/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	id, err := jobID(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Get(r.Context(), id)
}

// swagger:route POST /jobs/{id}/continue Jobs continue
// @Summary Process the next chunk at the given cursor
// @Description Replies 202 and runs the chunk after the reply unless wait is set
// @Tags jobs
// @Accept json
// @Produce json
// @Param id path string true "Job id"
// @Param payload body domain.ContinueInput true "Cursor"
// @Success 200 {object} domain.Outcome "chunk ran inside the request"
// @Success 202 {object} domain.ContinueInput "accepted"
// @Router /jobs/{id}/continue [post]
func (h *handlers) next(r *stdhttp.Request, in domain.ContinueInput) (any, error) {
	id, err := jobID(r)
	if err != nil {
		return nil, err
	}
	if in.Wait {
		return h.svc.ProcessNext(r.Context(), id, in.Cursor)
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		if h.chunkTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.chunkTimeout)
			defer cancel()
		}
		if _, err := h.svc.ProcessNext(ctx, id, in.Cursor); err != nil {
			logger.C(ctx).Error().Err(err).Str("job_id", id.String()).Msg("continuation failed")
		}
	}()
	return httpkit.Accepted(in), nil
}

// swagger:route POST /jobs/{id}/pause Jobs pause
// @Summary Pause a job at the next chunk boundary
// @Tags jobs
// @Produce json
// @Param id path string true "Job id"
// @Success 200 {object} domain.Job "ok"
// @Failure 409 {object} httpkit.Envelope "job already finished"
// @Router /jobs/{id}/pause [post]
func (h *handlers) pause(r *stdhttp.Request) (any, error) {
	return h.transition(r, h.svc.Pause)
}

// swagger:route POST /jobs/{id}/resume Jobs resume
// @Summary Resume a paused or stuck job
// @Tags jobs
// @Produce json
// @Param id path string true "Job id"
// @Success 200 {object} domain.Job "ok"
// @Failure 409 {object} httpkit.Envelope "job finished or resume in flight"
// @Router /jobs/{id}/resume [post]
func (h *handlers) resume(r *stdhttp.Request) (any, error) {
	return h.transition(r, h.svc.Resume)
}

// swagger:route POST /jobs/{id}/cancel Jobs cancel
// @Summary Cancel a job at the next chunk boundary
// @Tags jobs
// @Produce json
// @Param id path string true "Job id"
// @Success 200 {object} domain.Job "ok"
// @Failure 409 {object} httpkit.Envelope "job already finished"
// @Router /jobs/{id}/cancel [post]
func (h *handlers) cancel(r *stdhttp.Request) (any, error) {
	return h.transition(r, h.svc.Cancel)
}

func (h *handlers) transition(r *stdhttp.Request, fn func(context.Context, uuid.UUID) (domain.Job, error)) (any, error) {
	id, err := jobID(r)
	if err != nil {
		return nil, err
	}
	return fn(r.Context(), id)
}
