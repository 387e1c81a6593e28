// Package http provides http transport for stats
package http

import (
	stdhttp "net/http"

	"cancioneiro/internal/modkit/httpkit"
	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/services/api/stats/domain"

	"github.com/google/uuid"
)

// Register mounts stats endpoints on the given router
func Register(r httpkit.Router, s domain.ServicePort) {
	h := &handlers{svc: s}

	// per job token breakdown
	httpkit.Get(r, "/jobs/{id}", h.breakdown)

	// units per job kind from the analytics mirror
	httpkit.PostJSON[domain.EventsInput](r, "/events", h.events)
}

type handlers struct{ svc domain.ServicePort }

// swagger:route GET /stats/jobs/{id} Stats statsBreakdown
// @Summary Token breakdown of one job by source, origin, domain and POS
// @Tags Stats
// @Produce json
// @Param id path string true "Job id"
// @Success 200 {object} domain.Breakdown "ok"
// @Router /stats/jobs/{id} [get]
func (h *handlers) breakdown(r *stdhttp.Request) (any, error) {
	id, err := uuid.Parse(httpkit.Param(r, "id"))
	if err != nil {
		return nil, perr.InvalidArgf("invalid job id %q", httpkit.Param(r, "id"))
	}
	return h.svc.Breakdown(r.Context(), id)
}

// swagger:route POST /stats/events Stats statsEvents
// @Summary Units processed per job kind
// @Tags Stats
// @Accept json
// @Produce json
// @Param payload body domain.EventsInput true "Query"
// @Success 200 {array} domain.KindTotal "ok"
// @Router /stats/events [post]
func (h *handlers) events(r *stdhttp.Request, in domain.EventsInput) (any, error) {
	return h.svc.Events(r.Context(), in)
}
