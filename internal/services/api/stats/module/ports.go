package module

import (
	"context"

	"cancioneiro/internal/services/api/stats/domain"
	statssvc "cancioneiro/internal/services/api/stats/service"

	"github.com/google/uuid"
)

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

type adaptStatsPort struct{ svc statssvc.Service }

// Breakdown groups the tokens of one job
func (a adaptStatsPort) Breakdown(ctx context.Context, id uuid.UUID) (domain.Breakdown, error) {
	return a.svc.Breakdown(ctx, id)
}

// Events returns units processed per job kind
func (a adaptStatsPort) Events(ctx context.Context, in domain.EventsInput) ([]domain.KindTotal, error) {
	return a.svc.Events(ctx, in)
}
