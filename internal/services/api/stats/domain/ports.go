package domain

import (
	"context"

	"github.com/google/uuid"
)

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Breakdown(ctx context.Context, jobID uuid.UUID) (Breakdown, error)
	Events(ctx context.Context, in EventsInput) ([]KindTotal, error)
}
