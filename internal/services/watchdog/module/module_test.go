package module

import (
	"context"
	"testing"
	"time"

	"cancioneiro/internal/modkit"
	"cancioneiro/internal/platform/config"
	jobsdomain "cancioneiro/internal/services/jobs/domain"

	"github.com/google/uuid"
)

type noJobs struct{}

func (noJobs) Stalled(context.Context, time.Duration, int) ([]jobsdomain.Job, error) {
	return nil, nil
}

func (noJobs) ForceResume(context.Context, uuid.UUID, int) (jobsdomain.Job, error) {
	return jobsdomain.Job{}, nil
}

func TestFromConfig_Defaults(t *testing.T) {
	t.Parallel()
	o := FromConfig(config.New())
	if !o.Enabled || o.Interval != time.Minute || o.StallAfter != 10*time.Minute || o.MaxAttempts != 3 || o.Concurrency != 4 || o.RatePerSec != 2 {
		t.Fatalf("defaults = %+v", o)
	}
}

func TestNew_Ports(t *testing.T) {
	t.Parallel()
	m := New(modkit.Deps{Cfg: config.New()}, noJobs{}, Options{MaxAttempts: 5})
	p, ok := m.Ports().(Ports)
	if !ok || p.Watchdog == nil || !p.Enabled {
		t.Fatalf("ports = %+v", m.Ports())
	}
	if m.Name() != "watchdog" || m.Prefix() != "" {
		t.Fatalf("name=%q prefix=%q", m.Name(), m.Prefix())
	}
	rep, err := p.Watchdog.SweepOnce(context.Background())
	if err != nil || rep.Stalled != 0 {
		t.Fatalf("sweep = %+v %v", rep, err)
	}
}
