// Package http serves the meta routes: liveness, readiness, build info and the taxonomy
package http

import (
	"context"
	"net/http"
	"time"

	"cancioneiro/internal/core/taxonomy"
	"cancioneiro/internal/core/version"
	"cancioneiro/internal/modkit/httpkit"

	"golang.org/x/sync/errgroup"
)

// ReadyTimeout bounds all readiness pings together
const ReadyTimeout = 2 * time.Second

// Pinger is a backend readiness can ask
type Pinger interface {
	Ping(context.Context) error
}

// Deps are the handler dependencies. PG and CH may be nil when that backend is off,
// a backend that cannot be pinged reports unknown
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	PG          any
	CH          any
}

type handlers struct{ deps Deps }

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d}
	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", func(*http.Request) (any, error) { return version.Info(), nil })
	httpkit.Get(r, "/service", h.service)
	httpkit.Get(r, "/taxonomy", func(*http.Request) (any, error) {
		return TaxonomyResponse{Domains: taxonomy.All(), Unclassified: taxonomy.Unclassified}, nil
	})
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"      example:"true"`
	Service string `json:"service" example:"cancioneiro-api"`
	Started string `json:"started" example:"2026-03-01T09:00:00Z"`
	Now     string `json:"now"     example:"2026-03-01T09:05:00Z"`
}

// ReadyCheck is one backend's answer
type ReadyCheck struct {
	Name    string `json:"name"    example:"pg"`
	Status  string `json:"status"  example:"ok" enums:"ok,fail,skipped,unknown"`
	Elapsed string `json:"elapsed,omitempty" example:"1.2ms"`
	Error   string `json:"error,omitempty" example:"dial tcp 127.0.0.1:5432: connect: connection refused"`
}

// ReadyResponse rolls the checks up: any fail is fail, an unknown degrades,
// skipped backends are simply off
type ReadyResponse struct {
	Status string       `json:"status" example:"ok" enums:"ok,degraded,fail"`
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"    example:"2026-03-01T09:05:00Z"`
}

// ServiceResponse is the name and uptime in seconds
type ServiceResponse struct {
	Name    string `json:"name"    example:"cancioneiro-api"`
	Started string `json:"started" example:"2026-03-01T09:00:00Z"`
	Uptime  int64  `json:"uptime"  example:"300"`
}

// TaxonomyResponse lists the semantic domains a word may be classified into
type TaxonomyResponse struct {
	Domains      []taxonomy.Domain `json:"domains"`
	Unclassified taxonomy.Code     `json:"unclassified" example:"NC"`
}

// health godoc
// @Summary Liveness
// @Tags Meta
// @Produce json
// @Success 200 {object} httpkit.Envelope{data=HealthResponse}
// @Router /meta/health [get]
func (h *handlers) health(*http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: stamp(h.deps.StartedAt),
		Now:     stamp(time.Now()),
	}, nil
}

// ready godoc
// @Summary Readiness with a ping per backend
// @Tags Meta
// @Produce json
// @Success 200 {object} httpkit.Envelope{data=ReadyResponse}
// @Failure 503 {object} httpkit.Envelope{data=ReadyResponse}
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), ReadyTimeout)
	defer cancel()

	backends := []struct {
		name string
		seam any
	}{{"pg", h.deps.PG}, {"ch", h.deps.CH}}
	checks := make([]ReadyCheck, len(backends))

	var g errgroup.Group
	for i, b := range backends {
		g.Go(func() error {
			checks[i] = ping(ctx, b.name, b.seam)
			return nil
		})
	}
	_ = g.Wait()

	out := ReadyResponse{Status: "ok", Checks: checks, Now: stamp(time.Now())}
	for _, c := range checks {
		switch {
		case c.Status == "fail":
			out.Status = "fail"
		case c.Status == "unknown" && out.Status == "ok":
			out.Status = "degraded"
		}
	}
	if out.Status == "fail" {
		return httpkit.Response{Status: http.StatusServiceUnavailable, Body: out}, nil
	}
	return out, nil
}

func ping(ctx context.Context, name string, seam any) ReadyCheck {
	if seam == nil {
		return ReadyCheck{Name: name, Status: "skipped"}
	}
	p, ok := seam.(Pinger)
	if !ok {
		return ReadyCheck{Name: name, Status: "unknown"}
	}
	start := time.Now()
	err := p.Ping(ctx)
	c := ReadyCheck{Name: name, Status: "ok", Elapsed: time.Since(start).Round(time.Microsecond).String()}
	if err != nil {
		c.Status, c.Error = "fail", err.Error()
	}
	return c
}

// service godoc
// @Summary Service name and uptime
// @Tags Meta
// @Produce json
// @Success 200 {object} httpkit.Envelope{data=ServiceResponse}
// @Router /meta/service [get]
func (h *handlers) service(*http.Request) (any, error) {
	return ServiceResponse{
		Name:    h.deps.ServiceName,
		Started: stamp(h.deps.StartedAt),
		Uptime:  int64(time.Since(h.deps.StartedAt) / time.Second),
	}, nil
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }
