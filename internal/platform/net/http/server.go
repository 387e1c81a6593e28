package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"cancioneiro/internal/platform/config"
	"cancioneiro/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// DefaultShutdownGrace is how long Run waits for in-flight requests
const DefaultShutdownGrace = 10 * time.Second

// Server owns the root chi mux and the listener
type Server struct {
	mux   *chi.Mux
	srv   *stdhttp.Server
	grace time.Duration
}

// NewServer reads PORT (default :4000), READ_HEADER_TIMEOUT and SHUTDOWN_GRACE
// from cfg, usually the CORE_API_ prefix
func NewServer(cfg config.Conf) *Server {
	m := chi.NewRouter()
	return &Server{
		mux:   m,
		grace: cfg.MayDuration("SHUTDOWN_GRACE", DefaultShutdownGrace),
		srv: &stdhttp.Server{
			Addr:              cfg.MayString("PORT", ":4000"),
			Handler:           m,
			ReadHeaderTimeout: cfg.MayDuration("READ_HEADER_TIMEOUT", 10*time.Second),
		},
	}
}

// Router returns the mux as a Router
func (s *Server) Router() Router { return AdaptChi(s.mux) }

// Addr is the configured listen address
func (s *Server) Addr() string { return s.srv.Addr }

// Run serves until ctx ends, then drains in-flight requests for the grace period.
// A listen failure is returned as is
func (s *Server) Run(ctx context.Context) error {
	log := logger.Named("http")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", s.srv.Addr).Msg("http listening")
		if err := s.srv.ListenAndServe(); !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Dur("grace", s.grace).Msg("http shutting down")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.grace)
		defer cancel()
		return s.srv.Shutdown(sctx)
	})
	return g.Wait()
}
