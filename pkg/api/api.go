package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/pprof"

	"go.uber.org/fx"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/elee1766/gozfs/pkg/config"
	"github.com/elee1766/gozfs/pkg/handlers"
	"github.com/elee1766/gozfs/pkg/metrics"
)

var Module = fx.Module("api",
	fx.Provide(
		NewServer,
		handlers.NewHealthHandler,
		handlers.NewDatasetHandler,
		handlers.NewHistoryHandler,
	),
	fx.Invoke(registerHooks),
)

type Server struct {
	http   *http.Server
	logger *slog.Logger
}

type HandlerParams struct {
	fx.In

	Health  *handlers.HealthHandler
	Dataset *handlers.DatasetHandler
	History *handlers.HistoryHandler
}

type ServerParams struct {
	fx.In

	Config   *config.Config
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Handlers HandlerParams
}

func NewServer(p ServerParams) *Server {
	logger := p.Logger.With("component", "api")
	h := p.Handlers

	mux := http.NewServeMux()

	mux.Handle(handlers.NewHealthServiceHandler(h.Health))
	mux.Handle(handlers.NewDatasetServiceHandler(h.Dataset))
	mux.Handle(handlers.NewHistoryServiceHandler(h.History))

	mux.Handle("/metrics", p.Metrics.Handler())

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	logger.Info("pprof endpoints enabled at /debug/pprof/")

	// Use h2c for HTTP/2 without TLS
	h2cHandler := h2c.NewHandler(mux, &http2.Server{})

	return &Server{
		http: &http.Server{
			Addr:    p.Config.APIAddress,
			Handler: h2cHandler,
		},
		logger: logger,
	}
}

func (s *Server) Addr() string { return s.http.Addr }

func (s *Server) Handler() http.Handler { return s.http.Handler }

func registerHooks(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				s.logger.Info("starting api server", "address", s.http.Addr)
				if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.logger.Error("api server error", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.logger.Info("stopping api server")
			return s.http.Shutdown(ctx)
		},
	})
}
