package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/agepredict-backend/internal/config"
	httpserver "github.com/yungbote/agepredict-backend/internal/http"
	"github.com/yungbote/agepredict-backend/internal/observability"
	"github.com/yungbote/agepredict-backend/internal/platform/logger"
	"github.com/yungbote/agepredict-backend/internal/session"
)

const gaugeInterval = 15 * time.Second

type App struct {
	Log      *logger.Logger
	Cfg      *config.Config
	Clients  Clients
	Services Services
	Registry *session.Registry
	Metrics  *observability.Metrics
	Server   *httpserver.Server

	otelShutdown func(context.Context) error
}

// Version is stamped into traces; set by the linker.
var Version = "dev"

func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if log == nil {
		return nil, errors.New("logger required")
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OTel.Enabled,
		ServiceName: cfg.OTel.ServiceName,
		Environment: cfg.Env,
		Version:     Version,
		Endpoint:    cfg.OTel.Endpoint,
		Insecure:    cfg.OTel.Insecure,
		SampleRatio: cfg.OTel.SampleRatio,
	})

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.MustNewMetrics(observability.NewRegistry())
	}

	registry := session.NewRegistry(session.RegistryOptions{
		MaxSessions: cfg.Sessions.MaxSessions,
		TTL:         cfg.Sessions.TTL,
		OnEvict: func(id string) {
			log.Debug("session evicted", "session_id", id)
		},
	})

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, err
	}

	services, err := wireServices(log, cfg, clients, registry, metrics)
	if err != nil {
		_ = clients.Close()
		_ = otelShutdown(ctx)
		return nil, err
	}

	handlers := wireHandlers(log, cfg, services, registry)
	server := httpserver.NewServer(wireRouter(log, cfg, metrics, handlers), httpserver.ServerOptions{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	})

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Services:     services,
		Registry:     registry,
		Metrics:      metrics,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP until ctx is cancelled or the server fails, then shuts down
// gracefully within http.shutdown_timeout.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	ln, err := net.Listen("tcp", a.Cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Cfg.HTTP.Addr, err)
	}
	return a.serve(ctx, ln)
}

func (a *App) serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Log.Info("http server listening", "addr", ln.Addr().String())
		return a.Server.Serve(ln)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.Log.Info("http server shutting down")
		return a.Server.Shutdown(shutdownCtx)
	})

	if a.Metrics != nil {
		g.Go(func() error {
			t := time.NewTicker(gaugeInterval)
			defer t.Stop()
			for {
				a.Metrics.SetSessionsActive(a.Registry.Len())
				select {
				case <-gctx.Done():
					return nil
				case <-t.C:
				}
			}
		})
	}

	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Clients.Close(); err != nil && a.Log != nil {
		a.Log.Warn("close clients", "error", err)
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
