package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MarketPulse/internal/handler/api"
	"MarketPulse/internal/usecase"
	pkgch "MarketPulse/pkg/clickhouse"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	applogger "MarketPulse/pkg/logger"

	"github.com/go-co-op/gocron"
)

// App encapsulates the entire application lifecycle: seeding, the recurring
// pipeline tick and the HTTP surface.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	orch     *usecase.Orchestrator
	proc     *usecase.SampleProcessor
	hub      *api.TickHub
	handler  xhttp.Handler
	chClient *pkgch.Client

	scheduler  *gocron.Scheduler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. chClient may be nil
// when the clickhouse backend is disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	orch *usecase.Orchestrator,
	proc *usecase.SampleProcessor,
	hub *api.TickHub,
	handler xhttp.Handler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		orch:     orch,
		proc:     proc,
		hub:      hub,
		handler:  handler,
		chClient: chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.cfg.Pipeline.SeedOnStart {
		a.orch.Seed(ctx)
	}

	// SingletonMode: a slow tick is skipped rather than overlapped
	a.scheduler = gocron.NewScheduler(time.UTC)
	if _, err := a.scheduler.Every(a.cfg.Pipeline.Interval).SingletonMode().Do(func() {
		a.runTick(ctx)
	}); err != nil {
		return err
	}
	a.scheduler.StartAsync()
	a.log.Info("pipeline started",
		applogger.Strings("instruments", a.cfg.Pipeline.Instruments),
		applogger.Duration("interval_ms", a.cfg.Pipeline.Interval))

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) runTick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, 2*a.cfg.Pipeline.Interval)
	defer cancel()

	if _, err := a.orch.Tick(tickCtx); err != nil {
		a.log.Error("tick aborted", applogger.Error(err))
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if a.hub != nil {
		a.hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.proc != nil {
		a.proc.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
