package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "KolTrack/internal/domain/repository"
	"KolTrack/internal/handler/api"
	"KolTrack/internal/usecase"
	"KolTrack/pkg/config"
	xhttp "KolTrack/pkg/http"
	applogger "KolTrack/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	store      domrepo.Store
	handler    *api.TrackerEchoHandler
	collector  *usecase.SwapCollector
	consumer   *usecase.SwapsConsumer
	scheduler  *usecase.LeaderboardScheduler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. collector and
// consumer may be nil when their feeds are disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	store domrepo.Store,
	handler *api.TrackerEchoHandler,
	collector *usecase.SwapCollector,
	consumer *usecase.SwapsConsumer,
	scheduler *usecase.LeaderboardScheduler,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		store:     store,
		handler:   handler,
		collector: collector,
		consumer:  consumer,
		scheduler: scheduler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithHealthCheck(a.store.Health),
	)

	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			a.log.Error("collector start error", applogger.Error(err))
		} else {
			a.log.Info("collector started",
				applogger.Any("wallets", a.cfg.Chainstream.Wallets))
		}
	}

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Run(ctx); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started",
			applogger.String("topic", a.cfg.Kafka.Topic))
	}

	go a.scheduler.Run(ctx)
	a.log.Info("leaderboard scheduler started",
		applogger.Any("windows", a.cfg.Leaderboard.Windows))

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	if a.collector != nil {
		if err := a.collector.Stop(); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("store close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
