package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"ratewatch/internal/domain/models"
	"ratewatch/internal/usecase"
	pkgcache "ratewatch/pkg/cache"
	"ratewatch/pkg/config"
	xhttp "ratewatch/pkg/http"
	pkgkafka "ratewatch/pkg/kafka"
	applogger "ratewatch/pkg/logger"
	pkgpg "ratewatch/pkg/postgres"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	l         *applogger.Logger
	ingest    *usecase.IngestUseCase
	retention *usecase.RetentionUseCase
	consumer  *pkgkafka.Consumer
	kh        pkgkafka.MessageHandler
	pgClient  *pkgpg.Client
	backend   pkgcache.Service

	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	scheduler   *cron.Cron
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	ingest *usecase.IngestUseCase,
	retention *usecase.RetentionUseCase,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	pgClient *pkgpg.Client,
	backend pkgcache.Service,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		ingest:    ingest,
		retention: retention,
		consumer:  consumer,
		kh:        kh,
		pgClient:  pgClient,
		backend:   backend,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetrics(a.l, 2*time.Second),
	)

	if err := a.startScheduler(ctx); err != nil {
		return err
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// startScheduler registers the periodic ingestion and retention jobs.
func (a *App) startScheduler(ctx context.Context) error {
	a.scheduler = cron.New()

	_, err := a.scheduler.AddFunc(a.cfg.Ingestion.Schedule, func() {
		summary := a.ingest.Run(ctx, models.IngestParams{InvalidateCache: true})
		a.l.Info("scheduled ingestion run",
			applogger.Int("succeeded", len(summary.Succeeded)),
			applogger.Int("failed", len(summary.Failed)),
			applogger.Duration("duration_ms", summary.Duration),
		)
	})
	if err != nil {
		return err
	}

	if a.retention != nil && a.cfg.Retention.Enabled {
		if _, err := a.scheduler.AddFunc(a.cfg.Retention.Schedule, func() {
			if _, err := a.retention.Run(ctx); err != nil {
				a.l.Error("retention run error", applogger.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	a.scheduler.Start()
	a.l.Info("scheduler started",
		applogger.String("ingestion_schedule", a.cfg.Ingestion.Schedule),
		applogger.Bool("retention", a.cfg.Retention.Enabled),
	)
	return nil
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.scheduler != nil {
		stopCtx := a.scheduler.Stop()
		<-stopCtx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.l.Warn("cache close error", applogger.Error(err))
		}
	}

	if a.pgClient != nil {
		if err := a.pgClient.Close(); err != nil {
			a.l.Warn("postgres close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
