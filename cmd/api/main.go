package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jetbridge/checkin/internal/api"
	reservations "github.com/jetbridge/checkin/internal/client"
	"github.com/jetbridge/checkin/internal/ports"
	"github.com/jetbridge/checkin/internal/repository"
	"github.com/jetbridge/checkin/internal/scheduler"
	"github.com/jetbridge/checkin/internal/service"
	"github.com/jetbridge/checkin/internal/utils"
	"github.com/jetbridge/checkin/pkg/config"
	"github.com/jetbridge/checkin/pkg/health"
	"github.com/jetbridge/checkin/pkg/logger"
	"github.com/jetbridge/checkin/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	config     *config.Config
	log        logger.Logger
	metrics    *metrics.Metrics
	server     *http.Server
	db         *pgxpool.Pool
	dispatcher *scheduler.Dispatcher
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config:  cfg,
		log:     log,
		metrics: metrics.NewMetrics("checkin"),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.setupDatabase(ctx); err != nil {
		return fmt.Errorf("database setup failed: %w", err)
	}

	if err := a.setupServer(); err != nil {
		return fmt.Errorf("server setup failed: %w", err)
	}

	return nil
}

func (a *App) setupDatabase(ctx context.Context) error {
	poolConfig, err := pgxpool.ParseConfig(a.config.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = pool
	return nil
}

func (a *App) setupServer() error {
	services := a.setupServices()
	router := a.setupRouter(services)

	a.server = &http.Server{
		Addr:         a.config.Server.Address,
		Handler:      router,
		WriteTimeout: a.config.Server.WriteTimeout,
		ReadTimeout:  a.config.Server.ReadTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	return nil
}

type Services struct {
	CheckinService ports.CheckinService
}

func (a *App) setupServices() Services {
	triggerRepo := repository.NewTriggerRepository(a.db)
	timezoneRepo := repository.NewTimezoneRepository(a.db)

	reservationClient := reservations.NewClient(
		reservations.WithBaseURL(a.config.Reservations.BaseURL),
	)

	gateway := scheduler.NewGateway(triggerRepo, scheduler.Config{
		Region:       a.config.Scheduler.Region,
		AccountID:    a.config.Scheduler.AccountID,
		FunctionName: a.config.Scheduler.FunctionName,
	}, a.log)

	a.dispatcher = scheduler.NewDispatcher(triggerRepo, scheduler.DispatcherConfig{
		TargetURL:      a.config.Scheduler.TargetURL,
		PollInterval:   a.config.Scheduler.PollInterval,
		LeaseDuration:  a.config.Scheduler.LeaseDuration,
		FiredRetention: a.config.Scheduler.FiredRetention,
	}, a.log, a.metrics)

	return Services{
		CheckinService: service.NewCheckinService(reservationClient, timezoneRepo, gateway, a.log),
	}
}

func (a *App) setupRouter(services Services) http.Handler {
	router := http.NewServeMux()
	const versionPrefix = "/v1"

	router.HandleFunc(versionPrefix+"/health", health.HealthGet())
	router.Handle("/metrics", promhttp.Handler())

	checkinHandler := a.countRequests(utils.AllowedMethods(
		utils.AllowedContentTypes(
			api.ScheduleCheckinHandler(services.CheckinService, a.log),
			"application/json",
		),
		"POST",
	))
	router.HandleFunc(versionPrefix+"/checkin/schedule", checkinHandler)

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (a *App) countRequests(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		a.metrics.RequestsTotal.WithLabelValues(strconv.Itoa(rec.status)).Inc()
	}
}

func (a *App) Run(ctx context.Context) error {
	dispatcherCtx, stopDispatcher := context.WithCancel(ctx)
	defer stopDispatcher()
	go a.dispatcher.Run(dispatcherCtx)

	serverErrors := make(chan error, 1)

	go func() {
		a.log.Info("starting server", "address", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-shutdown:
		a.log.Info("starting graceful shutdown")
		return a.Shutdown(ctx)
	case <-ctx.Done():
		return a.Shutdown(ctx)
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if a.db != nil {
		a.db.Close()
	}

	return nil
}

func main() {
	ctx := context.Background()
	log := logger.NewLogger()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal("failed to load configuration", "error", err)
	}

	app := NewApp(cfg, log)
	if err := app.Initialize(ctx); err != nil {
		log.Fatal("failed to initialize application", "error", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatal("application error", "error", err)
	}
}
