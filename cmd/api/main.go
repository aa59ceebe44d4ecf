package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/procon/attendance-service/internal/api/http"
	"github.com/procon/attendance-service/internal/api/http/handlers"
	"github.com/procon/attendance-service/internal/auth"
	"github.com/procon/attendance-service/internal/config"
	"github.com/procon/attendance-service/internal/events"
	"github.com/procon/attendance-service/internal/observability"
	"github.com/procon/attendance-service/internal/panel"
	"github.com/procon/attendance-service/internal/persistence"
	"github.com/procon/attendance-service/internal/repository"
	"github.com/procon/attendance-service/internal/repository/memory"
	"github.com/procon/attendance-service/internal/service"
	"github.com/procon/attendance-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := observability.SetupTracing(ctx, cfg.App.Name, cfg.Telemetry, logger)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store repository.Store
	if pg.Configured() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(pg.PoolHandle())
	} else {
		mem := memory.New()
		if err := seedMemoryStore(ctx, mem); err != nil {
			logger.Fatal("failed to seed in-memory store", zap.Error(err))
		}
		store = mem
	}

	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer rdb.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	hub := panel.NewHub(logger)

	httpClient := panel.NewHTTPClient(cfg.Panel.PushTimeout())
	sinks := []panel.Sink{
		panel.NewWebhookSink(cfg.Panel.BaseURL, httpClient),
		panel.NewDeviceSink(cfg.Panel.DeviceURL, httpClient),
	}
	panelDeps := service.PanelDependencies{
		Store:       store,
		Dispatcher:  dispatcher,
		RosterSize:  cfg.Panel.RosterSize,
		HistorySize: cfg.Panel.HistorySize,
		Logger:      logger,
	}
	if rdb.Configured() {
		redisSink := panel.NewRedisSink(rdb.Client)
		sinks = append(sinks, redisSink)
		panelDeps.Cache = redisSink
		go panel.NewRelay(rdb.Client, hub, logger).Run(ctx)
	} else {
		sinks = append(sinks, panel.NewHubSink(hub))
	}
	panelDeps.Publisher = panel.NewPublisher(logger, metrics, sinks...)

	panelService := service.NewPanelService(panelDeps)
	panelService.RegisterHandlers()

	authService := service.NewAuthService(cfg.Auth, store.Repositories().Staff)
	if err := seedAdmin(ctx, authService, cfg.Auth, logger); err != nil {
		logger.Fatal("failed to seed admin account", zap.Error(err))
	}

	dispatchService := service.NewDispatchService(service.DispatchDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Ordering:   cfg.Queue.Ordering,
		Logger:     logger,
		Metrics:    metrics,
	})
	operationService := service.NewOperationService(service.OperationDependencies{
		Store:        store,
		Dispatcher:   dispatcher,
		FinishPolicy: cfg.Queue.FinishPolicy,
		Logger:       logger,
		Metrics:      metrics,
	})
	treatmentService := service.NewTreatmentService(service.TreatmentDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), store.Repositories().Staff)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    rdb,
		}),
		Staff:          handlers.NewStaffHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Queue:          handlers.NewQueueHandler(dispatchService, treatmentService),
		Operations:     handlers.NewOperationsHandler(operationService),
		Panel:          handlers.NewPanelHandler(panelService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	wsMux := http.NewServeMux()
	wsMux.Handle("/ws/panel", hub)
	wsServer := &http.Server{
		Addr:              cfg.Panel.WebSocketAddr,
		Handler:           wsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	refresher, err := worker.NewPanelRefresher(cfg.Panel.RefreshSchedule, panelService, cfg.Panel.PushTimeout(), logger)
	if err != nil {
		logger.Fatal("failed to schedule panel refresh", zap.Error(err))
	}
	refresher.Start()

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("panel websocket listening", zap.String("addr", cfg.Panel.WebSocketAddr))
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("panel websocket listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	refresher.Stop(shutdownCtx)
	cancel()
	_ = wsServer.Shutdown(shutdownCtx)
	_ = app.ShutdownWithContext(shutdownCtx)
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
