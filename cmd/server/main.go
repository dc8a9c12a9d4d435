package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/record-review/internal/application/dispatcher"
	"github.com/garyjia/record-review/internal/application/service"
	"github.com/garyjia/record-review/internal/config"
	"github.com/garyjia/record-review/internal/infrastructure/export"
	"github.com/garyjia/record-review/internal/infrastructure/metrics"
	"github.com/garyjia/record-review/internal/infrastructure/persistence/repository"
	"github.com/garyjia/record-review/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/record-review/internal/infrastructure/worker"
	httpserver "github.com/garyjia/record-review/internal/interfaces/http"
	"github.com/garyjia/record-review/migrations"
	"github.com/garyjia/record-review/pkg/database"
	"github.com/garyjia/record-review/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file; empty uses defaults and env only")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting record review service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	var schema fs.FS = migrations.FS
	if cfg.Database.MigrationsDir != "" {
		schema = os.DirFS(cfg.Database.MigrationsDir)
	}
	if err := database.NewMigrator(db, logger).RunMigrations(context.Background(), schema); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	ceilings, err := cfg.BudgetCeilings()
	if err != nil {
		logger.Fatal("Invalid budget ceilings", zap.Error(err))
	}

	txDB := sqlite.NewDB(db.DB, logger)
	recordRepo := repository.NewRecordRepository(txDB, logger)

	kv := utils.NewKVLogger(logger)

	events := dispatcher.NewDispatcher(dispatcher.WithLogger(kv))
	defer events.Close()
	events.SubscribeAll("notification", service.NewNotificationHandler(logger))

	var (
		svcMetrics     service.Metrics
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		m := metrics.New()
		svcMetrics = m
		metricsHandler = m.Handler()
	}

	recordService := service.NewRecordService(
		recordRepo,
		txDB,
		kv,
		service.RecordServiceConfig{MaxRetries: cfg.Service.MaxRetries},
		service.WithDispatcher(events),
		service.WithMetrics(svcMetrics),
	)

	reportService := service.NewReportService(
		recordRepo,
		kv,
		service.ReportServiceConfig{
			Ceilings:      ceilings,
			DueSoonWindow: cfg.Service.DueSoonWindow,
		},
		nil,
		svcMetrics,
	)

	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			Mode:         cfg.Server.Mode,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			MetricsPath:  cfg.Metrics.Path,
		},
		recordService,
		reportService,
		export.NewExcelExporter(logger),
		metricsHandler,
		kv,
		httpserver.WithHealthCheck(db),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workers := worker.NewManager(logger)
	if cfg.Service.ReminderInterval > 0 {
		workers.Register(worker.NewDueReminder(reportService, events, cfg.Service.ReminderInterval, logger))
	}
	if err := workers.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}
	defer workers.StopAll()

	if err := server.Start(ctx); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		return
	}

	logger.Info("Server exited successfully")
}
