package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/workforce-export-api/api/swagger"
	"github.com/noah-isme/workforce-export-api/internal/handler"
	internalmiddleware "github.com/noah-isme/workforce-export-api/internal/middleware"
	"github.com/noah-isme/workforce-export-api/internal/repository"
	"github.com/noah-isme/workforce-export-api/internal/service"
	"github.com/noah-isme/workforce-export-api/pkg/cache"
	"github.com/noah-isme/workforce-export-api/pkg/config"
	"github.com/noah-isme/workforce-export-api/pkg/database"
	"github.com/noah-isme/workforce-export-api/pkg/jobs"
	"github.com/noah-isme/workforce-export-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/workforce-export-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/workforce-export-api/pkg/middleware/requestid"
	"github.com/noah-isme/workforce-export-api/pkg/storage"
	"github.com/noah-isme/workforce-export-api/pkg/upstream"
)

// @title Workforce Export API
// @version 1.0.0
// @description Attendance and work-hour report exports (CSV, XLSX, PDF)
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck
	if err := database.EnsureSchema(ctx, db); err != nil {
		logr.Fatal("failed to prepare schema", zap.Error(err))
	}

	var redisClient *redis.Client
	if client, err := cache.NewRedis(ctx, cfg.Redis); err != nil {
		logr.Warn("redis unavailable, progress snapshots disabled", zap.Error(err))
	} else {
		redisClient = client
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	reportRepo := repository.NewReportRepository(db).WithObserver(metricsSvc)
	progressRepo := repository.NewCacheRepository(redisClient, metricsSvc, logr)
	defer progressRepo.Close() //nolint:errcheck

	upstreamClient := upstream.NewClient(cfg.Upstream, nil, logr)
	fetcher := service.NewAttendanceFetcher(upstreamClient, cfg.Upstream.AttendancePath, cfg.Export.BatchSize, validate, logr)
	exporter := service.NewExportService(fetcher, nil, service.ExportSettings{
		ExcelChunkSize: cfg.Export.ExcelChunkSize,
		PDFRowCap:      cfg.Export.PDFRowCap,
		Timezone:       cfg.Export.Timezone,
	}, metricsSvc, logr)

	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	apiPrefix := strings.TrimRight(cfg.APIPrefix, "/")
	worker := service.NewExportWorker(reportRepo, progressRepo, exporter, store, signer, service.ExportWorkerConfig{
		ProgressTTL:    cfg.Reports.ProgressTTL,
		DownloadPrefix: apiPrefix + "/export",
	}, logr)

	queue := jobs.NewQueue(service.ExportJobType, worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: 0,
		OnFailure:  worker.Exhausted,
		Logger:     logr,
	})

	reportSvc := service.NewReportService(reportRepo, progressRepo, queue, exporter, store, signer, validate, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})

	if cfg.Reports.Enabled {
		queue.Start(ctx)
		defer queue.Stop()
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})

	readiness := map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if redisClient != nil {
		readiness["redis"] = func(ctx context.Context) error { return cache.Ping(ctx, redisClient) }
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, readiness)
	reportHandler := handler.NewReportHandler(reportSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(apiPrefix)
	// Signed links carry their own authorization.
	api.GET("/export/:token", reportHandler.DownloadReport)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc), internalmiddleware.RequireRoles(internalmiddleware.ExportRoles...))
	secured.POST("/exports/direct", reportHandler.DirectExport)
	secured.GET("/metrics/exports", metricsHandler.Summary)
	if cfg.Reports.Enabled {
		secured.POST("/exports", reportHandler.GenerateReport)
		secured.GET("/exports/:id", reportHandler.ReportStatus)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "reports", cfg.Reports.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
