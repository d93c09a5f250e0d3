package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurant-ordering-api/audit"
	"restaurant-ordering-api/cache"
	"restaurant-ordering-api/config"
	"restaurant-ordering-api/events"
	"restaurant-ordering-api/handlers"
	"restaurant-ordering-api/jobs"
	"restaurant-ordering-api/middleware"
	"restaurant-ordering-api/routes"
	"restaurant-ordering-api/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("APP_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	gin.SetMode(cfg.Server.Mode)

	db, err := config.OpenDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Database setup failed", zap.Error(err))
	}

	menuCache, err := cache.New(cfg.Cache)
	if err != nil {
		logger.Fatal("Cache setup failed", zap.Error(err))
	}

	var publisher events.Publisher = events.NewLogPublisher(logger)
	if len(cfg.Events.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		logger.Info("Publishing order events to Kafka", zap.Strings("brokers", cfg.Events.Brokers), zap.String("topic", cfg.Events.Topic))
	}

	var recorder audit.Recorder = audit.NewLogRecorder(logger)
	var reader audit.Reader
	if cfg.Audit.MongoURI != "" {
		mongoRec, err := audit.NewMongoRecorder(cfg.Audit.MongoURI, cfg.Audit.Database, cfg.Audit.Collection, logger)
		if err != nil {
			logger.Fatal("Audit store setup failed", zap.Error(err))
		}
		recorder, reader = mongoRec, mongoRec
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := services.New(services.Deps{
		DB:          db,
		Config:      cfg,
		Audit:       recorder,
		AuditReader: reader,
		Publisher:   publisher,
		Metrics:     services.NewMetrics(reg),
		Log:         logger,
	})

	r := routes.NewRouter(routes.Deps{
		Handler:   handlers.New(svc, db, cfg.Auth),
		Tokens:    svc.Auth.Tokens(),
		MenuCache: menuCache,
		Metrics:   middleware.NewHTTPMetrics(reg),
		Log:       logger,
		Config:    cfg,
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	scheduler, err := jobs.NewScheduler(cfg.Jobs.PurgeSchedule, svc.Auth, logger)
	if err != nil {
		logger.Fatal("Job setup failed", zap.Error(err))
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server running", zap.String("addr", srv.Addr), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	if err := scheduler.Stop(ctx); err != nil {
		logger.Warn("Purge job still running at shutdown", zap.Error(err))
	}
	if err := publisher.Close(); err != nil {
		logger.Warn("Event publisher close failed", zap.Error(err))
	}
	if err := recorder.Close(ctx); err != nil {
		logger.Warn("Audit store close failed", zap.Error(err))
	}
	if err := menuCache.Close(); err != nil {
		logger.Warn("Cache close failed", zap.Error(err))
	}
	if err := config.CloseDB(db); err != nil {
		logger.Warn("Database close failed", zap.Error(err))
	}
}
