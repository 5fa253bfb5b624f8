package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cityvibe/internal/config"
	cronrunner "cityvibe/internal/cron"
	"cityvibe/internal/db"
	"cityvibe/internal/enrich"
	"cityvibe/internal/handler"
	"cityvibe/internal/logger"
	"cityvibe/internal/pipeline"
	gormrepository "cityvibe/internal/repository/gorm"
	"cityvibe/internal/service"
)

func main() {
	cfgPath := os.Getenv("CV_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("CV_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	enricher := &pipeline.Enricher{
		Workers: cfg.Pipeline.EnrichWorkers,
		Timeout: cfg.Pipeline.EnrichTimeout,
		Logger:  logger,
	}
	if cfg.Geocode.Enabled {
		enricher.Geocoder = enrich.NewNominatimGeocoder(cfg.Geocode, logger)
	}
	if cfg.Tagger.Enabled {
		enricher.Tagger = enrich.NewKeywordTagger(nil, cfg.Tagger.MaxTags)
	}
	if cfg.Embedding.Enabled && cfg.Embedding.APIKey != "" {
		enricher.Embedder = enrich.NewOpenAIEmbedder(cfg.Embedding)
	}

	processor := &pipeline.Processor{
		Repo:   store,
		Enrich: enricher,
		Config: cfg.Pipeline,
		Logger: logger,
	}
	syncService := &service.VenueSyncService{
		Repo:      store,
		Processor: processor,
		Scrape:    cfg.Scrape,
		Logger:    logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	venueHandler := &handler.VenueHandler{Repo: store, Sync: syncService, Logger: logger}
	venueHandler.Register(engine)
	eventHandler := &handler.EventHandler{Repo: store, Logger: logger}
	eventHandler.Register(engine)
	runHandler := &handler.RunHandler{Repo: store, Logger: logger}
	runHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add("venue_sync", cfg.Cron.VenueSync, func(ctx context.Context) {
			result, err := syncService.SyncAll(ctx)
			if err != nil {
				logger.Warn("cron venue sync failed", zap.Error(err))
				return
			}
			logger.Info("cron venue sync ok",
				zap.Int("venues", result.Venues),
				zap.Int("succeeded", result.Succeeded),
				zap.Int("failed", result.Failed))
		})
		if err != nil {
			logger.Warn("cron register venue sync failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	if cfg.Scrape.SyncOnStart {
		go func() {
			logger.Info("running initial venue sync")
			result, err := syncService.SyncAll(ctx)
			if err != nil {
				logger.Warn("initial venue sync failed", zap.Error(err))
				return
			}
			logger.Info("initial venue sync complete",
				zap.Int("venues", result.Venues),
				zap.Int("succeeded", result.Succeeded),
				zap.Int("failed", result.Failed))
		}()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
