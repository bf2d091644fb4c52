package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"fmcg-dashboard/internal/api"
	"fmcg-dashboard/internal/config"
	"fmcg-dashboard/internal/engine"
	"fmcg-dashboard/internal/logger"
	"fmcg-dashboard/internal/metrics"
	"fmcg-dashboard/internal/source"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		baseLogger.Fatal("failed to register metrics", zap.Error(err))
	}

	opener := source.NewOpener(source.S3Config{Region: cfg.AWS.Region, Profile: cfg.AWS.Profile})
	loader := engine.NewLoader(opener,
		engine.WithStrict(cfg.Dataset.Strict),
		engine.WithChunkSize(cfg.Dataset.ChunkSize),
		engine.WithLogger(logger.Named(baseLogger, "engine.loader")))
	cache := engine.NewCache(loader, m)

	// The API is live immediately and answers 503 until the dataset is ready
	h := api.NewHandler(nil, m, logger.Named(baseLogger, "api"))
	e := api.NewServer(h, reg, logger.Named(baseLogger, "http"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load in background
	go func() {
		ds, err := cache.Load(ctx, cfg.Dataset.Source)
		if err != nil {
			h.SetLoadError(err)
			return
		}
		h.SetData(ds)
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("source", cfg.Dataset.Source))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
