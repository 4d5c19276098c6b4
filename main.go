package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"medcharges/config"
	qhttp "medcharges/http"
	"medcharges/logging"
	"medcharges/ml"
	"medcharges/money"
	"medcharges/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 2. Load the model once; the process cannot serve without it
	registry, err := ml.NewRegistry(cfg.ML.RegistrySize, logger)
	if err != nil {
		logger.Fatal("failed to create model registry", zap.Error(err))
	}
	model, err := registry.Load(cfg.ML.ModelPath)
	if err != nil {
		logger.Fatal(modelLoadMessage(err), zap.String("path", cfg.ML.ModelPath), zap.Error(err))
	}

	metrics := monitoring.NewMetricsCollector()
	estimator := ml.NewEstimator(model, logger, ml.WithRecorder(metrics))
	handlers := qhttp.NewHandlers(estimator, qhttp.ModelInfo{
		Kind:     model.Kind(),
		Path:     cfg.ML.ModelPath,
		Features: ml.FeatureNames(),
		LoadedAt: time.Now().UTC(),
	}, money.NewFormatter(cfg.Display.Locale, cfg.Display.Currency), metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ML.WatchModel {
		watcher, err := ml.NewArtifactWatcher(cfg.ML.ModelPath, logger)
		if err != nil {
			logger.Warn("model watcher disabled", zap.Error(err))
		} else {
			watcher.OnStale(func(fsnotify.Event) { handlers.MarkStale() })
			go func() {
				if err := watcher.Run(ctx); err != nil {
					logger.Warn("model watcher stopped", zap.Error(err))
				}
			}()
		}
	}

	// 3. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, handlers, logger)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 4. Handle graceful shutdown
	<-ctx.Done()
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("exiting")
}

func modelLoadMessage(err error) string {
	switch {
	case errors.Is(err, ml.ErrModelNotFound):
		return "model file not found"
	case errors.Is(err, ml.ErrModelCorrupt):
		return "model file could not be loaded"
	default:
		return "failed to load model"
	}
}
