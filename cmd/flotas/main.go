package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"flotas/internal/backend"
	"flotas/internal/cli"
	apphttp "flotas/internal/http"
	"flotas/internal/log"
	"flotas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Backend configuration error", "error", err)
		os.Exit(1)
	}
	if err := backendCfg.Validate(); err != nil {
		logger.Error("Backend configuration invalid", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	appLogger := log.New(log.DefaultConfig())
	analysis := services.NewAnalysisService(result.Backend, appLogger, cfg.CacheSize, cfg.CacheTTL)
	importer := services.NewImportService(result.Storage, result.Backend, result.AMQP, analysis, appLogger)

	srv := apphttp.NewServer(":"+cfg.Port, analysis, importer, appLogger)
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		_ = analysis.Close()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	}
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, cleanup)

	logger.Info("Starting flotas server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
