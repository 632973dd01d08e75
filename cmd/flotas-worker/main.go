package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flotas/internal/amqp"
	"flotas/internal/cli"
	gsheet "flotas/internal/sheets/google"
	"flotas/internal/storage"
	"flotas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting flotas-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	// The worker always needs the local mirror to read pending rows.
	sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer sqliteRepo.Close()

	// Google Sheets is optional; without it the worker only drains the
	// queue without pushing anywhere.
	var sheetsClient *gsheet.Client
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err = gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var syncWorker *worker.SyncWorker
	if sheetsClient != nil {
		syncWorker = worker.NewSyncWorker(sqliteRepo, sheetsClient, sheetsClient, cfg.SyncBatchSize)

		// Refresh the local copy of the reference collections so
		// sqlite-backed deployments serve current data.
		logger.Info("Refreshing reference data mirror...")
		if err := syncWorker.RefreshMirror(ctx); err != nil {
			logger.Error("Failed to refresh reference data", "error", err)
			// Continue: the previous mirror keeps serving.
		}

		// Push anything the previous run left behind.
		logger.Info("Performing startup sync check...")
		if err := syncWorker.StartupSyncCheck(ctx); err != nil {
			logger.Error("Failed startup sync check", "error", err)
		}
	} else {
		logger.Info("Skipping sheet sync operations - no client available")
	}

	if syncWorker != nil {
		go func() {
			handler := func(msg *amqp.LedgerSyncMessage) error {
				return syncWorker.HandleSyncMessage(ctx, msg)
			}
			if err := amqpClient.ConsumeLedgerSync(ctx, handler); err != nil {
				if err != context.Canceled {
					logger.Error("Message consumption failed", "error", err)
				}
				cancel()
			}
		}()

		// Periodic catch-up for rows whose messages were lost, plus a
		// daily mirror refresh.
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		mirrorTicker := time.NewTicker(24 * time.Hour)
		defer mirrorTicker.Stop()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := syncWorker.ProcessPendingRows(ctx); err != nil {
						logger.Error("Periodic sync failed", "error", err)
					}
				case <-mirrorTicker.C:
					if err := syncWorker.RefreshMirror(ctx); err != nil {
						logger.Error("Mirror refresh failed", "error", err)
					}
				}
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - no sync worker available")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(5 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}
