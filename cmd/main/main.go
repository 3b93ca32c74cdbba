package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/config"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/healthcheck"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/model"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/observer"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/storage"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/usecase"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/logger"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/utils"
)

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	importFile := flag.String("import", "", "CSV file of contacts to import; runs the import and exits")
	importCampaign := flag.String("campaign", "", "campaign id the imported contacts belong to")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize Metrics conditionally
	metricsEnabled := cfg.Metrics.Enabled
	observer.InitMetrics(metricsEnabled)

	// Initialize repositories
	postgresRepo, err := initPostgresRepo(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	// One-shot import mode
	if *importFile != "" {
		if err := runImport(postgresRepo, cfg, *importFile, *importCampaign); err != nil {
			logger.Log.Fatal("Import failed", zap.Error(err))
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = postgresRepo.Close(shutdownCtx)
		return
	}

	// Log startup information
	logger.Log.Info("Starting Campaign Dialer Engine",
		zap.String("environment", cfg.Environment),
		zap.Bool("auto_migrate", cfg.Database.PostgresAutoMigrate),
	)

	// Create health check server
	healthServer := healthcheck.NewServer(strconv.Itoa(cfg.Server.Port), logger.Log)
	healthServer.RegisterReadinessCheck("postgres", postgresRepo.Ping)

	// Register metrics handler if enabled BEFORE starting the server
	if metricsEnabled {
		healthServer.RegisterMetricsHandler(promhttp.Handler())
		logger.Log.Info("Metrics endpoint enabled", zap.String("path", "/metrics"), zap.Int("port", cfg.Server.Port))
	} else {
		logger.Log.Info("Metrics endpoint disabled for environment", zap.String("environment", cfg.Environment))
	}

	// Start health check server (which now might include /metrics)
	healthServer.Start()

	logger.Log.Info("Health check endpoints available",
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("readiness", fmt.Sprintf("http://localhost:%d/ready", cfg.Server.Port)),
	)

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", 30*time.Second))

	// Use WaitGroup to track shutdown of all components
	var wg sync.WaitGroup
	wg.Add(2)

	// Shutdown health check server (includes metrics if enabled)
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping health check server")
		start := time.Now()
		if err := healthServer.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping health check server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] Health check server stopped",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping health check server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done() // Ensure WaitGroup is decremented even in case of panic
	})

	// Close database connection
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Closing PostgreSQL connection")
		pgStart := time.Now()
		if err := postgresRepo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] PostgreSQL connection closed",
				zap.Duration("duration", time.Since(pgStart)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while closing database connection",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done() // Ensure WaitGroup is decremented even in case of panic
	})

	// Wait with a timeout for all components to shut down
	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Log.Info("[shutdown] All components stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}

	logger.Log.Info("Campaign Dialer Engine shutdown complete")
}

// initPostgresRepo initializes the PostgreSQL repository from config.
func initPostgresRepo(cfg *config.Config) (*storage.PostgresRepo, error) {
	if cfg.Database.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	repo, err := storage.NewPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate, cfg.Database.OperationTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}

	logger.Log.Info("Initialized PostgreSQL repository")
	return repo, nil
}

// runImport reads a CSV file (first row is the header of logical field ids)
// and feeds it through the deduplicated import pipeline.
func runImport(postgresRepo *storage.PostgresRepo, cfg *config.Config, path, campaignID string) error {
	if campaignID == "" {
		return fmt.Errorf("-campaign is required with -import")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	records, err := readImportRecords(f)
	if err != nil {
		return err
	}

	campaignRepo := storage.NewCampaignRepoAdapter(postgresRepo)
	contactRepo := storage.NewContactRepoAdapter(postgresRepo)
	importService := usecase.NewImportService(campaignRepo, contactRepo, nil)

	ctx := context.Background()
	outcome, err := importService.ImportContacts(ctx, campaignID, records, model.DedupConfig{
		Enabled:  cfg.Import.DedupEnabled,
		FieldIDs: cfg.Import.DedupFields,
	})
	if err != nil {
		return err
	}

	logger.Log.Info("Import finished",
		zap.String("campaign_id", campaignID),
		zap.Int("accepted", len(outcome.Accepted)),
		zap.Int("rejected", len(outcome.Rejected)),
	)
	for _, rej := range outcome.Rejected {
		logger.Log.Warn("Rejected record",
			zap.String("reason", rej.Reason),
			zap.Any("record", rej.Record),
		)
	}
	return nil
}

// readImportRecords parses CSV rows into logical-field keyed records
func readImportRecords(r io.Reader) ([]model.ImportRecord, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var records []model.ImportRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		record := make(model.ImportRecord, len(header))
		for i, field := range header {
			if i < len(row) {
				record[field] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}
