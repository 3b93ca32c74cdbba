package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/skandyx/EVSCallPro-V4-sub002/internal/events"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/fieldmap"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/model"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/observer"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/storage"
	"github.com/skandyx/EVSCallPro-V4-sub002/internal/usecase"
	"github.com/skandyx/EVSCallPro-V4-sub002/pkg/logger"
)

// WorkerTask is one simulated agent draining the campaign queue.
type WorkerTask struct {
	AgentID string
}

func main() {
	// --- Configuration & Flag Parsing ---
	dsn := flag.String("dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL DSN")
	contacts := flag.Int("contacts", 1000, "Number of contacts to import into the test campaign")
	dupFraction := flag.Float64("dup-fraction", 0.1, "Fraction of generated records that duplicate an earlier phone number")
	workers := flag.Int("workers", 10, "Number of concurrent simulated agents")
	qualify := flag.Bool("qualify", true, "Qualify each leased contact after the lease")
	natsURL := flag.String("nats-url", os.Getenv("NATS_URL"), "NATS URL to publish qualification events to (optional)")
	metricsPort := flag.Int("metrics-port", 9091, "Port for Prometheus metrics endpoint")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")

	// --- Usage Function ---
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Campaign Lease Load Generator\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Imports a synthetic campaign and drains it with concurrent agents,\n")
		fmt.Fprintf(os.Stderr, "verifying that no contact is ever leased twice.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "POSTGRES_DSN or -dsn is required")
		os.Exit(1)
	}

	// --- Initialization ---
	if err := logger.Initialize(*logLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	observer.InitMetrics(true)
	startMetricsServer(*metricsPort)

	gofakeit.Seed(time.Now().UnixNano())

	logger.Log.Info("Starting Campaign Lease Load Generator",
		zap.Int("contacts", *contacts),
		zap.Float64("dup_fraction", *dupFraction),
		zap.Int("workers", *workers),
		zap.Bool("qualify", *qualify),
	)

	postgresRepo, err := storage.NewPostgresRepo(*dsn, true, 30*time.Second)
	if err != nil {
		logger.Log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}

	campaignRepo := storage.NewCampaignRepoAdapter(postgresRepo)
	contactRepo := storage.NewContactRepoAdapter(postgresRepo)
	agentRepo := storage.NewAgentRepoAdapter(postgresRepo)
	historyRepo := storage.NewCallHistoryRepoAdapter(postgresRepo)

	var notifier usecase.QualificationNotifier
	if *natsURL != "" {
		publisher, err := events.NewPublisher(*natsURL, "dialer_events", "v1.contacts.qualified")
		if err != nil {
			logger.Log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer publisher.Close()
		notifier = publisher
	}

	importer := usecase.NewImportService(campaignRepo, contactRepo, nil)
	dialer := usecase.NewDialerService(campaignRepo, contactRepo, agentRepo, historyRepo, nil, notifier, importer.Cache())

	ctx := context.Background()

	// --- Seed agents and campaign ---
	agentIDs := make([]string, *workers)
	for i := range agentIDs {
		agentIDs[i] = uuid.NewString()
		agent := model.Agent{
			ID:        agentIDs[i],
			LoginID:   fmt.Sprintf("loadtest_%04d", i),
			FirstName: gofakeit.FirstName(),
			LastName:  gofakeit.LastName(),
			IsActive:  true,
		}
		if err := agentRepo.Create(ctx, agent); err != nil {
			logger.Log.Fatal("Failed to seed agent", zap.String("agent_id", agent.ID), zap.Error(err))
		}
	}

	campaign, err := dialer.SaveCampaign(ctx, model.Campaign{
		ID:          uuid.NewString(),
		Name:        fmt.Sprintf("loadtest %s", gofakeit.Company()),
		DialingMode: model.DialingModeProgressive,
		IsActive:    true,
		AgentIDs:    agentIDs,
	}, "")
	if err != nil {
		logger.Log.Fatal("Failed to create campaign", zap.Error(err))
	}
	logger.Log.Info("Campaign created", zap.String("campaign_id", campaign.ID))

	// --- Import synthetic contacts ---
	records := generateRecords(*contacts, *dupFraction)
	outcome, err := importer.ImportContacts(ctx, campaign.ID, records, model.DedupConfig{
		Enabled:  true,
		FieldIDs: []string{fieldmap.FieldPhoneNumber},
	})
	if err != nil {
		logger.Log.Fatal("Import failed", zap.Error(err))
	}
	logger.Log.Info("Import finished",
		zap.Int("accepted", len(outcome.Accepted)),
		zap.Int("rejected", len(outcome.Rejected)),
	)

	// --- Drain the queue with concurrent agents ---
	var (
		leased     sync.Map
		duplicates int64
		leaseCount int64
		statsMu    sync.Mutex
		wg         sync.WaitGroup
	)

	drainStart := time.Now()
	pool, err := ants.NewPoolWithFunc(*workers, func(data interface{}) {
		defer wg.Done()
		task := data.(WorkerTask)
		for {
			contact, c, err := dialer.LeaseNextContact(ctx, campaign.ID)
			if err != nil {
				logger.Log.Error("Lease failed", zap.String("agent_id", task.AgentID), zap.Error(err))
				return
			}
			if contact == nil {
				return // queue exhausted
			}
			if _, loaded := leased.LoadOrStore(contact.ID, task.AgentID); loaded {
				logger.Log.Error("Contact leased twice",
					zap.String("contact_id", contact.ID),
					zap.String("agent_id", task.AgentID))
				statsMu.Lock()
				duplicates++
				statsMu.Unlock()
			}
			statsMu.Lock()
			leaseCount++
			statsMu.Unlock()

			if *qualify {
				if err := dialer.QualifyContact(ctx, contact.ID, "loadtest", c.ID, task.AgentID); err != nil {
					logger.Log.Error("Qualify failed",
						zap.String("contact_id", contact.ID), zap.Error(err))
				}
			}
		}
	})
	if err != nil {
		logger.Log.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer pool.Release()

	for _, agentID := range agentIDs {
		wg.Add(1)
		if err := pool.Invoke(WorkerTask{AgentID: agentID}); err != nil {
			wg.Done()
			logger.Log.Error("Failed to invoke worker", zap.Error(err))
		}
	}
	wg.Wait()

	// --- Report ---
	logger.Log.Info("Drain finished",
		zap.Int64("leased", leaseCount),
		zap.Int("imported", len(outcome.Accepted)),
		zap.Int64("double_leases", duplicates),
		zap.Duration("duration", time.Since(drainStart)),
	)
	if duplicates > 0 || leaseCount != int64(len(outcome.Accepted)) {
		logger.Log.Error("Lease exclusivity check FAILED")
		os.Exit(1)
	}
	logger.Log.Info("Lease exclusivity check passed")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = postgresRepo.Close(shutdownCtx)
}

// generateRecords builds n import records; dupFraction of them reuse a phone
// number from an earlier record so the dedup path gets exercised.
func generateRecords(n int, dupFraction float64) []model.ImportRecord {
	records := make([]model.ImportRecord, 0, n)
	phones := make([]string, 0, n)
	for i := 0; i < n; i++ {
		phone := strconv.Itoa(1000000000 + gofakeit.Number(0, 899999999))
		if len(phones) > 0 && gofakeit.Float64Range(0, 1) < dupFraction {
			phone = phones[gofakeit.Number(0, len(phones)-1)]
		}
		phones = append(phones, phone)
		records = append(records, model.ImportRecord{
			fieldmap.FieldPhoneNumber: phone,
			fieldmap.FieldFirstName:   gofakeit.FirstName(),
			fieldmap.FieldLastName:    gofakeit.LastName(),
			fieldmap.FieldPostalCode:  gofakeit.Zip(),
			"company":                 gofakeit.Company(),
		})
	}
	return records
}

func startMetricsServer(port int) *http.Server {
	logger.Log.Info("Starting Prometheus metrics server", zap.Int("port", port))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Failed to start Prometheus metrics server", zap.Error(err))
		}
	}()

	return server
}
