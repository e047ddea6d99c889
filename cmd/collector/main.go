package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AldairPetronilia/trading-project-sub002/internal/config"
	"github.com/AldairPetronilia/trading-project-sub002/internal/entsoe"
	"github.com/AldairPetronilia/trading-project-sub002/internal/models"
	"github.com/AldairPetronilia/trading-project-sub002/internal/repository"
	"github.com/AldairPetronilia/trading-project-sub002/internal/services"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/database"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/logging"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/metrics"
)

func main() {
	// Parse command-line flags
	backfill := flag.Bool("backfill", false, "Run historical backfill instead of recent-window collection")
	once := flag.Bool("once", false, "Collect one recent window and exit instead of running periodically")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if cfg.ENTSOE.SecurityToken == "" {
		fmt.Fprintln(os.Stderr, "ENTSOE_SECURITY_TOKEN is required")
		os.Exit(1)
	}

	// Initialize logger
	logLevel := logging.InfoLevel
	if cfg.Logging.Level == "debug" {
		logLevel = logging.DebugLevel
	}

	logger := logging.NewStructuredLogger("energy-collector", "1.0.0", logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "[COLLECTOR_START] Starting energy data collector", logging.Fields{
		"version":    "1.0.0",
		"backfill":   *backfill,
		"once":       *once,
		"areas":      strings.Join(cfg.Collection.Areas, ","),
		"data_types": strings.Join(cfg.Collection.DataTypes, ","),
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("energy_collector")

	// Initialize database
	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[COLLECTOR_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repositories
	energyRepo := repository.NewEnergyRepository(db, logger, metricsCollector)
	progressRepo := repository.NewBackfillProgressRepository(db, logger, metricsCollector)

	// Initialize upstream client
	transportConfig := &entsoe.TransportConfig{
		ConnectTimeout:     cfg.ENTSOE.ConnectTimeout,
		ReadTimeout:        cfg.ENTSOE.ReadTimeout,
		WriteTimeout:       cfg.ENTSOE.WriteTimeout,
		PoolTimeout:        cfg.ENTSOE.PoolTimeout,
		MaxConnections:     cfg.ENTSOE.MaxConnections,
		MaxIdleConnections: cfg.ENTSOE.MaxIdleConnections,
		RateLimit:          cfg.ENTSOE.RateLimit,
		RateBurst:          cfg.ENTSOE.RateBurst,
		UserAgent:          "energy-collector/1.0",
		Retry: entsoe.RetryPolicy{
			MaxAttempts: cfg.ENTSOE.RetryMaxAttempts,
			BaseDelay:   cfg.ENTSOE.RetryBaseDelay,
			MaxDelay:    cfg.ENTSOE.RetryMaxDelay,
			Multiplier:  cfg.ENTSOE.RetryMultiplier,
		},
	}

	transport := entsoe.NewTransport(transportConfig, logger, metricsCollector)
	defer transport.Close()

	client := entsoe.NewClient(&entsoe.ClientConfig{
		BaseURL:       cfg.ENTSOE.BaseURL,
		SecurityToken: cfg.ENTSOE.SecurityToken,
	}, transport, logger)

	// Initialize services
	processor := services.NewProcessor(logger)
	collector := services.NewCollectorService(client, processor, cfg.ENTSOE.RetryMaxDelay, logger, metricsCollector)

	if *backfill {
		startDate, err := cfg.BackfillStartDate()
		if err != nil {
			logger.Fatal(ctx, "[COLLECTOR_ERROR] Invalid backfill start date", logging.Fields{}, err)
		}

		backfillService := services.NewBackfillService(
			collector,
			processor,
			energyRepo,
			progressRepo,
			services.BackfillConfig{
				StartDate:  startDate,
				WindowSize: time.Duration(cfg.Backfill.WindowDays) * 24 * time.Hour,
			},
			logger,
			metricsCollector,
		)

		runBackfill(ctx, cfg, backfillService, logger)
		return
	}

	runCollection(ctx, cfg, collector, processor, energyRepo, logger, *once)
}

// runBackfill drives one backfill job per configured (area, data type) pair,
// one at a time.
func runBackfill(
	ctx context.Context,
	cfg *config.Config,
	backfillService *services.BackfillService,
	logger *logging.StructuredLogger,
) {
	targetEnd := time.Now().UTC()
	exitCode := 0

	for _, area := range cfg.Collection.Areas {
		for _, dt := range cfg.Collection.DataTypes {
			report, err := backfillService.Run(ctx, area, models.DataType(dt), targetEnd)
			if err != nil {
				logger.Error(ctx, "[BACKFILL_JOB_ERROR] Backfill job failed", logging.Fields{
					"area":      area,
					"data_type": dt,
				}, err)
				exitCode = 1
				continue
			}

			fmt.Println(strings.Repeat("=", 80))
			fmt.Printf("BACKFILL %s/%s: %s\n", report.Area, report.DataType, report.Status)
			fmt.Println(strings.Repeat("=", 80))
			fmt.Printf("Job ID:            %s\n", report.JobID)
			fmt.Printf("Windows Completed: %d\n", report.WindowsCompleted)
			fmt.Printf("Records Written:   %d\n", report.RecordsWritten)
			fmt.Printf("Cursor:            %s\n", report.Cursor.Format(time.RFC3339))
			if report.RetryAfter > 0 {
				fmt.Printf("Retry After:       %v\n", report.RetryAfter)
			}
			for _, msg := range report.Errors {
				fmt.Printf("  - %s\n", msg)
			}

			if report.Status == models.BackfillFailed {
				exitCode = 1
			}
			if ctx.Err() != nil {
				logger.Info(ctx, "[BACKFILL_INTERRUPTED] Shutdown requested, stopping jobs", logging.Fields{})
				os.Exit(exitCode)
			}
		}
	}

	os.Exit(exitCode)
}

// runCollection collects the recent window for every configured pair, then
// repeats on the configured interval unless once is set.
func runCollection(
	ctx context.Context,
	cfg *config.Config,
	collector *services.CollectorService,
	processor *services.Processor,
	repo repository.EnergyRepository,
	logger *logging.StructuredLogger,
	once bool,
) {
	collectAll := func() {
		windowEnd := time.Now().UTC()
		windowStart := windowEnd.Add(-cfg.Collection.RecentWindow)

		for _, area := range cfg.Collection.Areas {
			for _, dt := range cfg.Collection.DataTypes {
				result := collector.Collect(ctx, area, models.DataType(dt), windowStart, windowEnd)

				if len(result.Points) > 0 {
					records := processor.ToRecords(result.Points)
					if err := repo.UpsertRecords(ctx, records); err != nil {
						logger.Error(ctx, "[COLLECT_PERSIST_ERROR] Failed to persist records", logging.Fields{
							"area":      area,
							"data_type": dt,
							"records":   len(records),
						}, err)
						continue
					}
				}

				logger.Info(ctx, "[COLLECT_DONE] Collection cycle finished", logging.Fields{
					"area":      area,
					"data_type": dt,
					"status":    result.Status,
					"points":    len(result.Points),
				})
			}
		}
	}

	collectAll()
	if once {
		return
	}

	ticker := time.NewTicker(cfg.Collection.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "[COLLECTOR_SHUTDOWN] Shutdown requested, stopping", logging.Fields{})
			return
		case <-ticker.C:
			collectAll()
		}
	}
}
