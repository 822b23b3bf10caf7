package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/lumenpulse/analytics-backend/internal/adapter/horizon"
	"github.com/lumenpulse/analytics-backend/internal/adapter/pricing"
	"github.com/lumenpulse/analytics-backend/internal/adapter/repository/postgres"
	"github.com/lumenpulse/analytics-backend/internal/config"
	"github.com/lumenpulse/analytics-backend/internal/scheduler"
	"github.com/lumenpulse/analytics-backend/internal/usecase/aggregation"
	"github.com/lumenpulse/analytics-backend/internal/usecase/performance"
	"github.com/lumenpulse/analytics-backend/internal/usecase/portfolio"
)

const dateLayout = "2006-01-02"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// 1. Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		// A missing file is fine for local runs; defaults + env cover it.
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		cfg = config.Default()
	}

	logger := newLogger(cfg.LogLevel)

	// 2. Setup database and repositories
	db, err := postgres.NewDB(cfg.Postgres.ConnString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	snapshotRepo := postgres.NewSnapshotRepository(db)
	signalRepo := postgres.NewSignalRepository(db)
	observationRepo := postgres.NewObservationRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	assetRepo := postgres.NewAssetRepository(db)

	// 3. Setup external adapters
	valuation := horizon.NewClient(cfg.Horizon.BaseURL, cfg.Horizon.Timeout)

	prices, err := cfg.PriceTable()
	if err != nil {
		return err
	}
	var priceSource pricing.Source = pricing.NewStaticSource(prices)
	if cfg.Redis.Addr != "" {
		cached, err := pricing.NewCachedSource(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL, priceSource)
		if err != nil {
			return fmt.Errorf("failed to setup price cache: %w", err)
		}
		defer cached.Close()
		priceSource = cached
	}

	// 4. Initialize services (use cases)
	engine := aggregation.NewEngine(signalRepo)
	job := aggregation.NewJob(engine, snapshotRepo, logger)
	recorder := portfolio.NewRecorder(accountRepo, valuation, assetRepo, observationRepo, pricing.Func(priceSource), logger)
	perfService := performance.NewService(observationRepo)

	ctx := context.Background()

	// 5. Dispatch the run mode
	command := "serve"
	if len(args) > 0 {
		command = strings.ToLower(args[0])
	}

	switch command {
	case "serve":
		return serve(ctx, cfg, job, recorder, logger)

	case "run-date":
		if len(args) < 2 {
			return fmt.Errorf("usage: run-date YYYY-MM-DD")
		}
		date, err := time.Parse(dateLayout, args[1])
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", args[1], err)
		}
		_, err = job.RunForDate(ctx, date)
		return err

	case "backfill":
		if len(args) < 3 {
			return fmt.Errorf("usage: backfill FROM TO (YYYY-MM-DD)")
		}
		from, err := time.Parse(dateLayout, args[1])
		if err != nil {
			return fmt.Errorf("invalid from date %q: %w", args[1], err)
		}
		to, err := time.Parse(dateLayout, args[2])
		if err != nil {
			return fmt.Errorf("invalid to date %q: %w", args[2], err)
		}
		results, err := job.RunBackfill(ctx, from, to)
		logger.Info("backfill finished", "days_completed", len(results))
		return err

	case "record-all":
		_, err := recorder.RecordAll(ctx)
		return err

	case "evaluate":
		if len(args) < 2 {
			return fmt.Errorf("usage: evaluate ACCOUNT_ID")
		}
		accountID, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid account id %q: %w", args[1], err)
		}
		obs, err := recorder.Record(ctx, accountID)
		if err != nil {
			return err
		}
		results, err := perfService.EvaluateAccount(ctx, accountID, obs.TotalValue, time.Now())
		if err != nil {
			return err
		}
		for _, result := range results {
			if !result.HasData {
				fmt.Printf("%-4s no baseline available (current %s)\n", result.Window, result.CurrentValue)
				continue
			}
			fmt.Printf("%-4s pnl %s (%s%%) vs %s at %s\n",
				result.Window,
				result.AbsolutePnl,
				result.PercentageChange,
				result.BaselineValue,
				result.BaselineObservedAt.Format(time.RFC3339),
			)
		}
		return nil

	case "help":
		printUsage()
		return nil

	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// serve runs the scheduled service until SIGINT/SIGTERM.
func serve(ctx context.Context, cfg *config.Config, job *aggregation.Job, recorder *portfolio.Recorder, logger *slog.Logger) error {
	if cfg.Scheduler.RunImmediately {
		logger.Info("running aggregation immediately on startup")
		if _, err := job.RunForYesterday(ctx); err != nil {
			logger.Error("startup aggregation failed", "error", err)
		}
	}

	sched := scheduler.New(job, recorder, cfg.Scheduler.SweepInterval, logger)
	sched.Start(ctx)
	logger.Info("analytics service is running", "sweep_interval", cfg.Scheduler.SweepInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	logger.Info("received signal, shutting down gracefully", "signal", sig.String())

	sched.Stop()
	logger.Info("scheduler stopped")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  server serve                 - Start the scheduled service (default)")
	fmt.Println("  server run-date YYYY-MM-DD   - Aggregate a single date and exit")
	fmt.Println("  server backfill FROM TO      - Aggregate a date range and exit")
	fmt.Println("  server record-all            - Record one observation per account and exit")
	fmt.Println("  server evaluate ACCOUNT_ID   - Record and evaluate trailing performance for one account")
	fmt.Println("  server help                  - Show this help")
}
