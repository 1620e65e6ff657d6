package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rentledger/reconcile-backend/internal/application/reconcile"
	"github.com/rentledger/reconcile-backend/internal/domain/matcher"
	"github.com/rentledger/reconcile-backend/internal/infrastructure/config"
	"github.com/rentledger/reconcile-backend/internal/infrastructure/logging"
	"github.com/rentledger/reconcile-backend/internal/infrastructure/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	cutoffFlag := flag.String("cutoff", "", "Skip records dated before this day (YYYY-MM-DD)")
	verbose := flag.Bool("verbose", false, "Print the per-record audit report")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configPath)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "reconcile")

	var cutoff time.Time
	if *cutoffFlag != "" {
		parsed, err := time.Parse("2006-01-02", *cutoffFlag)
		if err != nil {
			logger.Error("invalid cutoff, want YYYY-MM-DD", "cutoff", *cutoffFlag)
			os.Exit(1)
		}
		cutoff = parsed
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coordinator := reconcile.NewCoordinator(store, matcher.Config{
		DateToleranceDays: cfg.Matching.DateToleranceDays,
		ValueEpsilon:      cfg.Matching.ValueEpsilon,
		NameThreshold:     cfg.Matching.NameThreshold,
	}, logger)

	report, err := coordinator.Run(ctx, reconcile.Options{
		Cutoff:          cutoff,
		PageSize:        cfg.Matching.PageSize,
		CommitBatchSize: cfg.Matching.CommitBatchSize,
	})
	if err != nil {
		logger.Error("reconciliation run failed", "error", err)
		os.Exit(1)
	}

	if *verbose {
		for _, r := range report.Reports {
			marker := " "
			if r.Matched {
				marker = "*"
			}
			fmt.Printf("%s %s  %s\n", marker, r.LedgerID, r.Detail)
		}
	}

	fmt.Printf("run %d: processed=%d matched=%d duplicates=%d errors=%d\n",
		report.RunID, report.Processed, report.Matched, report.Duplicates, report.Errors)

	if report.Errors > 0 {
		os.Exit(1)
	}
}
