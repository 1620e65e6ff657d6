// Command import loads normalized JSON records from a file or stdin and
// inserts them through the duplicate filter.
//
// Input is a JSON array:
//
//	[{"date": "2025-06-01", "value": 330, "name": "...", "payment_method": "zelle", "status": "pending-ledger"}, ...]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rentledger/reconcile-backend/internal/application/importer"
	"github.com/rentledger/reconcile-backend/internal/domain/transaction"
	"github.com/rentledger/reconcile-backend/internal/infrastructure/config"
	"github.com/rentledger/reconcile-backend/internal/infrastructure/logging"
	"github.com/rentledger/reconcile-backend/internal/infrastructure/storage"
)

type inputRecord struct {
	Date          string  `json:"date"`
	Value         float64 `json:"value"`
	Name          string  `json:"name"`
	Depositor     string  `json:"depositor"`
	Car           string  `json:"car"`
	PaymentMethod string  `json:"payment_method"`
	Source        string  `json:"source"`
	Status        string  `json:"status"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	inputPath := flag.String("input", "-", "Input file, - for stdin")
	source := flag.String("source", "", "Override the source field on every record")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configPath)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "import")

	records, err := readRecords(*inputPath)
	if err != nil {
		logger.Error("failed to read input", "error", err)
		os.Exit(1)
	}

	batch := make([]*transaction.Transaction, 0, len(records))
	for i, r := range records {
		date, err := parseDate(r.Date)
		if err != nil {
			logger.Error("bad record", "index", i, "error", err)
			os.Exit(1)
		}
		src := r.Source
		if *source != "" {
			src = *source
		}
		batch = append(batch, &transaction.Transaction{
			Date:          date,
			Value:         r.Value,
			Name:          r.Name,
			Depositor:     r.Depositor,
			Car:           r.Car,
			PaymentMethod: r.PaymentMethod,
			Source:        src,
			Status:        transaction.Status(r.Status),
		})
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	result, err := importer.NewImporter(store, logger).Import(context.Background(), batch)
	if err != nil {
		logger.Error("import failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("inserted=%d persisted_duplicates=%d intra_batch_duplicates=%d errors=%d\n",
		result.Inserted, result.PersistedDuplicates, result.IntraBatchDuplicates, result.Errors)
	for _, detail := range result.ErrorDetails {
		fmt.Fprintln(os.Stderr, detail)
	}

	if result.Errors > 0 {
		os.Exit(1)
	}
}

func readRecords(path string) ([]inputRecord, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var records []inputRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
