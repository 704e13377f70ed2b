package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/mkessler/lohnjournal-tracker/internal/common"
	"github.com/mkessler/lohnjournal-tracker/internal/export"
	"github.com/mkessler/lohnjournal-tracker/internal/extract"
	"github.com/mkessler/lohnjournal-tracker/internal/ingest"
	"github.com/mkessler/lohnjournal-tracker/internal/layout"
	"github.com/mkessler/lohnjournal-tracker/internal/pdfio"
	repo "github.com/mkessler/lohnjournal-tracker/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir        = flag.String("dir", "", "directory of Lohnjournal PDFs to import (required)")
		dbDSN      = flag.String("db", "", "database DSN (overrides LJ_DB_DSN)")
		out        = flag.String("out", "", "output XLSX path (defaults to <dir>/../lohnjournal.xlsx)")
		password   = flag.String("password", "", "PDF password (overrides LJ_PDF_PASSWORDS)")
		layoutPath = flag.String("layout", "", "layout JSON file (overrides LJ_LAYOUT_PATH)")
		jobs       = flag.Int("jobs", 0, "parallel documents (overrides LJ_BATCH_CONCURRENCY)")
		noExport   = flag.Bool("no-export", false, "import only, skip XLSX export")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: -dir is required\n")
		flag.Usage()
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "lohnjournal.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *dbDSN != "" {
		cfg.Database.DSN = *dbDSN
	}
	if *password != "" {
		cfg.PDF.Passwords = []string{*password}
	}
	if *layoutPath != "" {
		cfg.Layout.Path = *layoutPath
	}
	if *jobs > 0 {
		cfg.Batch.Concurrency = *jobs
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := repo.Open(ctx, repo.Config{DSN: cfg.Database.DSN, DialTimeout: cfg.Database.DialTimeout}, logger)
	if err != nil {
		logger.Error("failed to open database", "dsn", cfg.Database.DSN, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	table, err := loadLayout(cfg, logger)
	if err != nil {
		logger.Error("failed to load layout", "path", cfg.Layout.Path, "error", err)
		os.Exit(1)
	}

	journalRepo := repo.NewJournalRepository(db, table, logger)
	if err := journalRepo.EnsureSchema(ctx); err != nil {
		logger.Error("failed to prepare schema", "error", err)
		os.Exit(1)
	}

	importer := ingest.NewImporter(
		pdfio.NewReader(logger),
		extract.NewExtractor(table, logger),
		journalRepo,
		cfg.PDF.Passwords,
		logger,
	)

	logger.Info("starting batch import", "dir", *dir, "jobs", cfg.Batch.Concurrency)
	reports, stats, err := importer.ImportDirectory(ctx, *dir, cfg.Batch.Concurrency)
	if err != nil {
		logger.Error("batch import failed", "dir", *dir, "error", err)
		os.Exit(1)
	}
	for _, r := range reports {
		if r.Err != nil {
			printError("FAILED  %s: %v\n", r.Path, r.Err)
		}
	}

	logger.Info("batch import complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"deduplicated", stats.Deduplicated,
		"records", stats.Records,
		"rejected", stats.Rejected,
	)

	if *noExport {
		return
	}

	exporter := export.NewService(journalRepo, table, logger)
	xlsxBytes, err := exporter.ExportXLSX(ctx)
	if err != nil {
		logger.Error("failed to export workbook", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
		logger.Error("failed to write output file", "out", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("workbook written", "out", *out, "bytes", len(xlsxBytes))
}

// loadLayout picks the configured layout file or falls back to the built-in
// LOA313 table, applying the row-tolerance override when set.
func loadLayout(cfg *common.Config, logger *slog.Logger) (*layout.Table, error) {
	table := layout.Default()
	if cfg.Layout.Path != "" {
		loaded, err := layout.Load(cfg.Layout.Path, logger)
		if err != nil {
			return nil, err
		}
		table = loaded
	}
	if cfg.Layout.RowTolerance > 0 {
		return layout.New(table.Version(), table.IDField(), cfg.Layout.RowTolerance, table.Specs())
	}
	return table, nil
}
