package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/mkessler/lohnjournal-tracker/internal/common"
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
		pdfPath    = flag.String("pdf", "", "Lohnjournal PDF to import (required unless -ping)")
		dbDSN      = flag.String("db", "", "database DSN (overrides LJ_DB_DSN)")
		password   = flag.String("password", "", "PDF password (overrides LJ_PDF_PASSWORDS)")
		layoutPath = flag.String("layout", "", "layout JSON file (overrides LJ_LAYOUT_PATH)")
		ping       = flag.Bool("ping", false, "check database connectivity and exit")
	)
	flag.Parse()

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

	if *ping {
		if err := db.HealthCheck(ctx, 1*time.Second); err != nil {
			logger.Error("database health check failed", "error", err)
			os.Exit(1)
		}
		logger.Info("database health check ok", "dialect", db.Dialect)
		return
	}

	if *pdfPath == "" {
		printError("Error: -pdf is required\n")
		flag.Usage()
		os.Exit(1)
	}

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

	report, err := importer.ImportFile(ctx, *pdfPath)
	if err != nil {
		logger.Error("import failed", "pdf", *pdfPath, "error", err)
		os.Exit(1)
	}

	logger.Info("import complete",
		"pdf", report.Path,
		"month", report.Month,
		"year", report.Year,
		"records", report.Records,
		"rejected", report.Rejected,
	)
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
