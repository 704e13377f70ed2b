// Package ingest imports journal PDFs into the repository, one file or a
// whole folder at a time.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mkessler/lohnjournal-tracker/constants"
	"github.com/mkessler/lohnjournal-tracker/internal/entity"
	"github.com/mkessler/lohnjournal-tracker/internal/extract"
	"github.com/mkessler/lohnjournal-tracker/internal/pdfio"
	"github.com/mkessler/lohnjournal-tracker/internal/repository"
)

// fileNamePattern matches the conventional export naming, e.g. Januar_2025.pdf.
// The basename is only a sort hint; the authoritative period comes from the
// page headers inside the document.
var fileNamePattern = regexp.MustCompile(`^([A-Za-zÄÖÜäöüß]+)_(\d{4})\.[Pp][Dd][Ff]$`)

// Importer drives the read -> extract -> persist pipeline.
type Importer struct {
	reader    *pdfio.Reader
	extractor *extract.Extractor
	repo      repository.JournalRepository
	passwords []string
	logger    *slog.Logger
}

func NewImporter(reader *pdfio.Reader, extractor *extract.Extractor, repo repository.JournalRepository, passwords []string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		reader:    reader,
		extractor: extractor,
		repo:      repo,
		passwords: passwords,
		logger:    logger,
	}
}

// FileReport is the outcome of importing one document.
type FileReport struct {
	Path         string
	Month        string
	Year         int
	Records      int
	Rejected     int
	HashHex      string
	Deduplicated bool
	Err          error
}

// DirStats aggregates a folder import.
type DirStats struct {
	Scanned      int
	Matched      int
	Succeeded    int
	Failed       int
	Deduplicated int
	Records      int
	Rejected     int
}

// ImportFile reads, extracts and persists a single PDF. Page-level header
// failures and row rejections are tolerated and reported; a document where no
// page resolves a period is an error.
func (i *Importer) ImportFile(ctx context.Context, path string) (*FileReport, error) {
	report := &FileReport{Path: path}

	hashHex, err := hashFile(path)
	if err != nil {
		return report, fmt.Errorf("hash %s: %w", path, err)
	}
	report.HashHex = hashHex

	seen, err := i.repo.SeenHash(ctx, hashHex)
	if err != nil {
		return report, err
	}
	if seen {
		report.Deduplicated = true
		i.logger.Info("ingest.file.deduplicated", "path", path, "hash", hashHex)
		return report, nil
	}

	pages, err := i.readWithPasswords(path)
	if err != nil {
		return report, err
	}

	result := i.extractor.ExtractDocument(pages)
	if result.Month == "" {
		return report, fmt.Errorf("%s: no page header resolved a reporting period", path)
	}
	report.Month = result.Month
	report.Year = result.Year
	report.Rejected = len(result.Rejections)

	for _, pageErr := range result.PageErrors {
		i.logger.Warn("ingest.page_skipped", "path", path, "error", pageErr.Error())
	}
	for _, rej := range result.Rejections {
		i.logger.Warn("ingest.row_rejected",
			"path", path,
			"page", rej.Page,
			"row", rej.Row,
			"pers_nr", rej.PersNr,
			"reason", rej.Reason,
		)
	}

	n, err := i.repo.UpsertRecords(ctx, result.Records)
	if err != nil {
		return report, fmt.Errorf("persist %s: %w", path, err)
	}
	report.Records = n

	run := &entity.ImportRun{
		ID:         uuid.New(),
		SourcePath: path,
		HashHex:    hashHex,
		Month:      result.Month,
		Year:       result.Year,
		Records:    n,
		Rejected:   report.Rejected,
		ImportedAt: time.Now().UTC(),
	}
	if err := i.repo.RecordRun(ctx, run); err != nil {
		return report, fmt.Errorf("record run %s: %w", path, err)
	}

	i.logger.Info("ingest.file.ok",
		"path", path,
		"month", result.Month,
		"year", result.Year,
		"records", n,
		"rejected", report.Rejected,
	)
	return report, nil
}

// ImportDirectory imports every journal PDF directly under root. Documents
// run in parallel up to concurrency; each document stays single-threaded so
// its rows land in reading order.
func (i *Importer) ImportDirectory(ctx context.Context, root string, concurrency int) ([]*FileReport, DirStats, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, DirStats{}, fmt.Errorf("read dir %s: %w", root, err)
	}

	var stats DirStats
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stats.Scanned++
		if !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		stats.Matched++
		paths = append(paths, filepath.Join(root, e.Name()))
	}
	if len(paths) == 0 {
		return nil, stats, fmt.Errorf("no PDF files under %s", root)
	}
	sortChronological(paths)

	// Each goroutine owns one slice slot, so no lock is needed.
	reports := make([]*FileReport, len(paths))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for idx, path := range paths {
		idx, path := idx, path
		eg.Go(func() error {
			report, err := i.ImportFile(gctx, path)
			if err != nil {
				report.Err = err
				i.logger.Error("ingest.file.failed", "path", path, "error", err.Error())
			}
			reports[idx] = report
			return nil // a broken file must not cancel its siblings
		})
	}
	if err := eg.Wait(); err != nil {
		return reports, stats, err
	}

	for _, r := range reports {
		switch {
		case r.Err != nil:
			stats.Failed++
		case r.Deduplicated:
			stats.Deduplicated++
		default:
			stats.Succeeded++
			stats.Records += r.Records
			stats.Rejected += r.Rejected
		}
	}
	return reports, stats, nil
}

// readWithPasswords probes each configured password in order. An empty
// candidate list means the documents are expected to be unencrypted.
func (i *Importer) readWithPasswords(path string) ([]extract.Page, error) {
	candidates := i.passwords
	if len(candidates) == 0 {
		candidates = []string{""}
	}

	var errs []error
	for _, pw := range candidates {
		pages, err := i.reader.ReadDocument(path, pw)
		if err == nil {
			return pages, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("read %s: %w", path, errors.Join(errs...))
}

// sortChronological orders paths by the period encoded in the basename.
// Files without a recognizable Monat_JJJJ name sort after dated ones, by name.
func sortChronological(paths []string) {
	sort.SliceStable(paths, func(a, b int) bool {
		ka, oka := periodKeyFromName(paths[a])
		kb, okb := periodKeyFromName(paths[b])
		switch {
		case oka && okb:
			if ka != kb {
				return ka < kb
			}
			return paths[a] < paths[b]
		case oka:
			return true
		case okb:
			return false
		default:
			return paths[a] < paths[b]
		}
	})
}

func periodKeyFromName(path string) (int, bool) {
	m := fileNamePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	if constants.MonthNumber(m[1]) == 0 {
		return 0, false
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return constants.PeriodSortKey(m[1], year), true
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
