// Package export renders imported payroll periods as an XLSX workbook:
// one sheet per reporting period plus a cross-period summary per employee.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mkessler/lohnjournal-tracker/constants"
	"github.com/mkessler/lohnjournal-tracker/internal/entity"
	"github.com/mkessler/lohnjournal-tracker/internal/layout"
	"github.com/mkessler/lohnjournal-tracker/internal/repository"
)

const summarySheet = "Zusammenfassung"

// Service is a small façade over the repository that produces XLSX bytes.
type Service struct {
	repo   repository.JournalRepository
	table  *layout.Table
	logger *slog.Logger
}

func NewService(repo repository.JournalRepository, table *layout.Table, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, table: table, logger: logger}
}

// employeeTotals accumulates one employee's values across periods. Only
// present values are summed, so employees absent from a month do not drag
// zeros into averages; months counts document appearances.
type employeeTotals struct {
	persNr   string
	name     string
	months   int
	currency map[string]decimal.Decimal
	integers map[string]int64
}

// ExportXLSX builds the workbook for every imported period.
func (s *Service) ExportXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	periods, err := s.repo.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("query periods: %w", err)
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("nothing to export: no periods imported")
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].SortKey() < periods[j].SortKey() })

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}

	totals := map[string]*employeeTotals{}
	totalRows := 0

	for _, period := range periods {
		records, err := s.repo.ListPeriod(ctx, period)
		if err != nil {
			return nil, fmt.Errorf("query period %s: %w", period.TableName, err)
		}
		if err := s.writePeriodSheet(f, period, records); err != nil {
			return nil, err
		}
		s.accumulate(totals, records)
		totalRows += len(records)
	}

	if err := s.writeSummarySheet(f, periods, totals); err != nil {
		return nil, err
	}
	index, err := f.GetSheetIndex(summarySheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"periods", len(periods),
		"rows", totalRows,
		"employees", len(totals),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// sheetName renders a period's sheet name within Excel's 31-char limit.
func sheetName(p repository.Period) string {
	name := fmt.Sprintf("%s_%d", p.Month, p.Year)
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

func (s *Service) writePeriodSheet(f *excelize.File, period repository.Period, records []*entity.EmployeeRecord) error {
	sheet := sheetName(period)
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	specs := s.table.Specs()
	for i, spec := range specs {
		write(i+1, 1, spec.Name)
	}

	for rowIdx, rec := range records {
		for colIdx, spec := range specs {
			v := rec.Field(spec.Name)
			if !v.Present {
				continue // blank cell, not zero
			}
			write(colIdx+1, rowIdx+2, v.String())
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 10) // pers_nr
	_ = f.SetColWidth(sheet, "C", "C", 28) // name
	return nil
}

func (s *Service) accumulate(totals map[string]*employeeTotals, records []*entity.EmployeeRecord) {
	for _, rec := range records {
		tot, ok := totals[rec.PersNr]
		if !ok {
			tot = &employeeTotals{
				persNr:   rec.PersNr,
				currency: map[string]decimal.Decimal{},
				integers: map[string]int64{},
			}
			totals[rec.PersNr] = tot
		}
		tot.months++

		// Prefer the longest observed spelling of the name; truncated
		// columns vary between monthly exports.
		if name := rec.Field(constants.FieldName); name.Present && len(name.Text) > len(tot.name) {
			tot.name = name.Text
		}

		for _, spec := range s.table.Specs() {
			v := rec.Field(spec.Name)
			if !v.Present {
				continue
			}
			switch spec.Kind {
			case entity.KindCurrency:
				tot.currency[spec.Name] = tot.currency[spec.Name].Add(v.Amount)
			case entity.KindInteger:
				tot.integers[spec.Name] += v.Int
			}
		}
	}
}

func (s *Service) writeSummarySheet(f *excelize.File, periods []repository.Period, totals map[string]*employeeTotals) error {
	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(summarySheet, cell, v)
	}

	first := periods[0]
	last := periods[len(periods)-1]
	write(1, 1, "ZUSAMMENFASSUNG")
	write(1, 2, "Zeitraum:")
	write(2, 2, fmt.Sprintf("%s %d - %s %d", first.Month, first.Year, last.Month, last.Year))
	write(1, 3, "Anzahl Monate:")
	write(2, 3, len(periods))

	// Numeric columns only; text columns other than pers_nr/name carry no
	// meaning summed across months.
	var sumSpecs []layout.FieldSpec
	for _, spec := range s.table.Specs() {
		if spec.Kind == entity.KindCurrency || spec.Kind == entity.KindInteger {
			sumSpecs = append(sumSpecs, spec)
		}
	}

	const headerRow = 6
	write(1, headerRow, constants.FieldPersNr)
	write(2, headerRow, constants.FieldName)
	write(3, headerRow, "months_count")
	for i, spec := range sumSpecs {
		write(i+4, headerRow, spec.Name)
	}

	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for rowOffset, persNr := range keys {
		tot := totals[persNr]
		row := headerRow + 1 + rowOffset
		write(1, row, tot.persNr)
		write(2, row, tot.name)
		write(3, row, tot.months)
		for i, spec := range sumSpecs {
			switch spec.Kind {
			case entity.KindCurrency:
				if d, ok := tot.currency[spec.Name]; ok {
					write(i+4, row, d.StringFixed(2))
				}
			case entity.KindInteger:
				if n, ok := tot.integers[spec.Name]; ok {
					write(i+4, row, n)
				}
			}
		}
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 10)
	_ = f.SetColWidth(summarySheet, "B", "B", 28)
	return nil
}
