// Package extract turns positioned page fragments into validated employee
// payroll records. Pages are processed strictly in document order: the
// reporting period must be resolved from a page's header before any of its
// rows may be tagged, and row order must match the source listing.
package extract

import (
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mkessler/lohnjournal-tracker/constants"
	"github.com/mkessler/lohnjournal-tracker/internal/common"
	"github.com/mkessler/lohnjournal-tracker/internal/decode"
	"github.com/mkessler/lohnjournal-tracker/internal/entity"
	"github.com/mkessler/lohnjournal-tracker/internal/layout"
)

// Page is one journal page as delivered by the document reader.
type Page struct {
	Number     int // 1-based position in the document
	HeaderText string
	Fragments  []entity.Fragment
}

// DocumentResult aggregates one document's extraction. Records preserve
// source order. Every dropped row and page appears in Rejections or
// PageErrors; nothing is discarded silently.
type DocumentResult struct {
	Meta       entity.DocumentMeta
	Month      string
	Year       int
	Records    []*entity.EmployeeRecord
	Rejections []*common.RowRejected
	PageErrors []*common.HeaderParseError
}

// Extractor applies a layout table to pages. The table is fixed at
// construction; a new layout revision means a new Extractor, never mutation.
type Extractor struct {
	table  *layout.Table
	logger *slog.Logger
}

func NewExtractor(table *layout.Table, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{table: table, logger: logger}
}

var (
	persNrPattern = regexp.MustCompile(`^\d+$`)
	nameSuffix    = regexp.MustCompile(`\s*NB\s*$`)
)

// ExtractPage produces the page's validated records in row order.
// A header whose period cannot be resolved fails the whole page: the
// returned error is a *common.HeaderParseError and zero records are
// emitted. Individual bad rows land in the rejection slice while
// processing continues with the next row.
func (e *Extractor) ExtractPage(page Page) ([]*entity.EmployeeRecord, []*common.RowRejected, error) {
	month, year, err := resolvePeriod(page.Number, page.HeaderText)
	if err != nil {
		return nil, nil, err
	}
	records, rejections := e.extractRows(page, month, year)
	return records, rejections, nil
}

// extractRows is phase two of page processing: the period is already
// resolved, rows are assembled, assigned and decoded.
func (e *Extractor) extractRows(page Page, month string, year int) ([]*entity.EmployeeRecord, []*common.RowRejected) {
	rows := groupRows(page.Fragments, e.table)
	records := make([]*entity.EmployeeRecord, 0, len(rows))
	var rejections []*common.RowRejected

	for rowIdx, row := range rows {
		rec, rej := e.extractRow(page.Number, rowIdx, month, year, row)
		if rej != nil {
			e.logger.Warn("row rejected",
				"page", rej.Page, "row", rej.Row, "pers_nr", rej.PersNr, "reason", rej.Reason)
			rejections = append(rejections, rej)
			continue
		}
		records = append(records, rec)
	}
	return records, rejections
}

// ExtractDocument processes all pages in order and aggregates the results.
// Document metadata comes from the first page that yields any; the document
// period comes from the first page whose header resolves.
func (e *Extractor) ExtractDocument(pages []Page) *DocumentResult {
	res := &DocumentResult{}
	for _, page := range pages {
		month, year, err := resolvePeriod(page.Number, page.HeaderText)
		if err != nil {
			var headerErr *common.HeaderParseError
			errors.As(err, &headerErr)
			e.logger.Warn("page rejected", "page", page.Number, "error", err)
			res.PageErrors = append(res.PageErrors, headerErr)
			continue
		}
		if res.Month == "" {
			res.Month, res.Year = month, year
		}
		if res.Meta == (entity.DocumentMeta{}) {
			res.Meta = resolveMeta(page.HeaderText)
		}
		records, rejections := e.extractRows(page, month, year)
		res.Records = append(res.Records, records...)
		res.Rejections = append(res.Rejections, rejections...)
	}
	return res
}

// extractRow resolves, decodes and validates one clustered row. It returns
// either a complete record or a rejection, never a partial record.
func (e *Extractor) extractRow(pageNum, rowIdx int, month string, year int, row []entity.Fragment) (*entity.EmployeeRecord, *common.RowRejected) {
	fields := make(map[string]entity.Value, len(e.table.Specs()))
	for _, spec := range e.table.Specs() {
		fields[spec.Name] = entity.Empty(spec.Kind)
	}

	for _, frag := range row {
		if constants.IsColumnMarker(strings.TrimSpace(frag.Text)) {
			continue
		}
		spec := e.table.Assign(frag)
		if spec == nil {
			continue
		}

		value, err := decode.Field(frag.Text, spec.Kind)
		if err != nil {
			return nil, &common.RowRejected{
				Page:   pageNum,
				Row:    rowIdx,
				PersNr: fields[e.table.IDField()].Text,
				Field:  spec.Name,
				Reason: "numeric field failed to decode",
				Cause:  err,
			}
		}
		if !value.Present {
			continue
		}

		// Multi-fragment text bands (the name column) accumulate in
		// reading order; numeric bands hold at most one fragment.
		if prev := fields[spec.Name]; prev.Present && spec.Kind == entity.KindText {
			value = entity.TextValue(prev.Text + " " + value.Text)
		}
		fields[spec.Name] = value
	}

	if name := fields[constants.FieldName]; name.Present {
		fields[constants.FieldName] = entity.TextValue(strings.TrimSpace(nameSuffix.ReplaceAllString(name.Text, "")))
	}

	persNr := fields[e.table.IDField()]
	switch {
	case !persNr.Present:
		return nil, &common.RowRejected{
			Page: pageNum, Row: rowIdx,
			Reason: "mandatory identifier missing after decoding",
		}
	case !persNrPattern.MatchString(persNr.Text):
		return nil, &common.RowRejected{
			Page: pageNum, Row: rowIdx, PersNr: persNr.Text,
			Reason: "identifier is not a personnel number",
		}
	}

	return &entity.EmployeeRecord{
		PersNr: persNr.Text,
		Month:  month,
		Year:   year,
		Page:   pageNum,
		Row:    rowIdx,
		Fields: fields,
	}, nil
}
