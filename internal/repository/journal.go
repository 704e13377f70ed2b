package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkessler/lohnjournal-tracker/constants"
	"github.com/mkessler/lohnjournal-tracker/internal/common"
	"github.com/mkessler/lohnjournal-tracker/internal/entity"
	"github.com/mkessler/lohnjournal-tracker/internal/layout"
)

// Period is one imported reporting period and its backing table.
type Period struct {
	Month     string
	Year      int
	TableName string
}

// SortKey orders periods chronologically.
func (p Period) SortKey() int { return constants.PeriodSortKey(p.Month, p.Year) }

// JournalRepository persists employee records, one table per reporting
// period, keyed by personnel number. Re-importing the same document is
// idempotent: rows are inserted or updated, never duplicated.
type JournalRepository interface {
	EnsureSchema(ctx context.Context) error
	UpsertRecords(ctx context.Context, records []*entity.EmployeeRecord) (int, error)
	RecordRun(ctx context.Context, run *entity.ImportRun) error
	SeenHash(ctx context.Context, hashHex string) (bool, error)
	ListPeriods(ctx context.Context) ([]Period, error)
	ListPeriod(ctx context.Context, period Period) ([]*entity.EmployeeRecord, error)
}

type journalRepository struct {
	db     *DB
	table  *layout.Table
	logger *slog.Logger
}

// NewJournalRepository builds a repository bound to the active layout; the
// layout drives the per-period column set.
func NewJournalRepository(db *DB, table *layout.Table, logger *slog.Logger) JournalRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &journalRepository{db: db, table: table, logger: logger}
}

var identSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// sanitizeIdent makes a layout field name safe as a SQL identifier.
func sanitizeIdent(name string) string {
	return identSanitizer.ReplaceAllString(name, "_")
}

// PeriodTableName derives the backing table name for a reporting period.
func PeriodTableName(month string, year int) string {
	return sanitizeIdent(fmt.Sprintf("lohnjournal_%s_%d", month, year))
}

// EnsureSchema creates the period registry and import-run audit tables.
func (r *journalRepository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS lohnjournal_periods (
			year       INTEGER NOT NULL,
			month_num  INTEGER NOT NULL,
			month_name TEXT    NOT NULL,
			table_name TEXT    NOT NULL,
			PRIMARY KEY (year, month_num)
		)`,
		`CREATE TABLE IF NOT EXISTS import_runs (
			id           TEXT PRIMARY KEY,
			source_path  TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			month_name   TEXT NOT NULL,
			year         INTEGER NOT NULL,
			records      INTEGER NOT NULL,
			rejected     INTEGER NOT NULL,
			imported_at  TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.SQL.ExecContext(ctx, stmt); err != nil {
			return common.NewAppError("DB_SCHEMA", "create base tables", err)
		}
	}
	return nil
}

// UpsertRecords writes records into their period tables, creating tables
// and registry entries on first sight of a period. Returns the number of
// rows written.
func (r *journalRepository) UpsertRecords(ctx context.Context, records []*entity.EmployeeRecord) (int, error) {
	written := 0
	ensured := map[string]bool{}

	for _, rec := range records {
		tableName := PeriodTableName(rec.Month, rec.Year)
		if !ensured[tableName] {
			if err := r.ensurePeriod(ctx, rec.Month, rec.Year, tableName); err != nil {
				return written, err
			}
			ensured[tableName] = true
		}
		if err := r.upsertOne(ctx, tableName, rec); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func (r *journalRepository) ensurePeriod(ctx context.Context, month string, year int, tableName string) error {
	var cols strings.Builder
	for _, spec := range r.table.Specs() {
		if spec.Name == r.table.IDField() {
			continue
		}
		fmt.Fprintf(&cols, "%s %s,\n", sanitizeIdent(spec.Name), r.columnType(spec.Kind))
	}

	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		%s TEXT NOT NULL PRIMARY KEY,
		%s
		month_name TEXT    NOT NULL,
		year       INTEGER NOT NULL,
		page       INTEGER NOT NULL,
		row_idx    INTEGER NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`, tableName, sanitizeIdent(r.table.IDField()), cols.String())
	if _, err := r.db.SQL.ExecContext(ctx, create); err != nil {
		return common.NewAppError("DB_SCHEMA", "create period table "+tableName, err)
	}

	register := r.db.rebind(`INSERT INTO lohnjournal_periods (year, month_num, month_name, table_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (year, month_num) DO UPDATE SET table_name = excluded.table_name`)
	if _, err := r.db.SQL.ExecContext(ctx, register, year, constants.MonthNumber(month), month, tableName); err != nil {
		return common.NewAppError("DB_SCHEMA", "register period "+tableName, err)
	}

	r.logger.Debug("period table ready", "table", tableName)
	return nil
}

func (r *journalRepository) upsertOne(ctx context.Context, tableName string, rec *entity.EmployeeRecord) error {
	cols := []string{sanitizeIdent(r.table.IDField())}
	args := []any{rec.PersNr}

	for _, spec := range r.table.Specs() {
		if spec.Name == r.table.IDField() {
			continue
		}
		cols = append(cols, sanitizeIdent(spec.Name))
		args = append(args, valueArg(rec.Field(spec.Name)))
	}
	cols = append(cols, "month_name", "year", "page", "row_idx", "updated_at")
	args = append(args, rec.Month, rec.Year, rec.Page, rec.Row, time.Now().UTC())

	var updates []string
	for _, c := range cols[1:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
	}

	query := r.db.rebind(fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		tableName,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		sanitizeIdent(r.table.IDField()),
		strings.Join(updates, ", "),
	))

	if _, err := r.db.SQL.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to upsert record", "table", tableName, "pers_nr", rec.PersNr, "error", err)
		return common.NewAppError("DB_UPSERT", "upsert "+rec.PersNr, err)
	}
	return nil
}

// RecordRun stores one document import in the audit table.
func (r *journalRepository) RecordRun(ctx context.Context, run *entity.ImportRun) error {
	query := r.db.rebind(`INSERT INTO import_runs
		(id, source_path, content_hash, month_name, year, records, rejected, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.SQL.ExecContext(ctx, query,
		run.ID.String(), run.SourcePath, run.HashHex, run.Month, run.Year,
		run.Records, run.Rejected, run.ImportedAt)
	if err != nil {
		return common.NewAppError("DB_AUDIT", "record import run", err)
	}
	return nil
}

// SeenHash reports whether a document with this content hash was already
// imported successfully.
func (r *journalRepository) SeenHash(ctx context.Context, hashHex string) (bool, error) {
	query := r.db.rebind(`SELECT COUNT(*) FROM import_runs WHERE content_hash = ?`)
	var n int
	if err := r.db.SQL.QueryRowContext(ctx, query, hashHex).Scan(&n); err != nil {
		return false, common.NewAppError("DB_QUERY", "lookup content hash", err)
	}
	return n > 0, nil
}

// ListPeriods returns all imported periods in chronological order.
func (r *journalRepository) ListPeriods(ctx context.Context) ([]Period, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT month_name, year, table_name FROM lohnjournal_periods ORDER BY year, month_num`)
	if err != nil {
		return nil, common.NewAppError("DB_QUERY", "list periods", err)
	}
	defer rows.Close()

	var periods []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.Month, &p.Year, &p.TableName); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// ListPeriod loads a period's records ordered by personnel number. Absent
// columns come back as the empty sentinel, preserving the blank-vs-zero
// distinction across persistence.
func (r *journalRepository) ListPeriod(ctx context.Context, period Period) ([]*entity.EmployeeRecord, error) {
	specs := r.table.Specs()
	cols := []string{sanitizeIdent(r.table.IDField())}
	for _, spec := range specs {
		if spec.Name != r.table.IDField() {
			cols = append(cols, sanitizeIdent(spec.Name))
		}
	}
	cols = append(cols, "page", "row_idx")

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(cols, ", "), period.TableName, sanitizeIdent(r.table.IDField()))
	rows, err := r.db.SQL.QueryContext(ctx, query)
	if err != nil {
		return nil, common.NewAppError("DB_QUERY", "list period "+period.TableName, err)
	}
	defer rows.Close()

	var records []*entity.EmployeeRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows, period, specs)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *journalRepository) scanRecord(rows *sql.Rows, period Period, specs []layout.FieldSpec) (*entity.EmployeeRecord, error) {
	var persNr string
	var page, rowIdx int

	dests := []any{&persNr}
	holders := make([]any, 0, len(specs))
	order := make([]layout.FieldSpec, 0, len(specs))
	for _, spec := range specs {
		if spec.Name == r.table.IDField() {
			continue
		}
		var h any
		switch spec.Kind {
		case entity.KindInteger:
			h = new(sql.NullInt64)
		default:
			h = new(sql.NullString)
		}
		holders = append(holders, h)
		order = append(order, spec)
		dests = append(dests, h)
	}
	dests = append(dests, &page, &rowIdx)

	if err := rows.Scan(dests...); err != nil {
		return nil, err
	}

	fields := make(map[string]entity.Value, len(specs))
	fields[r.table.IDField()] = entity.TextValue(persNr)
	for i, spec := range order {
		fields[spec.Name] = scanValue(spec.Kind, holders[i])
	}

	return &entity.EmployeeRecord{
		PersNr: persNr,
		Month:  period.Month,
		Year:   period.Year,
		Page:   page,
		Row:    rowIdx,
		Fields: fields,
	}, nil
}

// valueArg maps a field value to its SQL argument; absent values become
// NULL, never zero.
func valueArg(v entity.Value) any {
	if !v.Present {
		return nil
	}
	switch v.Kind {
	case entity.KindInteger:
		return v.Int
	case entity.KindCurrency:
		return v.Amount.StringFixed(2)
	default:
		return v.Text
	}
}

func scanValue(kind entity.FieldKind, holder any) entity.Value {
	switch kind {
	case entity.KindInteger:
		h := holder.(*sql.NullInt64)
		if !h.Valid {
			return entity.Empty(kind)
		}
		return entity.IntValue(h.Int64)
	case entity.KindCurrency:
		h := holder.(*sql.NullString)
		if !h.Valid {
			return entity.Empty(kind)
		}
		d, err := decimal.NewFromString(h.String)
		if err != nil {
			return entity.Empty(kind)
		}
		return entity.CurrencyValue(d)
	default:
		h := holder.(*sql.NullString)
		if !h.Valid {
			return entity.Empty(kind)
		}
		return entity.TextValue(h.String)
	}
}

// columnType maps a field kind to the dialect's column type. Currency is
// stored as exact text on sqlite (NUMERIC affinity would coerce to float)
// and as NUMERIC on postgres.
func (r *journalRepository) columnType(kind entity.FieldKind) string {
	switch kind {
	case entity.KindInteger:
		return "INTEGER"
	case entity.KindCurrency:
		if r.db.Dialect == DialectPostgres {
			return "NUMERIC(14,2)"
		}
		return "TEXT"
	default:
		return "TEXT"
	}
}
