package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mkessler/lohnjournal-tracker/constants"
	"github.com/mkessler/lohnjournal-tracker/internal/entity"
	"github.com/mkessler/lohnjournal-tracker/internal/layout"
	"github.com/mkessler/lohnjournal-tracker/internal/repository"
)

func testService(t *testing.T) (*Service, repository.JournalRepository, *layout.Table) {
	t.Helper()
	ctx := context.Background()

	db, err := repository.Open(ctx, repository.Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	table := layout.Default()
	repo := repository.NewJournalRepository(db, table, nil)
	require.NoError(t, repo.EnsureSchema(ctx))
	return NewService(repo, table, nil), repo, table
}

func record(table *layout.Table, persNr, name, month string, year int, lohnsteuer string) *entity.EmployeeRecord {
	fields := make(map[string]entity.Value)
	for _, spec := range table.Specs() {
		fields[spec.Name] = entity.Empty(spec.Kind)
	}
	fields[constants.FieldPersNr] = entity.TextValue(persNr)
	fields[constants.FieldName] = entity.TextValue(name)
	fields[constants.FieldStTage] = entity.IntValue(30)
	if lohnsteuer != "" {
		fields[constants.FieldLohnsteuer] = entity.CurrencyValue(decimal.RequireFromString(lohnsteuer))
	}
	return &entity.EmployeeRecord{
		PersNr: persNr,
		Month:  month,
		Year:   year,
		Page:   1,
		Fields: fields,
	}
}

func TestExportXLSX(t *testing.T) {
	svc, repo, table := testService(t)
	ctx := context.Background()

	_, err := repo.UpsertRecords(ctx, []*entity.EmployeeRecord{
		record(table, "10001", "Müller, Anna", "Januar", 2025, "180.41"),
		record(table, "10002", "Schmidt, K.", "Januar", 2025, ""),
	})
	require.NoError(t, err)
	_, err = repo.UpsertRecords(ctx, []*entity.EmployeeRecord{
		record(table, "10001", "Müller, Anna-Lena", "Februar", 2025, "200.00"),
	})
	require.NoError(t, err)

	data, err := svc.ExportXLSX(ctx)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Zusammenfassung", "Januar_2025", "Februar_2025"}, f.GetSheetList())

	// Period sheet: header row from the layout, values below.
	got, err := f.GetCellValue("Januar_2025", "A1")
	require.NoError(t, err)
	assert.Equal(t, constants.FieldPersNr, got)

	got, err = f.GetCellValue("Januar_2025", "A2")
	require.NoError(t, err)
	assert.Equal(t, "10001", got)

	lohnsteuerCol := columnFor(t, table, constants.FieldLohnsteuer)
	cell, err := excelize.CoordinatesToCellName(lohnsteuerCol, 2)
	require.NoError(t, err)
	got, err = f.GetCellValue("Januar_2025", cell)
	require.NoError(t, err)
	assert.Equal(t, "180.41", got)

	// The employee without a value gets a blank cell, not a zero.
	cell, err = excelize.CoordinatesToCellName(lohnsteuerCol, 3)
	require.NoError(t, err)
	got, err = f.GetCellValue("Januar_2025", cell)
	require.NoError(t, err)
	assert.Empty(t, got)

	// Summary header block.
	got, err = f.GetCellValue("Zusammenfassung", "A1")
	require.NoError(t, err)
	assert.Equal(t, "ZUSAMMENFASSUNG", got)
	got, err = f.GetCellValue("Zusammenfassung", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Januar 2025 - Februar 2025", got)
	got, err = f.GetCellValue("Zusammenfassung", "B3")
	require.NoError(t, err)
	assert.Equal(t, "2", got)

	// 10001 appears in both months: longest name wins, amounts summed.
	got, err = f.GetCellValue("Zusammenfassung", "A7")
	require.NoError(t, err)
	assert.Equal(t, "10001", got)
	got, err = f.GetCellValue("Zusammenfassung", "B7")
	require.NoError(t, err)
	assert.Equal(t, "Müller, Anna-Lena", got)
	got, err = f.GetCellValue("Zusammenfassung", "C7")
	require.NoError(t, err)
	assert.Equal(t, "2", got)

	sumCol := summaryColumnFor(t, table, constants.FieldLohnsteuer)
	cell, err = excelize.CoordinatesToCellName(sumCol, 7)
	require.NoError(t, err)
	got, err = f.GetCellValue("Zusammenfassung", cell)
	require.NoError(t, err)
	assert.Equal(t, "380.41", got)

	// 10002 only appeared once and had no lohnsteuer at all.
	got, err = f.GetCellValue("Zusammenfassung", "A8")
	require.NoError(t, err)
	assert.Equal(t, "10002", got)
	got, err = f.GetCellValue("Zusammenfassung", "C8")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	cell, err = excelize.CoordinatesToCellName(sumCol, 8)
	require.NoError(t, err)
	got, err = f.GetCellValue("Zusammenfassung", cell)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExportXLSXEmpty(t *testing.T) {
	svc, _, _ := testService(t)
	_, err := svc.ExportXLSX(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no periods")
}

// columnFor returns the 1-based period sheet column of a field.
func columnFor(t *testing.T, table *layout.Table, name string) int {
	t.Helper()
	for i, spec := range table.Specs() {
		if spec.Name == name {
			return i + 1
		}
	}
	t.Fatalf("field %s not in layout", name)
	return 0
}

// summaryColumnFor returns the 1-based summary sheet column of a numeric field.
func summaryColumnFor(t *testing.T, table *layout.Table, name string) int {
	t.Helper()
	col := 4
	for _, spec := range table.Specs() {
		if spec.Kind != entity.KindCurrency && spec.Kind != entity.KindInteger {
			continue
		}
		if spec.Name == name {
			return col
		}
		col++
	}
	t.Fatalf("field %s not numeric in layout", name)
	return 0
}
