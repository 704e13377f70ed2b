package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkessler/lohnjournal-tracker/constants"
	"github.com/mkessler/lohnjournal-tracker/internal/entity"
	"github.com/mkessler/lohnjournal-tracker/internal/layout"
)

func testRepo(t *testing.T) (JournalRepository, *layout.Table) {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	table := layout.Default()
	repo := NewJournalRepository(db, table, nil)
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo, table
}

func testRecord(table *layout.Table, persNr string, lohnsteuer string) *entity.EmployeeRecord {
	fields := make(map[string]entity.Value)
	for _, spec := range table.Specs() {
		fields[spec.Name] = entity.Empty(spec.Kind)
	}
	fields[constants.FieldPersNr] = entity.TextValue(persNr)
	fields[constants.FieldName] = entity.TextValue("Müller, Anna")
	fields[constants.FieldStTage] = entity.IntValue(30)
	if lohnsteuer != "" {
		fields[constants.FieldLohnsteuer] = entity.CurrencyValue(decimal.RequireFromString(lohnsteuer))
	}
	return &entity.EmployeeRecord{
		PersNr: persNr,
		Month:  "Januar",
		Year:   2025,
		Page:   1,
		Fields: fields,
	}
}

func TestUpsertAndList(t *testing.T) {
	repo, table := testRepo(t)
	ctx := context.Background()

	n, err := repo.UpsertRecords(ctx, []*entity.EmployeeRecord{
		testRecord(table, "10002", "2430.00"),
		testRecord(table, "10001", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	periods, err := repo.ListPeriods(ctx)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, "Januar", periods[0].Month)
	assert.Equal(t, 2025, periods[0].Year)
	assert.Equal(t, "lohnjournal_Januar_2025", periods[0].TableName)

	records, err := repo.ListPeriod(ctx, periods[0])
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "10001", records[0].PersNr, "period listing is ordered by personnel number")

	// Exact amounts survive the round trip.
	got := records[1].Field(constants.FieldLohnsteuer)
	require.True(t, got.Present)
	assert.Equal(t, "2430.00", got.Amount.StringFixed(2))

	// Blank stays blank: NULL comes back as the sentinel, not as zero.
	blank := records[0].Field(constants.FieldLohnsteuer)
	assert.False(t, blank.Present)
	assert.True(t, records[0].Field(constants.FieldStTage).Present)
}

func TestUpsertIdempotent(t *testing.T) {
	repo, table := testRepo(t)
	ctx := context.Background()

	rec := testRecord(table, "10001", "180.41")
	_, err := repo.UpsertRecords(ctx, []*entity.EmployeeRecord{rec})
	require.NoError(t, err)

	// Re-import with a corrected amount: still one row.
	rec2 := testRecord(table, "10001", "181.00")
	_, err = repo.UpsertRecords(ctx, []*entity.EmployeeRecord{rec2})
	require.NoError(t, err)

	periods, err := repo.ListPeriods(ctx)
	require.NoError(t, err)
	records, err := repo.ListPeriod(ctx, periods[0])
	require.NoError(t, err)
	require.Len(t, records, 1, "re-import must not duplicate rows")
	assert.Equal(t, "181.00", records[0].Field(constants.FieldLohnsteuer).Amount.StringFixed(2))
}

func TestRecordRun(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	err := repo.RecordRun(ctx, &entity.ImportRun{
		ID:         uuid.New(),
		SourcePath: "/pdfs/Januar_2025.pdf",
		HashHex:    "deadbeef",
		Month:      "Januar",
		Year:       2025,
		Records:    12,
		Rejected:   1,
		ImportedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	seen, err := repo.SeenHash(ctx, "deadbeef")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = repo.SeenHash(ctx, "cafebabe")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestPeriodTableName(t *testing.T) {
	assert.Equal(t, "lohnjournal_Januar_2025", PeriodTableName("Januar", 2025))
	// Non-ASCII month names sanitize deterministically.
	assert.Equal(t, "lohnjournal_M_rz_2025", PeriodTableName("März", 2025))
}
