package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkessler/lohnjournal-tracker/constants"
	"github.com/mkessler/lohnjournal-tracker/internal/common"
	"github.com/mkessler/lohnjournal-tracker/internal/entity"
	"github.com/mkessler/lohnjournal-tracker/internal/layout"
)

const journalHeader = "Lohnjournal Januar 2025 Form.-Nr.LOA313"

func fragAt(text string, x0, x1, y float64) entity.Fragment {
	return entity.Fragment{Text: text, X0: x0, X1: x1, Y0: y}
}

func testExtractor(t *testing.T) *Extractor {
	t.Helper()
	return NewExtractor(layout.Default(), nil)
}

func TestExtractPage(t *testing.T) {
	e := testExtractor(t)

	page := Page{
		Number:     1,
		HeaderText: journalHeader,
		Fragments: []entity.Fragment{
			fragAt("12345", 10, 32, 120),             // pers_nr
			fragAt("Müller, Anna NB", 145, 260, 120), // name
			fragAt("2.43000", 480, 515, 120),         // lohnsteuer
			fragAt("30", 358, 372, 120),              // st_tage
		},
	}

	records, rejections, err := e.ExtractPage(page)
	require.NoError(t, err)
	require.Empty(t, rejections)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "12345", rec.PersNr)
	assert.Equal(t, "Januar", rec.Month)
	assert.Equal(t, 2025, rec.Year)

	assert.Equal(t, "Müller, Anna", rec.Field(constants.FieldName).Text, "NB marker stripped")
	assert.Equal(t, "2430.00", rec.Field(constants.FieldLohnsteuer).Amount.StringFixed(2))
	assert.Equal(t, int64(30), rec.Field(constants.FieldStTage).Int)

	// Every layout field is present in the map; unmapped ones carry the
	// empty sentinel, never a missing key and never zero.
	assert.Len(t, rec.Fields, len(layout.Default().Specs()))
	kirche := rec.Field(constants.FieldKirchensteuer)
	assert.False(t, kirche.Present)
	assert.Equal(t, "", kirche.String())
}

func TestExtractPageHeaderFailure(t *testing.T) {
	e := testExtractor(t)

	page := Page{
		Number:     2,
		HeaderText: "Beitragsübersicht Seite 2",
		Fragments: []entity.Fragment{
			fragAt("12345", 10, 32, 120),
			fragAt("2.43000", 480, 515, 120),
		},
	}

	records, rejections, err := e.ExtractPage(page)
	require.Error(t, err)
	var headerErr *common.HeaderParseError
	assert.ErrorAs(t, err, &headerErr)
	assert.Empty(t, records, "no records may be emitted without a period")
	assert.Empty(t, rejections)
}

func TestExtractPageRejectsBadRows(t *testing.T) {
	e := testExtractor(t)

	page := Page{
		Number:     1,
		HeaderText: journalHeader,
		Fragments: []entity.Fragment{
			// Valid row.
			fragAt("10001", 10, 32, 100),
			fragAt("18041", 480, 515, 100),
			// Decode failure in a currency band -> whole row rejected.
			fragAt("10002", 10, 32, 130),
			fragAt("1.234,56-", 480, 515, 130),
			// Identifier not numeric -> rejected, not silently dropped.
			fragAt("Summe", 5, 33, 160),
			fragAt("50000", 480, 515, 160),
		},
	}

	records, rejections, err := e.ExtractPage(page)
	require.NoError(t, err)
	require.Len(t, records, 1, "partial records must never be emitted")
	assert.Equal(t, "10001", records[0].PersNr)

	require.Len(t, rejections, 2)
	assert.Equal(t, "10002", rejections[0].PersNr)
	assert.Equal(t, constants.FieldLohnsteuer, rejections[0].Field)
	var decodeErr *common.DecodeError
	assert.ErrorAs(t, rejections[0], &decodeErr)

	assert.Equal(t, "Summe", rejections[1].PersNr)
	assert.Equal(t, 2, rejections[1].Row)
}

func TestExtractPageSkipsColumnMarkers(t *testing.T) {
	e := testExtractor(t)

	page := Page{
		Number:     1,
		HeaderText: journalHeader,
		Fragments: []entity.Fragment{
			fragAt("10001", 10, 32, 100),
			fragAt("E", 480, 515, 100), // marker in a currency band, not a value
		},
	}

	records, rejections, err := e.ExtractPage(page)
	require.NoError(t, err)
	require.Empty(t, rejections)
	require.Len(t, records, 1)
	assert.False(t, records[0].Field(constants.FieldLohnsteuer).Present)
}

func TestExtractDocument(t *testing.T) {
	e := testExtractor(t)

	pages := []Page{
		{
			Number:     1,
			HeaderText: "Berater: 4711 Mandant: 12 Datum: 05.02.2025 " + journalHeader,
			Fragments: []entity.Fragment{
				fragAt("10001", 10, 32, 100),
				fragAt("2.43000", 480, 515, 100),
			},
		},
		{
			Number:     2,
			HeaderText: "Zwischensumme", // unresolvable period
			Fragments: []entity.Fragment{
				fragAt("10002", 10, 32, 100),
				fragAt("100", 480, 515, 100),
			},
		},
		{
			Number:     3,
			HeaderText: journalHeader,
			Fragments: []entity.Fragment{
				fragAt("10003", 10, 32, 100),
				fragAt("50000", 480, 515, 100),
			},
		},
	}

	res := e.ExtractDocument(pages)

	require.Len(t, res.Records, 2, "page 2's rows are rejected wholesale")
	assert.Equal(t, "10001", res.Records[0].PersNr)
	assert.Equal(t, "10003", res.Records[1].PersNr)

	require.Len(t, res.PageErrors, 1)
	assert.Equal(t, 2, res.PageErrors[0].Page)

	assert.Equal(t, "Januar", res.Month)
	assert.Equal(t, 2025, res.Year)
	assert.Equal(t, "4711", res.Meta.Berater)
	assert.Equal(t, "12", res.Meta.Mandant)
}
