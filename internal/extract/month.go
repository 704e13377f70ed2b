package extract

import (
	"regexp"
	"strconv"

	"github.com/mkessler/lohnjournal-tracker/constants"
	"github.com/mkessler/lohnjournal-tracker/internal/common"
	"github.com/mkessler/lohnjournal-tracker/internal/entity"
)

// Header patterns of the LOA313 form. The period line reads
// "Lohnjournal <Monat> <JJJJ>".
var (
	periodPattern  = regexp.MustCompile(`Lohnjournal\s+([A-Za-zÄÖÜäöüß]+)\s+(\d{4})`)
	beraterPattern = regexp.MustCompile(`Berater:\s*(\d+)`)
	mandantPattern = regexp.MustCompile(`Mandant:\s*(\d+)`)
	datumPattern   = regexp.MustCompile(`Datum:\s*([\d.]+)`)
)

// resolvePeriod derives the reporting period from a page's header text.
// An absent or unrecognized period is a HeaderParseError: rows without a
// reliable period tag cannot be grouped downstream, so the caller rejects
// the whole page.
func resolvePeriod(page int, headerText string) (string, int, error) {
	m := periodPattern.FindStringSubmatch(headerText)
	if m == nil {
		return "", 0, &common.HeaderParseError{Page: page, Header: headerText}
	}
	month := m[1]
	if constants.MonthNumber(month) == 0 {
		return "", 0, &common.HeaderParseError{Page: page, Header: headerText}
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, &common.HeaderParseError{Page: page, Header: headerText}
	}
	return month, year, nil
}

// resolveMeta extracts advisor/client/print-date metadata from header text.
// All fields are optional; missing patterns leave empty strings.
func resolveMeta(headerText string) entity.DocumentMeta {
	var meta entity.DocumentMeta
	if m := beraterPattern.FindStringSubmatch(headerText); m != nil {
		meta.Berater = m[1]
	}
	if m := mandantPattern.FindStringSubmatch(headerText); m != nil {
		meta.Mandant = m[1]
	}
	if m := datumPattern.FindStringSubmatch(headerText); m != nil {
		meta.Datum = m[1]
	}
	return meta
}
