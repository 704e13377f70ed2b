package constants

// Canonical field names shared between the layout tables, the per-period
// database columns and the Excel export (store these exact strings).
const (
	FieldPersNr            = "pers_nr"
	FieldName              = "name"
	FieldSteuerklasse      = "steuerklasse"
	FieldStTage            = "st_tage"
	FieldSvTage            = "sv_tage"
	FieldSteuerbrutto      = "steuerbrutto"
	FieldLohnsteuer        = "lohnsteuer"
	FieldKirchensteuer     = "kirchensteuer"
	FieldSolidaritaet      = "solidaritaetszuschlag"
	FieldKVBeitragAN       = "kv_beitrag_an"
	FieldRVBeitragAN       = "rv_beitrag_an"
	FieldAVBeitragAN       = "av_beitrag_an"
	FieldPVBeitragAN       = "pv_beitrag_an"
	FieldGesamtbrutto      = "gesamtbrutto"
	FieldNettoBezuege      = "netto_bezuege"
	FieldAuszahlungsbetrag = "auszahlungsbetrag"
)

// Page markers identifying a Lohnjournal data page. Pages missing either
// marker (cover sheets, recap pages) are skipped entirely.
const (
	MarkerJournal = "Lohnjournal"
	MarkerFormNr  = "Form.-Nr.LOA313"
)

// ColumnMarkers are single-letter DATEV column annotations ("Z"ulage,
// "E"inmalbezug) that occupy value bands without carrying a value.
var ColumnMarkers = map[string]struct{}{
	"Z": {},
	"E": {},
}

// DefaultRowTolerance is the vertical distance (in PDF points) within which
// two fragments belong to the same logical row for the LOA313 line spacing.
const DefaultRowTolerance = 2.0

// IsColumnMarker reports whether a fragment's text is a bare column marker.
func IsColumnMarker(text string) bool {
	_, ok := ColumnMarkers[text]
	return ok
}
