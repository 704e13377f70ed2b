package layout

import (
	"github.com/mkessler/lohnjournal-tracker/constants"
	"github.com/mkessler/lohnjournal-tracker/internal/entity"
)

// Default returns the built-in band table for the LOA313 form revision.
// Coordinates were measured against the text layer of original documents;
// other revisions ship as JSON files loaded via Load.
func Default() *Table {
	t, err := New("loa313-2024", constants.FieldPersNr, constants.DefaultRowTolerance, []FieldSpec{
		{Name: constants.FieldPersNr, XMin: 0, XMax: 35, Kind: entity.KindText},
		{Name: constants.FieldSteuerklasse, XMin: 60, XMax: 78, Kind: entity.KindText},
		{Name: constants.FieldName, XMin: 140, XMax: 350, Kind: entity.KindText},
		{Name: constants.FieldStTage, XMin: 355, XMax: 378, Kind: entity.KindInteger},
		{Name: constants.FieldSvTage, XMin: 380, XMax: 403, Kind: entity.KindInteger},
		{Name: constants.FieldSteuerbrutto, XMin: 410, XMax: 470, Kind: entity.KindCurrency},
		{Name: constants.FieldLohnsteuer, XMin: 472, XMax: 520, Kind: entity.KindCurrency},
		{Name: constants.FieldKirchensteuer, XMin: 522, XMax: 565, Kind: entity.KindCurrency},
		{Name: constants.FieldSolidaritaet, XMin: 567, XMax: 610, Kind: entity.KindCurrency},
		{Name: constants.FieldKVBeitragAN, XMin: 612, XMax: 650, Kind: entity.KindCurrency},
		{Name: constants.FieldRVBeitragAN, XMin: 652, XMax: 690, Kind: entity.KindCurrency},
		{Name: constants.FieldAVBeitragAN, XMin: 692, XMax: 720, Kind: entity.KindCurrency},
		{Name: constants.FieldPVBeitragAN, XMin: 722, XMax: 748, Kind: entity.KindCurrency},
		{Name: constants.FieldGesamtbrutto, XMin: 750, XMax: 790, Kind: entity.KindCurrency},
		{Name: constants.FieldNettoBezuege, XMin: 792, XMax: 830, Kind: entity.KindCurrency},
		{Name: constants.FieldAuszahlungsbetrag, XMin: 832, XMax: 880, Kind: entity.KindCurrency},
	})
	if err != nil {
		// Built-in table, validated by tests; a failure here is a bug.
		panic(err)
	}
	return t
}
