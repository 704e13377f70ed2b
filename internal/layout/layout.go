// Package layout holds the versioned field-band tables that map page
// coordinates to named payroll fields. Tables are pure configuration:
// a new DATEV export revision means a new table, not new code.
package layout

import (
	"fmt"
	"sort"

	"github.com/mkessler/lohnjournal-tracker/constants"
	"github.com/mkessler/lohnjournal-tracker/internal/common"
	"github.com/mkessler/lohnjournal-tracker/internal/entity"
)

// FieldSpec describes one payroll field: the horizontal band [XMin, XMax)
// a fragment's midpoint must fall within, and the field's semantic type.
type FieldSpec struct {
	Name string
	XMin float64
	XMax float64
	Kind entity.FieldKind
}

func (s FieldSpec) width() float64 { return s.XMax - s.XMin }

func (s FieldSpec) contains(x float64) bool { return x >= s.XMin && x < s.XMax }

// Overlap is a configuration defect between two bands. A correctly tuned
// layout has none; lookups stay deterministic regardless (narrowest band
// wins), but the loader logs each overlap as a warning.
type Overlap struct {
	A, B string
}

// Table is one immutable layout revision. Construct via New; never mutate
// after construction.
type Table struct {
	version      string
	idField      string
	rowTolerance float64
	specs        []FieldSpec // sorted by XMin
	byName       map[string]FieldSpec
	overlaps     []Overlap
}

// New validates and indexes a band table. specs are copied and sorted by
// XMin, so callers may reuse their slice.
func New(version, idField string, rowTolerance float64, specs []FieldSpec) (*Table, error) {
	if version == "" {
		return nil, common.NewAppError("LAYOUT_INVALID", "layout version is required", common.ErrInvalidInput)
	}
	if len(specs) == 0 {
		return nil, common.NewAppError("LAYOUT_INVALID", "layout has no fields", common.ErrInvalidInput)
	}
	if idField == "" {
		idField = constants.FieldPersNr
	}
	if rowTolerance <= 0 {
		rowTolerance = constants.DefaultRowTolerance
	}

	t := &Table{
		version:      version,
		idField:      idField,
		rowTolerance: rowTolerance,
		specs:        make([]FieldSpec, len(specs)),
		byName:       make(map[string]FieldSpec, len(specs)),
	}
	copy(t.specs, specs)

	for _, s := range t.specs {
		if s.Name == "" {
			return nil, common.NewAppError("LAYOUT_INVALID", "field with empty name", common.ErrInvalidInput)
		}
		if !s.Kind.Valid() {
			return nil, common.NewAppError("LAYOUT_INVALID",
				fmt.Sprintf("field %s: unknown kind %q", s.Name, s.Kind), common.ErrInvalidInput)
		}
		if s.XMin >= s.XMax {
			return nil, common.NewAppError("LAYOUT_INVALID",
				fmt.Sprintf("field %s: empty band [%g, %g)", s.Name, s.XMin, s.XMax), common.ErrInvalidInput)
		}
		if _, dup := t.byName[s.Name]; dup {
			return nil, common.NewAppError("LAYOUT_INVALID",
				fmt.Sprintf("duplicate field %s", s.Name), common.ErrInvalidInput)
		}
		t.byName[s.Name] = s
	}
	if _, ok := t.byName[idField]; !ok {
		return nil, common.NewAppError("LAYOUT_INVALID",
			fmt.Sprintf("identifier field %s not in table", idField), common.ErrInvalidInput)
	}

	sort.Slice(t.specs, func(i, j int) bool {
		if t.specs[i].XMin != t.specs[j].XMin {
			return t.specs[i].XMin < t.specs[j].XMin
		}
		return t.specs[i].XMax < t.specs[j].XMax
	})
	for i := 0; i < len(t.specs); i++ {
		for j := i + 1; j < len(t.specs) && t.specs[j].XMin < t.specs[i].XMax; j++ {
			t.overlaps = append(t.overlaps, Overlap{A: t.specs[i].Name, B: t.specs[j].Name})
		}
	}
	return t, nil
}

// Assign selects the field whose band contains the fragment's horizontal
// midpoint, or nil for page furniture outside every band. When bands
// overlap, the narrowest match wins (deterministic tie-break on XMin).
func (t *Table) Assign(f entity.Fragment) *FieldSpec {
	mid := f.MidX()

	// First band starting right of mid; candidates are strictly before it.
	idx := sort.Search(len(t.specs), func(i int) bool { return t.specs[i].XMin > mid })

	var best *FieldSpec
	for i := idx - 1; i >= 0; i-- {
		s := t.specs[i]
		if !s.contains(mid) {
			if len(t.overlaps) == 0 {
				// Disjoint table: no earlier band can reach past this one.
				break
			}
			continue
		}
		if best == nil || s.width() < best.width() {
			spec := s
			best = &spec
		}
	}
	return best
}

// Version is the layout revision identifier.
func (t *Table) Version() string { return t.version }

// IDField is the mandatory employee-identifier field name.
func (t *Table) IDField() string { return t.idField }

// RowTolerance is the vertical distance within which fragments share a row.
func (t *Table) RowTolerance() float64 { return t.rowTolerance }

// Specs returns the bands in ascending XMin order; the slice is a copy.
func (t *Table) Specs() []FieldSpec {
	out := make([]FieldSpec, len(t.specs))
	copy(out, t.specs)
	return out
}

// Lookup returns the spec for a field name.
func (t *Table) Lookup(name string) (FieldSpec, bool) {
	s, ok := t.byName[name]
	return s, ok
}

// Overlaps lists configuration defects found at construction time.
func (t *Table) Overlaps() []Overlap { return t.overlaps }
