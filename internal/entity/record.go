package entity

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EmployeeRecord is one employee's payroll line for one reporting period.
// Fields contains an entry for every field of the active layout; fields with
// no source fragment hold the empty sentinel, never a missing key. Records
// are immutable after emission by the extractor.
type EmployeeRecord struct {
	PersNr string
	Month  string
	Year   int
	Page   int // 1-based source page
	Row    int // 0-based row index on its page
	Fields map[string]Value
}

// Field returns the value for name; unknown names return an absent
// zero-kind value.
func (r *EmployeeRecord) Field(name string) Value {
	return r.Fields[name]
}

// Period renders the record's reporting period, e.g. "Januar 2025".
func (r *EmployeeRecord) Period() string {
	return r.Month + " " + strconv.Itoa(r.Year)
}

// DocumentMeta is header metadata extracted from the first journal page.
type DocumentMeta struct {
	Berater string
	Mandant string
	Datum   string
}

// ImportRun is the audit entry for one document import.
type ImportRun struct {
	ID         uuid.UUID
	SourcePath string
	HashHex    string
	Month      string
	Year       int
	Records    int
	Rejected   int
	ImportedAt time.Time
}
