package entity

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// FieldKind is the semantic type of a payroll field.
type FieldKind string

// Stable values (stored in layout files).
const (
	KindText     FieldKind = "text"
	KindInteger  FieldKind = "integer"
	KindCurrency FieldKind = "currency"
)

// Valid reports whether k is a known field kind.
func (k FieldKind) Valid() bool {
	switch k {
	case KindText, KindInteger, KindCurrency:
		return true
	}
	return false
}

// Value is one decoded field of an employee record. Present distinguishes a
// blank source column from a genuine zero: a blank never becomes 0, it stays
// an empty value that persistence writes as NULL and aggregation skips.
type Value struct {
	Kind    FieldKind
	Present bool
	Text    string
	Int     int64
	Amount  decimal.Decimal
}

// Empty returns the explicit empty sentinel for the given kind.
func Empty(kind FieldKind) Value {
	return Value{Kind: kind}
}

// TextValue returns a present text value.
func TextValue(s string) Value {
	return Value{Kind: KindText, Present: true, Text: s}
}

// IntValue returns a present integer value.
func IntValue(n int64) Value {
	return Value{Kind: KindInteger, Present: true, Int: n}
}

// CurrencyValue returns a present currency amount.
func CurrencyValue(d decimal.Decimal) Value {
	return Value{Kind: KindCurrency, Present: true, Amount: d}
}

// String renders the value for logs and spreadsheet cells; empty values
// render as "".
func (v Value) String() string {
	if !v.Present {
		return ""
	}
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindCurrency:
		return v.Amount.StringFixed(2)
	default:
		return v.Text
	}
}
