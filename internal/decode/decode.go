// Package decode converts DATEV-encoded numeric text into exact values.
//
// The Lohnjournal encodes amounts as plain digit strings where '.' is a
// grouping separator and the final two digits are cents ("2.43000" is
// 2430.00 EUR). A trailing '-' marks the value negative. Day counts are
// whole numbers under the same sign convention.
package decode

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mkessler/lohnjournal-tracker/internal/common"
	"github.com/mkessler/lohnjournal-tracker/internal/entity"
)

// Currency decodes raw into an exact amount in major currency units.
// Blank input returns present=false (the empty sentinel), never zero.
func Currency(raw string) (decimal.Decimal, bool, error) {
	minor, present, err := minorUnits(raw)
	if err != nil || !present {
		return decimal.Decimal{}, present, err
	}
	return decimal.New(minor, -2), true, nil
}

// Integer decodes raw as a whole number (day counts).
func Integer(raw string) (int64, bool, error) {
	return minorUnits(raw)
}

// Field decodes raw according to kind, returning the field's Value.
// Text fields pass through trimmed; blank input of any kind yields the
// kind's empty sentinel.
func Field(raw string, kind entity.FieldKind) (entity.Value, error) {
	switch kind {
	case entity.KindCurrency:
		d, present, err := Currency(raw)
		if err != nil {
			return entity.Empty(kind), err
		}
		if !present {
			return entity.Empty(kind), nil
		}
		return entity.CurrencyValue(d), nil
	case entity.KindInteger:
		n, present, err := Integer(raw)
		if err != nil {
			return entity.Empty(kind), err
		}
		if !present {
			return entity.Empty(kind), nil
		}
		return entity.IntValue(n), nil
	default:
		s := strings.TrimSpace(raw)
		if s == "" {
			return entity.Empty(entity.KindText), nil
		}
		return entity.TextValue(s), nil
	}
}

// minorUnits strips the sign and separators and parses the digit string.
// Any non-digit remainder is a hard DecodeError: silent coercion to zero
// would corrupt financial totals.
func minorUnits(raw string) (int64, bool, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false, nil
	}

	negative := strings.HasSuffix(s, "-")
	if negative {
		s = strings.TrimSuffix(s, "-")
	}
	s = strings.ReplaceAll(s, ".", "")
	if s == "" {
		return 0, false, &common.DecodeError{Raw: raw, Reason: "no digits"}
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false, &common.DecodeError{Raw: raw, Reason: "unexpected character " + strconv.QuoteRune(r)}
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, &common.DecodeError{Raw: raw, Reason: "out of range"}
	}
	if negative {
		n = -n
	}
	return n, true, nil
}

// EncodeCurrency renders an amount back into DATEV notation, grouping the
// minor-unit digit string in threes from the left as LOA313 prints it.
func EncodeCurrency(d decimal.Decimal) string {
	minor := d.Shift(2).IntPart()
	return encodeMinor(minor)
}

// EncodeInteger renders a whole number in DATEV notation.
func EncodeInteger(n int64) string {
	return encodeMinor(n)
}

func encodeMinor(n int64) string {
	negative := n < 0
	if negative {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	if negative {
		b.WriteByte('-')
	}
	return b.String()
}
