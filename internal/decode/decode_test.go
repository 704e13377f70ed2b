package decode

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkessler/lohnjournal-tracker/internal/common"
	"github.com/mkessler/lohnjournal-tracker/internal/entity"
)

func TestCurrency(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		present bool
		wantErr bool
	}{
		{"grouped amount", "2.43000", "2430.00", true, false},
		{"short amount", "18041", "180.41", true, false},
		{"single group", "500", "5.00", true, false},
		{"explicit zero", "000", "0.00", true, false},
		{"negative", "12345-", "-123.45", true, false},
		{"negative grouped", "1.234.567-", "-12345.67", true, false},
		{"large amount", "123.456.789", "1234567.89", true, false},
		{"empty", "", "", false, false},
		{"whitespace only", "   ", "", false, false},
		{"comma format rejected", "1.234,56-", "", false, true},
		{"letters rejected", "12a45", "", false, true},
		{"bare sign rejected", "-", "", false, true},
		{"separator only rejected", ".", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, present, err := Currency(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				var decodeErr *common.DecodeError
				assert.ErrorAs(t, err, &decodeErr)
				assert.Equal(t, tt.raw, decodeErr.Raw)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.present, present)
			if present {
				assert.Equal(t, tt.want, got.StringFixed(2))
			}
		})
	}
}

func TestInteger(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		present bool
		wantErr bool
	}{
		{"days", "30", 30, true, false},
		{"zero days", "0", 0, true, false},
		{"negative correction", "3-", -3, true, false},
		{"empty", "", 0, false, false},
		{"garbage", "3x", 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, present, err := Integer(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.present, present)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestField(t *testing.T) {
	v, err := Field("2.43000", entity.KindCurrency)
	require.NoError(t, err)
	assert.True(t, v.Present)
	assert.Equal(t, "2430.00", v.Amount.StringFixed(2))

	v, err = Field("  Müller, Anna  ", entity.KindText)
	require.NoError(t, err)
	assert.Equal(t, entity.TextValue("Müller, Anna"), v)

	// Blank decodes to the sentinel, never to zero and never to an error.
	for _, kind := range []entity.FieldKind{entity.KindText, entity.KindInteger, entity.KindCurrency} {
		v, err = Field("", kind)
		require.NoError(t, err)
		assert.False(t, v.Present)
		assert.Equal(t, kind, v.Kind)
	}
}

func TestRoundTrip(t *testing.T) {
	amounts := []string{"0.00", "0.01", "180.41", "2430.00", "-123.45", "12345.67", "1234567.89", "-99999.99"}
	for _, s := range amounts {
		t.Run(s, func(t *testing.T) {
			want, err := decimal.NewFromString(s)
			require.NoError(t, err)

			encoded := EncodeCurrency(want)
			got, present, err := Currency(encoded)
			require.NoError(t, err, "encoded form %q", encoded)
			require.True(t, present)
			assert.True(t, want.Equal(got), "%s -> %q -> %s", s, encoded, got)
		})
	}

	ints := []int64{0, 3, 30, -14, 365}
	for _, n := range ints {
		got, present, err := Integer(EncodeInteger(n))
		require.NoError(t, err)
		require.True(t, present)
		assert.Equal(t, n, got)
	}
}
