package donortools

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentsToUnits_RoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 1234, 5000, 999999, 123456789} {
		units := CentsToUnits(cents)
		got, err := UnitsToCents(units)
		require.NoError(t, err)
		assert.Equal(t, cents, got, "cents=%d", cents)
		assert.True(t, units.Mul(decimal.NewFromInt(100)).Equal(decimal.NewFromInt(cents)))
	}
}

func TestCentsToUnits_WholeUnits(t *testing.T) {
	assert.Equal(t, "50", CentsToUnits(5000).String())
	assert.Equal(t, "12.34", CentsToUnits(1234).String())
	assert.Equal(t, "0.05", CentsToUnits(5).String())
}

func TestUnitsToCents(t *testing.T) {
	tests := []struct {
		units string
		cents int64
	}{
		{"12.34", 1234},
		{"50", 5000},
		{"0.1", 10},
		{"19.99", 1999},
		// Fractions of a cent round half away from zero.
		{"0.005", 1},
		{"0.0049", 0},
		{"10.125", 1013},
		{"-0.005", -1},
		{"92233720368547758.07", 9223372036854775807},
		{"-92233720368547758.08", -9223372036854775808},
	}

	for _, tt := range tests {
		t.Run(tt.units, func(t *testing.T) {
			got, err := UnitsToCents(decimal.RequireFromString(tt.units))
			require.NoError(t, err)
			assert.Equal(t, tt.cents, got)
		})
	}
}

func TestUnitsToCents_OutOfRange(t *testing.T) {
	for _, units := range []string{"100000000000000000", "92233720368547758.08", "1e30", "-1e30"} {
		t.Run(units, func(t *testing.T) {
			_, err := UnitsToCents(decimal.RequireFromString(units))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrAmountOutOfRange))
		})
	}
}
