package donortools

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ErrAmountOutOfRange is returned when an amount does not fit in int64 cents.
var ErrAmountOutOfRange = errors.New("amount out of range")

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// CentsToUnits converts the wire representation (integer cents) into
// currency units. The conversion is exact.
func CentsToUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// UnitsToCents converts currency units into integer cents.
// Fractions of a cent are rounded half away from zero.
func UnitsToCents(units decimal.Decimal) (int64, error) {
	cents := units.Shift(2).Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, units.String())
	}
	return cents.IntPart(), nil
}
