/*
This file contains the fixed-point arithmetic primitives shared by the invariant
solver and the pool state machine.

All pool math runs on arbitrary-precision integers scaled to 18 decimals, with
fees expressed at 10 decimals, mirroring the fixed-point representation of the
on-chain contracts being modeled. Floating point is only ever used at the
reporting boundary, never inside state-changing arithmetic.
*/

package fixedpoint

import (
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
)

const (
	// BalanceDecimals is the internal precision of balances and rates.
	BalanceDecimals = 18
	// FeeDecimals is the precision of fee rates (4e6 == 0.04%).
	FeeDecimals = 10
)

var (
	// Precision is 10^18, the scaling factor for balances and rates.
	Precision = sdkmath.NewIntWithDecimal(1, BalanceDecimals)
	// FeeDenominator is 10^10, the scaling factor for fee rates.
	FeeDenominator = sdkmath.NewIntWithDecimal(1, FeeDecimals)
)

// MulDiv returns floor(a * b / d). All inputs must be non-negative; a zero
// divisor is an input-contract violation and panics.
func MulDiv(a, b, d sdkmath.Int) sdkmath.Int {
	return a.Mul(b).Quo(d)
}

// ApplyRate scales a native balance to internal 18-decimal units.
func ApplyRate(x, rate sdkmath.Int) sdkmath.Int {
	return MulDiv(x, rate, Precision)
}

// UnapplyRate scales an internal 18-decimal amount back to native units.
func UnapplyRate(x, rate sdkmath.Int) sdkmath.Int {
	return MulDiv(x, Precision, rate)
}

// FeeCut returns floor(amount * feeRate / 10^10).
func FeeCut(amount, feeRate sdkmath.Int) sdkmath.Int {
	return MulDiv(amount, feeRate, FeeDenominator)
}

// Sum returns the sum of the given values.
func Sum(xs []sdkmath.Int) sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, x := range xs {
		total = total.Add(x)
	}
	return total
}

// WithinOne reports whether |a - b| <= 1, the convergence criterion shared by
// the Newton iterations.
func WithinOne(a, b sdkmath.Int) bool {
	return a.Sub(b).Abs().LTE(sdkmath.OneInt())
}

// Clone returns an independent copy of a balance slice.
func Clone(xs []sdkmath.Int) []sdkmath.Int {
	out := make([]sdkmath.Int, len(xs))
	copy(out, xs)
	return out
}

// Ratio returns a/b as a float64. b must be positive.
func Ratio(a, b sdkmath.Int) (float64, error) {
	if b.IsNil() || !b.IsPositive() {
		return 0, fmt.Errorf("%w: ratio denominator must be positive", ErrAmountNegative)
	}
	out, err := sdkmath.LegacyNewDecFromInt(a).Quo(sdkmath.LegacyNewDecFromInt(b)).Float64()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, out)
	}
	return out, nil
}

// IntToFloat converts an Int with the given decimal precision to float64.
// Used only at the reporting boundary (spot prices, metrics).
func IntToFloat(amount sdkmath.Int, decimals int) (float64, error) {
	if decimals < 0 || decimals > 18 {
		return 0, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, decimals)
	}
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}

	decAmount := sdkmath.LegacyNewDecFromInt(amount)
	factor := sdkmath.LegacyNewDec(10).Power(uint64(decimals))

	result, err := decAmount.Quo(factor).Float64()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, result)
	}
	return result, nil
}
