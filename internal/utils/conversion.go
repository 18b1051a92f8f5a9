/*
This file contains common utility functions for converting between base-unit
integer amounts and display-unit floats, with strict precision handling.
*/

package utils

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
	ErrConversionFailed = errors.New("conversion failed")
)

// DisplayAmount converts a base-unit integer amount to a display-unit float,
// dividing by 10^decimals.
func DisplayAmount(amount sdkmath.Int, decimals uint8) (float64, error) {
	if decimals > 18 {
		return 0, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, decimals)
	}
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}

	factor := sdkmath.LegacyNewDec(10).Power(uint64(decimals))
	result, err := sdkmath.LegacyNewDecFromInt(amount).Quo(factor).Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, result)
	}

	return result, nil
}

// BaseAmount converts a display-unit float to a base-unit integer amount,
// multiplying by 10^decimals and truncating.
func BaseAmount(amount float64, decimals uint8) (sdkmath.Int, error) {
	if decimals > 18 {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, decimals)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: amount is %f", ErrNotFinite, amount)
	}
	if amount < 0 {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	if amount == 0 {
		return sdkmath.ZeroInt(), nil
	}

	// String round trip avoids binary floating point artifacts.
	amountStr := fmt.Sprintf("%.*f", decimals, amount)
	decAmount, err := sdkmath.LegacyNewDecFromStr(amountStr)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: failed to create decimal from string: %w", ErrConversionFailed, err)
	}

	factor := sdkmath.LegacyNewDec(10).Power(uint64(decimals))
	return decAmount.Mul(factor).TruncateInt(), nil
}
