/*

Share accounting. Shares are claims on the position's net asset value,
denominated so that the first deposit mints one share per unit of target
value. NAV is target reserve plus twice the virtual target reserve: a
balanced pooled position holds equal value on both sides, so its target side
counts double. All divisions truncate toward zero, which rounds in favor of
the holders who stay in.

*/

package engine

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/wlp/internal/utils"
)

// mintShares issues shares for a deposit worth targetValueIn against the NAV
// measured before the deposit. Bootstrap mints 1:1.
func (e *Engine) mintShares(holder string, targetValueIn, navBefore sdkmath.Int) sdkmath.Int {
	var shares sdkmath.Int
	if e.shareSupply.IsZero() || navBefore.IsZero() {
		shares = targetValueIn
	} else {
		shares = targetValueIn.Mul(e.shareSupply).Quo(navBefore)
	}

	e.shareSupply = e.shareSupply.Add(shares)
	balance, ok := e.holders[holder]
	if !ok {
		balance = sdkmath.ZeroInt()
	}
	e.holders[holder] = balance.Add(shares)
	return shares
}

// burnShares removes shares from a holder. The caller has already validated
// the balance via redeemSlices.
func (e *Engine) burnShares(holder string, shares sdkmath.Int) {
	e.holders[holder] = e.holders[holder].Sub(shares)
	e.shareSupply = e.shareSupply.Sub(shares)
}

// SharesOf returns the holder's share balance.
func (e *Engine) SharesOf(holder string) sdkmath.Int {
	balance, ok := e.holders[holder]
	if !ok {
		return sdkmath.ZeroInt()
	}
	return balance
}

// ShareSupply returns the total outstanding shares.
func (e *Engine) ShareSupply() sdkmath.Int { return e.shareSupply }

// TotalSuppliedAssets is the position's NAV in target-asset units, valued at
// the virtual-reserve snapshot.
func (e *Engine) TotalSuppliedAssets() sdkmath.Int {
	return e.navFromSnapshot()
}

func (e *Engine) navFromSnapshot() sdkmath.Int {
	return e.position.TargetReserve.Add(e.virtual.Side(e.targetSide).MulRaw(2))
}

// NAVDisplay converts the snapshot NAV to display units using the target
// asset's registered precision on the ledger.
func (e *Engine) NAVDisplay() (float64, error) {
	decimals, err := e.ledger.Decimals(e.targetDenom())
	if err != nil {
		return 0, fmt.Errorf("reading target decimals: %w", err)
	}
	return utils.DisplayAmount(e.navFromSnapshot(), decimals)
}

// VirtualRatio is NAV per share at snapshot valuation. Zero before the first
// deposit. Share-minting math keeps this invariant across deposits and
// redemptions; only adjustments (fees, realized drift) move it.
func (e *Engine) VirtualRatio() sdkmath.LegacyDec {
	if !e.shareSupply.IsPositive() {
		return sdkmath.LegacyZeroDec()
	}
	return sdkmath.LegacyNewDecFromInt(e.navFromSnapshot()).
		Quo(sdkmath.LegacyNewDecFromInt(e.shareSupply))
}

// UnrealizedRatio is NAV per share valued at live pool reserves instead of
// the snapshot. The spread against VirtualRatio is the drift an adjustment
// would realize.
func (e *Engine) UnrealizedRatio() (sdkmath.LegacyDec, error) {
	if !e.shareSupply.IsPositive() {
		return sdkmath.LegacyZeroDec(), nil
	}
	attributable, err := e.attributableReserves()
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	nav := e.position.TargetReserve.Add(attributable.Side(e.targetSide).MulRaw(2))
	return sdkmath.LegacyNewDecFromInt(nav).
		Quo(sdkmath.LegacyNewDecFromInt(e.shareSupply)), nil
}
