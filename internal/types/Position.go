/*

This file contains the types describing the engine's claim on the external
constant-product pool and the snapshot used as the rebalancing baseline.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// Side identifies one of the two pool assets by its reserve index.
type Side int

const (
	Side0 Side = 0
	Side1 Side = 1
)

// Other returns the opposite reserve side.
func (s Side) Other() Side {
	if s == Side0 {
		return Side1
	}
	return Side0
}

// Position is the engine's claim on the external pool plus the target-asset
// balance held outside it pending deployment.
type Position struct {
	PooledLiquidity sdkmath.Int `json:"pooled_liquidity"` // Denominated in the pool's own liquidity-share units
	TargetReserve   sdkmath.Int `json:"target_reserve"`   // Target asset held in reserve, not supplied to the pool
}

// ZeroPosition returns an empty position.
func ZeroPosition() Position {
	return Position{
		PooledLiquidity: sdkmath.ZeroInt(),
		TargetReserve:   sdkmath.ZeroInt(),
	}
}

// VirtualReserves is the snapshot of pool reserves attributable to
// PooledLiquidity at the time the position was last written. Drift is
// measured against this baseline.
type VirtualReserves struct {
	Reserve0 sdkmath.Int `json:"reserve0"`
	Reserve1 sdkmath.Int `json:"reserve1"`
}

// ZeroVirtualReserves returns an empty snapshot.
func ZeroVirtualReserves() VirtualReserves {
	return VirtualReserves{
		Reserve0: sdkmath.ZeroInt(),
		Reserve1: sdkmath.ZeroInt(),
	}
}

// Side returns the snapshot reserve on the given side.
func (v VirtualReserves) Side(s Side) sdkmath.Int {
	if s == Side0 {
		return v.Reserve0
	}
	return v.Reserve1
}

// PositionSnapshot is the persisted view of the engine state after an
// operation, stored alongside the operation's event row.
type PositionSnapshot struct {
	PooledLiquidity string  `json:"pooled_liquidity"`
	TargetReserve   string  `json:"target_reserve"`
	VirtualReserve0 string  `json:"virtual_reserve0"`
	VirtualReserve1 string  `json:"virtual_reserve1"`
	ShareSupply     string  `json:"share_supply"`
	NAV             string  `json:"nav"`
	VirtualRatio    float64 `json:"virtual_ratio"`
}
