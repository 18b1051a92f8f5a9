/*

Event types emitted by the engine after every state-mutating operation.
These are the externally observable side effects; the state package persists
them and the web dashboard serves them.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// EventKind discriminates engine event rows.
type EventKind string

const (
	EventLiquidityAdded    EventKind = "LIQUIDITY_ADDED"
	EventLiquidityRedeemed EventKind = "LIQUIDITY_REDEEMED"
	EventAdjustment        EventKind = "ADJUSTMENT"
)

// AdjustmentDirection records which correction an adjustment performed.
type AdjustmentDirection string

const (
	AdjustmentHarvest AdjustmentDirection = "HARVEST" // gain: liquidity withdrawn, profit realized
	AdjustmentTopUp   AdjustmentDirection = "TOP_UP"  // loss: reserve deployed back into the pool
)

// EngineEvent is a single observable engine operation.
type EngineEvent struct {
	EventID   int64     `json:"event_id,omitempty"` // Auto-incremented by DB
	Kind      EventKind `json:"kind"`
	OpID      string    `json:"op_id"` // UUID tracing the operation across logs
	Timestamp time.Time `json:"timestamp"`

	// LIQUIDITY_ADDED / LIQUIDITY_REDEEMED
	Account   string      `json:"account,omitempty"`
	AmountIn  *sdk.Coin   `json:"amount_in,omitempty"`
	SharesOut sdkmath.Int `json:"shares_out"`
	SharesIn  sdkmath.Int `json:"shares_in"`
	TargetOut sdkmath.Int `json:"target_out"`
	// Raw pooled-liquidity units paid out by the safe redemption path.
	LiquidityOut sdkmath.Int `json:"liquidity_out"`

	// ADJUSTMENT
	Direction       AdjustmentDirection `json:"direction,omitempty"`
	DriftPpt        int64               `json:"drift_ppt,omitempty"`
	LiquidityBurned sdkmath.Int         `json:"liquidity_burned"`
	TargetHarvested sdkmath.Int         `json:"target_harvested"`
	PerformanceFee  sdkmath.Int         `json:"performance_fee"`
	ReserveDeployed sdkmath.Int         `json:"reserve_deployed"`
	LiquidityMinted sdkmath.Int         `json:"liquidity_minted"`

	// Post-operation engine state.
	Position PositionSnapshot `json:"position"`
}

// NewEngineEvent returns an event with every integral field initialized to
// zero so it always marshals cleanly.
func NewEngineEvent(kind EventKind, opID string) EngineEvent {
	zero := sdkmath.ZeroInt()
	return EngineEvent{
		Kind:            kind,
		OpID:            opID,
		Timestamp:       time.Now().UTC(),
		SharesOut:       zero,
		SharesIn:        zero,
		TargetOut:       zero,
		LiquidityOut:    zero,
		LiquidityBurned: zero,
		TargetHarvested: zero,
		PerformanceFee:  zero,
		ReserveDeployed: zero,
		LiquidityMinted: zero,
	}
}
