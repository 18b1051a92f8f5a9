/*

Drift measurement and correction. The virtual-reserve snapshot taken after
the last state-mutating operation is the baseline; drift is the ratio of the
live attributable target reserve to the snapshot value, in parts-per-thousand
where 1000 is par. Outside the symmetric threshold band the engine corrects:
gains are harvested out of the pool into the reserve (minus a performance fee
that scales with how far past the threshold the drift went), losses are
covered by deploying reserve back in. Either way the snapshot is rewritten,
so a correction always ends with the band satisfied.

*/

package engine

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/wlp/internal/types"
)

const driftParPpt = 1000

// attributableReserves returns the live pool reserves backing the engine's
// pooled liquidity, pro rata of the outstanding liquidity supply.
func (e *Engine) attributableReserves() (types.VirtualReserves, error) {
	if !e.position.PooledLiquidity.IsPositive() {
		return types.ZeroVirtualReserves(), nil
	}
	reserve0, reserve1, _, err := e.pool.Reserves()
	if err != nil {
		return types.VirtualReserves{}, fmt.Errorf("reading reserves: %w", err)
	}
	supply, err := e.pool.TotalLiquiditySupply()
	if err != nil {
		return types.VirtualReserves{}, fmt.Errorf("reading liquidity supply: %w", err)
	}
	if !supply.IsPositive() {
		return types.ZeroVirtualReserves(), nil
	}
	return types.VirtualReserves{
		Reserve0: reserve0.Mul(e.position.PooledLiquidity).Quo(supply),
		Reserve1: reserve1.Mul(e.position.PooledLiquidity).Quo(supply),
	}, nil
}

// snapshotFor computes the virtual reserves a given pooled-liquidity amount
// would be entitled to right now. Used to rewrite the baseline after an
// operation changes the pooled position.
func (e *Engine) snapshotFor(pooledLiquidity sdkmath.Int) (types.VirtualReserves, error) {
	if !pooledLiquidity.IsPositive() {
		return types.ZeroVirtualReserves(), nil
	}
	reserve0, reserve1, _, err := e.pool.Reserves()
	if err != nil {
		return types.VirtualReserves{}, fmt.Errorf("reading reserves: %w", err)
	}
	supply, err := e.pool.TotalLiquiditySupply()
	if err != nil {
		return types.VirtualReserves{}, fmt.Errorf("reading liquidity supply: %w", err)
	}
	if !supply.IsPositive() {
		return types.ZeroVirtualReserves(), nil
	}
	return types.VirtualReserves{
		Reserve0: reserve0.Mul(pooledLiquidity).Quo(supply),
		Reserve1: reserve1.Mul(pooledLiquidity).Quo(supply),
	}, nil
}

// driftPpt measures the live attributable target reserve against the
// snapshot baseline. ok is false when no baseline exists yet (no pooled
// position), in which case drift is undefined and no correction applies.
func (e *Engine) driftPpt() (drift sdkmath.Int, ok bool, err error) {
	baseline := e.virtual.Side(e.targetSide)
	if !baseline.IsPositive() {
		return sdkmath.Int{}, false, nil
	}
	attributable, err := e.attributableReserves()
	if err != nil {
		return sdkmath.Int{}, false, err
	}
	live := attributable.Side(e.targetSide)
	return live.MulRaw(driftParPpt).Quo(baseline), true, nil
}

// ShouldAdjust reports whether the drift band is currently breached. It is a
// pure read; the daemon polls it between full adjustment runs.
func (e *Engine) ShouldAdjust() (bool, error) {
	drift, ok, err := e.driftPpt()
	if err != nil || !ok {
		return false, err
	}
	threshold := e.params.DriftThresholdPpt
	return drift.GTE(sdkmath.NewInt(driftParPpt + threshold)) ||
		drift.LTE(sdkmath.NewInt(driftParPpt - threshold)), nil
}

// adjustLocked runs one corrective step. Caller holds the reentrancy guard.
// Within the band it returns nil without touching anything.
func (e *Engine) adjustLocked(opID string) error {
	drift, ok, err := e.driftPpt()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	threshold := e.params.DriftThresholdPpt
	switch {
	case drift.GTE(sdkmath.NewInt(driftParPpt + threshold)):
		return e.harvestGain(opID, drift)
	case drift.LTE(sdkmath.NewInt(driftParPpt - threshold)):
		return e.coverLoss(opID, drift)
	default:
		return nil
	}
}

// harvestGain realizes the profit above the baseline: it burns the pooled
// liquidity backing the excess, zaps the payout into target asset, takes the
// scaled performance fee, and banks the rest in the target reserve.
func (e *Engine) harvestGain(opID string, drift sdkmath.Int) error {
	log := e.logger.With().Str("op_id", opID).Logger()

	attributable, err := e.attributableReserves()
	if err != nil {
		return err
	}
	live := attributable.Side(e.targetSide)
	baseline := e.virtual.Side(e.targetSide)
	profit := live.Sub(baseline)

	// The burned fraction equals profit/live, so the remaining pooled
	// position backs exactly the baseline again.
	liquidityToBurn := e.position.PooledLiquidity.Mul(profit).Quo(live)

	harvested, err := e.zapOut(liquidityToBurn)
	if err != nil {
		return fmt.Errorf("harvest: %w", err)
	}

	fee := e.scaledPerformanceFee(harvested, drift)
	if fee.IsPositive() {
		coin := sdk.Coin{Denom: e.targetDenom(), Amount: fee}
		if err := e.ledger.Transfer(e.account, e.feeCollector, coin); err != nil {
			return fmt.Errorf("fee transfer: %w", err)
		}
	}

	newPooled := e.position.PooledLiquidity.Sub(liquidityToBurn)
	snapshot, err := e.snapshotFor(newPooled)
	if err != nil {
		return fmt.Errorf("post-harvest snapshot: %w", err)
	}

	e.position.PooledLiquidity = newPooled
	e.position.TargetReserve = e.position.TargetReserve.Add(harvested.Sub(fee))
	e.virtual = snapshot

	log.Info().
		Str("drift_ppt", drift.String()).
		Str("liquidity_burned", liquidityToBurn.String()).
		Str("target_harvested", harvested.String()).
		Str("performance_fee", fee.String()).
		Msg("Harvested gain")

	event := types.NewEngineEvent(types.EventAdjustment, opID)
	event.Direction = types.AdjustmentHarvest
	event.DriftPpt = intToInt64Saturated(drift)
	event.LiquidityBurned = liquidityToBurn
	event.TargetHarvested = harvested
	event.PerformanceFee = fee
	e.emit(event)

	return nil
}

// coverLoss deploys target reserve back into the pool to restore the
// baseline. The shortfall is doubled because a balanced deployment splits
// across both sides; deployment is capped by the available reserve, and the
// baseline is rewritten either way so the band closes.
func (e *Engine) coverLoss(opID string, drift sdkmath.Int) error {
	log := e.logger.With().Str("op_id", opID).Logger()

	attributable, err := e.attributableReserves()
	if err != nil {
		return err
	}
	baseline := e.virtual.Side(e.targetSide)
	shortfall := baseline.Sub(attributable.Side(e.targetSide))

	deploy := sdkmath.MinInt(shortfall.MulRaw(2), e.position.TargetReserve)

	minted := sdkmath.ZeroInt()
	if deploy.IsPositive() {
		minted, err = e.deployBalanced(deploy)
		if err != nil {
			return fmt.Errorf("loss cover: %w", err)
		}
	}

	newPooled := e.position.PooledLiquidity.Add(minted)
	snapshot, err := e.snapshotFor(newPooled)
	if err != nil {
		return fmt.Errorf("post-cover snapshot: %w", err)
	}

	e.position.PooledLiquidity = newPooled
	e.position.TargetReserve = e.position.TargetReserve.Sub(deploy)
	e.virtual = snapshot

	log.Info().
		Str("drift_ppt", drift.String()).
		Str("reserve_deployed", deploy.String()).
		Str("liquidity_minted", minted.String()).
		Msg("Covered loss")

	event := types.NewEngineEvent(types.EventAdjustment, opID)
	event.Direction = types.AdjustmentTopUp
	event.DriftPpt = intToInt64Saturated(drift)
	event.ReserveDeployed = deploy
	event.LiquidityMinted = minted
	e.emit(event)

	return nil
}

// scaledPerformanceFee computes the fee on a harvested profit. The rate
// scales linearly with the drift excess beyond par, reaching the base rate
// exactly at the threshold edge:
//
//	fee = harvested * feeBps/10000 * (drift - 1000)/threshold
//
// capped at the harvested amount.
func (e *Engine) scaledPerformanceFee(harvested, drift sdkmath.Int) sdkmath.Int {
	if !harvested.IsPositive() || e.params.PerformanceFeeBps == 0 {
		return sdkmath.ZeroInt()
	}
	excess := drift.SubRaw(driftParPpt)
	if !excess.IsPositive() {
		return sdkmath.ZeroInt()
	}
	fee := harvested.
		MulRaw(e.params.PerformanceFeeBps).
		Mul(excess).
		QuoRaw(e.params.DriftThresholdPpt * 10000)
	return sdkmath.MinInt(fee, harvested)
}

func intToInt64Saturated(i sdkmath.Int) int64 {
	if !i.IsInt64() {
		if i.IsNegative() {
			return -1 << 63
		}
		return 1<<63 - 1
	}
	return i.Int64()
}
