/*

The position engine. It owns one position in an external constant-product
pool: pooled liquidity, a target-asset reserve held outside the pool, and a
virtual-reserve snapshot that serves as the baseline for drift measurement.
Deposits and redemptions are share-accounted against the position's net asset
value, and every entry point runs a corrective adjustment first so pricing
always happens against a fresh baseline.

Operations are serialized by the caller (the daemon loop and the web handle
share one mutex). The engine itself only carries a scoped reentrancy guard:
a gateway that calls back into the engine mid-operation is rejected rather
than allowed to observe half-written state. External calls are sequenced
before engine-state writes, so a failed operation leaves the bookkeeping at
its pre-operation values.

*/

package engine

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elys-network/wlp/internal/gateway"
	"github.com/elys-network/wlp/internal/logger"
	"github.com/elys-network/wlp/internal/types"
)

// Config carries everything an Engine needs at construction time.
type Config struct {
	Pool     gateway.PoolGateway
	Ledger   gateway.AssetLedger
	Recorder EventRecorder // nil means events are discarded

	Params     types.EngineParameters
	TargetSide types.Side

	// Account is the engine's own account on the asset ledger; it holds the
	// target reserve and the pooled-liquidity tokens.
	Account string

	// FeeCollector receives performance fees harvested on adjustment.
	FeeCollector string
}

// Engine manages a single wrapped position in one constant-product pool.
type Engine struct {
	logger   zerolog.Logger
	pool     gateway.PoolGateway
	ledger   gateway.AssetLedger
	recorder EventRecorder

	params       types.EngineParameters
	targetSide   types.Side
	account      string
	feeCollector string
	denom0       string
	denom1       string

	// entered is the scoped reentrancy guard. Set on entry to every public
	// operation, cleared on every exit path.
	entered bool

	position    types.Position
	virtual     types.VirtualReserves
	shareSupply sdkmath.Int
	holders     map[string]sdkmath.Int
}

// New validates the config and returns an engine with an empty position.
func New(cfg Config) (*Engine, error) {
	if cfg.Pool == nil {
		return nil, fmt.Errorf("engine config: pool gateway is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("engine config: asset ledger is required")
	}
	if cfg.Account == "" {
		return nil, fmt.Errorf("engine config: account is required")
	}
	if cfg.FeeCollector == "" {
		return nil, fmt.Errorf("engine config: fee collector is required")
	}
	if cfg.TargetSide != types.Side0 && cfg.TargetSide != types.Side1 {
		return nil, fmt.Errorf("engine config: target side must be 0 or 1, got %d", cfg.TargetSide)
	}
	if cfg.Params.DriftThresholdPpt <= 0 {
		return nil, fmt.Errorf("engine config: drift threshold must be positive, got %d", cfg.Params.DriftThresholdPpt)
	}
	if cfg.Params.PerformanceFeeBps < 0 || cfg.Params.PerformanceFeeBps > 10000 {
		return nil, fmt.Errorf("engine config: performance fee out of range: %d bps", cfg.Params.PerformanceFeeBps)
	}
	if cfg.Params.SwapFeePpt < 0 || cfg.Params.SwapFeePpt >= 1000 {
		return nil, fmt.Errorf("engine config: swap fee out of range: %d ppt", cfg.Params.SwapFeePpt)
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = NopRecorder{}
	}

	denom0, denom1 := cfg.Pool.Denoms()

	return &Engine{
		logger:       logger.GetForComponent("engine"),
		pool:         cfg.Pool,
		ledger:       cfg.Ledger,
		recorder:     recorder,
		params:       cfg.Params,
		targetSide:   cfg.TargetSide,
		account:      cfg.Account,
		feeCollector: cfg.FeeCollector,
		denom0:       denom0,
		denom1:       denom1,
		position:     types.ZeroPosition(),
		virtual:      types.ZeroVirtualReserves(),
		shareSupply:  sdkmath.ZeroInt(),
		holders:      make(map[string]sdkmath.Int),
	}, nil
}

func (e *Engine) enter() error {
	if e.entered {
		return ErrReentrancyDetected
	}
	e.entered = true
	return nil
}

func (e *Engine) exit() { e.entered = false }

func (e *Engine) denom(s types.Side) string {
	if s == types.Side0 {
		return e.denom0
	}
	return e.denom1
}

func (e *Engine) targetDenom() string { return e.denom(e.targetSide) }
func (e *Engine) otherDenom() string  { return e.denom(e.targetSide.Other()) }

// AddLiquidity accepts a single-sided deposit in either pool asset, converts
// it to target-asset value, and mints shares against the pre-deposit NAV.
// Half the value is retained in the target reserve, half is deployed into the
// pool as balanced liquidity. Returns the shares minted to the depositor.
func (e *Engine) AddLiquidity(depositor, assetIn string, amountIn sdkmath.Int) (sdkmath.Int, error) {
	if err := e.enter(); err != nil {
		return sdkmath.Int{}, err
	}
	defer e.exit()

	opID := uuid.New().String()
	log := e.logger.With().Str("op_id", opID).Str("depositor", depositor).Logger()

	if err := e.adjustLocked(opID); err != nil {
		return sdkmath.Int{}, fmt.Errorf("pre-deposit adjustment: %w", err)
	}

	navBefore := e.navFromSnapshot()

	targetValue, err := e.zapIn(depositor, assetIn, amountIn)
	if err != nil {
		return sdkmath.Int{}, err
	}

	// Retain half in the reserve, deploy the rest as balanced liquidity.
	// The reserve half later funds loss corrections without touching the
	// pooled position.
	reserveHalf := targetValue.QuoRaw(2)
	deployed := targetValue.Sub(reserveHalf)

	minted, err := e.deployBalanced(deployed)
	if err != nil {
		return sdkmath.Int{}, err
	}

	newPooled := e.position.PooledLiquidity.Add(minted)
	snapshot, err := e.snapshotFor(newPooled)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("post-deposit snapshot: %w", err)
	}

	// All external calls succeeded; commit the bookkeeping.
	e.position.PooledLiquidity = newPooled
	e.position.TargetReserve = e.position.TargetReserve.Add(reserveHalf)
	e.virtual = snapshot
	shares := e.mintShares(depositor, targetValue, navBefore)

	log.Info().
		Str("asset_in", assetIn).
		Str("amount_in", amountIn.String()).
		Str("target_value", targetValue.String()).
		Str("shares_out", shares.String()).
		Str("liquidity_minted", minted.String()).
		Msg("Liquidity added")

	event := types.NewEngineEvent(types.EventLiquidityAdded, opID)
	event.Account = depositor
	coin := sdk.Coin{Denom: assetIn, Amount: amountIn}
	event.AmountIn = &coin
	event.SharesOut = shares
	event.LiquidityMinted = minted
	event.ReserveDeployed = deployed
	e.emit(event)

	return shares, nil
}

// RedeemLiquidity burns the holder's shares and pays the proportional slice
// of the position out as target asset, unwinding the pooled slice through the
// pool. Fails all-or-nothing if the realized output is below minTargetOut.
func (e *Engine) RedeemLiquidity(holder string, sharesIn, minTargetOut sdkmath.Int) (sdkmath.Int, error) {
	if err := e.enter(); err != nil {
		return sdkmath.Int{}, err
	}
	defer e.exit()

	opID := uuid.New().String()
	log := e.logger.With().Str("op_id", opID).Str("holder", holder).Logger()

	if err := e.adjustLocked(opID); err != nil {
		return sdkmath.Int{}, fmt.Errorf("pre-redeem adjustment: %w", err)
	}

	reserveSlice, liquiditySlice, err := e.redeemSlices(holder, sharesIn)
	if err != nil {
		return sdkmath.Int{}, err
	}

	zapped, err := e.zapOut(liquiditySlice)
	if err != nil {
		return sdkmath.Int{}, err
	}

	totalOut := reserveSlice.Add(zapped)
	if totalOut.LT(minTargetOut) {
		return sdkmath.Int{}, fmt.Errorf("%w: got %s, want at least %s",
			ErrSlippageExceeded, totalOut, minTargetOut)
	}

	if totalOut.IsPositive() {
		coin := sdk.Coin{Denom: e.targetDenom(), Amount: totalOut}
		if err := e.ledger.Transfer(e.account, holder, coin); err != nil {
			return sdkmath.Int{}, fmt.Errorf("redemption payout: %w", err)
		}
	}

	newPooled := e.position.PooledLiquidity.Sub(liquiditySlice)
	snapshot, err := e.snapshotFor(newPooled)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("post-redeem snapshot: %w", err)
	}

	e.position.PooledLiquidity = newPooled
	e.position.TargetReserve = e.position.TargetReserve.Sub(reserveSlice)
	e.virtual = snapshot
	e.burnShares(holder, sharesIn)

	log.Info().
		Str("shares_in", sharesIn.String()).
		Str("target_out", totalOut.String()).
		Msg("Liquidity redeemed")

	event := types.NewEngineEvent(types.EventLiquidityRedeemed, opID)
	event.Account = holder
	event.SharesIn = sharesIn
	event.TargetOut = totalOut
	event.LiquidityBurned = liquiditySlice
	e.emit(event)

	return totalOut, nil
}

// SafeRedeemLiquidity burns the holder's shares and pays the proportional
// slices out in kind: target asset from the reserve plus raw pooled-liquidity
// tokens. No swap happens, so the payout carries no price impact and cannot
// fail on slippage.
func (e *Engine) SafeRedeemLiquidity(holder string, sharesIn sdkmath.Int) (targetOut, liquidityOut sdkmath.Int, err error) {
	if err := e.enter(); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	defer e.exit()

	opID := uuid.New().String()
	log := e.logger.With().Str("op_id", opID).Str("holder", holder).Logger()

	if err := e.adjustLocked(opID); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("pre-redeem adjustment: %w", err)
	}

	reserveSlice, liquiditySlice, err := e.redeemSlices(holder, sharesIn)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}

	if reserveSlice.IsPositive() {
		coin := sdk.Coin{Denom: e.targetDenom(), Amount: reserveSlice}
		if err := e.ledger.Transfer(e.account, holder, coin); err != nil {
			return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("reserve payout: %w", err)
		}
	}
	if liquiditySlice.IsPositive() {
		coin := sdk.Coin{Denom: e.pool.LiquidityDenom(), Amount: liquiditySlice}
		if err := e.ledger.Transfer(e.account, holder, coin); err != nil {
			return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("liquidity payout: %w", err)
		}
	}

	newPooled := e.position.PooledLiquidity.Sub(liquiditySlice)
	snapshot, err := e.snapshotFor(newPooled)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("post-redeem snapshot: %w", err)
	}

	e.position.PooledLiquidity = newPooled
	e.position.TargetReserve = e.position.TargetReserve.Sub(reserveSlice)
	e.virtual = snapshot
	e.burnShares(holder, sharesIn)

	log.Info().
		Str("shares_in", sharesIn.String()).
		Str("target_out", reserveSlice.String()).
		Str("liquidity_out", liquiditySlice.String()).
		Msg("Liquidity redeemed in kind")

	event := types.NewEngineEvent(types.EventLiquidityRedeemed, opID)
	event.Account = holder
	event.SharesIn = sharesIn
	event.TargetOut = reserveSlice
	event.LiquidityOut = liquiditySlice
	e.emit(event)

	return reserveSlice, liquiditySlice, nil
}

// redeemSlices validates a share burn and returns the proportional reserve
// and pooled-liquidity slices it is entitled to. Slices truncate toward zero;
// the remainder stays with the remaining holders.
func (e *Engine) redeemSlices(holder string, sharesIn sdkmath.Int) (reserveSlice, liquiditySlice sdkmath.Int, err error) {
	if sharesIn.IsNil() || !sharesIn.IsPositive() {
		return sdkmath.Int{}, sdkmath.Int{}, ErrZeroAmount
	}
	balance, ok := e.holders[holder]
	if !ok || sharesIn.GT(balance) {
		return sdkmath.Int{}, sdkmath.Int{}, ErrInsufficientShares
	}
	reserveSlice = e.position.TargetReserve.Mul(sharesIn).Quo(e.shareSupply)
	liquiditySlice = e.position.PooledLiquidity.Mul(sharesIn).Quo(e.shareSupply)
	return reserveSlice, liquiditySlice, nil
}

// Adjust runs one corrective step if the drift band is breached. Within the
// band it is a defined no-op.
func (e *Engine) Adjust() error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.exit()
	return e.adjustLocked(uuid.New().String())
}

// Params returns the engine's active parameters.
func (e *Engine) Params() types.EngineParameters { return e.params }

// Position returns a copy of the current position.
func (e *Engine) Position() types.Position { return e.position }

// Snapshot returns the persisted view of the current engine state.
func (e *Engine) Snapshot() types.PositionSnapshot {
	ratio, _ := e.VirtualRatio().Float64()
	return types.PositionSnapshot{
		PooledLiquidity: e.position.PooledLiquidity.String(),
		TargetReserve:   e.position.TargetReserve.String(),
		VirtualReserve0: e.virtual.Reserve0.String(),
		VirtualReserve1: e.virtual.Reserve1.String(),
		ShareSupply:     e.shareSupply.String(),
		NAV:             e.navFromSnapshot().String(),
		VirtualRatio:    ratio,
	}
}

func (e *Engine) emit(event types.EngineEvent) {
	event.Position = e.Snapshot()
	if err := e.recorder.RecordEvent(event); err != nil {
		e.logger.Error().Err(err).
			Str("op_id", event.OpID).
			Str("kind", string(event.Kind)).
			Msg("Failed to record engine event")
	}
}
