/*

Zap mechanics: converting a single-sided amount into a balanced pool position
and back. Every swap output is measured as a realized ledger balance delta
rather than trusted from the quote, so rounding inside the pool can never
leak into the engine's bookkeeping.

*/

package engine

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/wlp/internal/gateway"
	"github.com/elys-network/wlp/internal/types"
)

// zapIn pulls amountIn of assetIn from the depositor and converts it into
// target asset held by the engine account. Returns the realized target value
// of the deposit.
func (e *Engine) zapIn(depositor, assetIn string, amountIn sdkmath.Int) (sdkmath.Int, error) {
	if amountIn.IsNil() || !amountIn.IsPositive() {
		return sdkmath.Int{}, ErrZeroAmount
	}
	if assetIn != e.denom0 && assetIn != e.denom1 {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrUnsupportedAsset, assetIn)
	}

	coin := sdk.Coin{Denom: assetIn, Amount: amountIn}
	if err := e.ledger.TransferFrom(depositor, e.account, coin); err != nil {
		return sdkmath.Int{}, fmt.Errorf("deposit transfer: %w", err)
	}

	if assetIn == e.targetDenom() {
		return amountIn, nil
	}
	return e.swap(e.targetSide.Other(), amountIn)
}

// zapOut burns pooled liquidity and converts the non-target payout into
// target asset. Returns the total realized target amount. A zero liquidity
// amount is a no-op.
func (e *Engine) zapOut(liquidity sdkmath.Int) (sdkmath.Int, error) {
	if !liquidity.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}

	lpCoin := sdk.Coin{Denom: e.pool.LiquidityDenom(), Amount: liquidity}
	if err := e.ledger.Transfer(e.account, e.pool.Address(), lpCoin); err != nil {
		return sdkmath.Int{}, fmt.Errorf("liquidity return transfer: %w", err)
	}
	amount0, amount1, err := e.pool.Burn(e.account)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("pool burn: %w", err)
	}

	targetAmount := amount0
	otherAmount := amount1
	if e.targetSide == types.Side1 {
		targetAmount, otherAmount = amount1, amount0
	}

	if !otherAmount.IsPositive() {
		return targetAmount, nil
	}
	swapped, err := e.swap(e.targetSide.Other(), otherAmount)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return targetAmount.Add(swapped), nil
}

// deployBalanced converts targetAmount of target asset into a balanced
// two-sided deposit and mints pool liquidity from it. Returns the liquidity
// issued to the engine account.
func (e *Engine) deployBalanced(targetAmount sdkmath.Int) (sdkmath.Int, error) {
	if !targetAmount.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}

	swapHalf := targetAmount.QuoRaw(2)
	keepHalf := targetAmount.Sub(swapHalf)
	if !swapHalf.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: %s target is too small to split", ErrInsufficientMint, targetAmount)
	}

	otherAmount, err := e.swap(e.targetSide, swapHalf)
	if err != nil {
		return sdkmath.Int{}, err
	}

	poolAddr := e.pool.Address()
	targetCoin := sdk.Coin{Denom: e.targetDenom(), Amount: keepHalf}
	if err := e.ledger.Transfer(e.account, poolAddr, targetCoin); err != nil {
		return sdkmath.Int{}, fmt.Errorf("supply transfer (target): %w", err)
	}
	otherCoin := sdk.Coin{Denom: e.otherDenom(), Amount: otherAmount}
	if err := e.ledger.Transfer(e.account, poolAddr, otherCoin); err != nil {
		return sdkmath.Int{}, fmt.Errorf("supply transfer (other): %w", err)
	}

	minted, err := e.pool.Mint(e.account)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("pool mint: %w", err)
	}
	if !minted.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%w: supplied %s target-equivalent", ErrInsufficientMint, targetAmount)
	}
	return minted, nil
}

// swap sends amountIn of the asset on side from to the pool and swaps it for
// the opposite asset. The output is quoted from live reserves and verified
// against the engine's realized balance delta.
func (e *Engine) swap(from types.Side, amountIn sdkmath.Int) (sdkmath.Int, error) {
	if !amountIn.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}

	reserve0, reserve1, _, err := e.pool.Reserves()
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("reading reserves: %w", err)
	}

	reserveIn, reserveOut := reserve0, reserve1
	if from == types.Side1 {
		reserveIn, reserveOut = reserve1, reserve0
	}

	quoted := gateway.AmountOut(amountIn, reserveIn, reserveOut, e.params.SwapFeePpt)
	if !quoted.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("swap of %s %s quotes zero output", amountIn, e.denom(from))
	}

	outDenom := e.denom(from.Other())
	before, err := e.ledger.BalanceOf(e.account, outDenom)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("reading balance: %w", err)
	}

	inCoin := sdk.Coin{Denom: e.denom(from), Amount: amountIn}
	if err := e.ledger.Transfer(e.account, e.pool.Address(), inCoin); err != nil {
		return sdkmath.Int{}, fmt.Errorf("swap input transfer: %w", err)
	}

	amount0Out, amount1Out := sdkmath.ZeroInt(), quoted
	if from == types.Side1 {
		amount0Out, amount1Out = quoted, sdkmath.ZeroInt()
	}
	if err := e.pool.Swap(amount0Out, amount1Out, e.account); err != nil {
		return sdkmath.Int{}, fmt.Errorf("pool swap: %w", err)
	}

	after, err := e.ledger.BalanceOf(e.account, outDenom)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("reading balance: %w", err)
	}
	return after.Sub(before), nil
}
