package gateway

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// MinPoolLiquidity is locked forever on the pool's first mint, so the
// liquidity-share supply can never be drained back to zero.
var MinPoolLiquidity = sdkmath.NewInt(1000)

// lockedAccount holds the permanently locked minimum liquidity.
const lockedAccount = "sim-pool-locked"

// SimPool is an in-memory constant-product pool with pair semantics: inputs
// are transferred to the pool account first, Swap/Mint/Burn settle against
// balance deltas. Used in sim mode and in tests.
type SimPool struct {
	ledger *SimLedger

	addr    string
	denom0  string
	denom1  string
	lpDenom string
	feePpt  int64

	reserve0    sdkmath.Int
	reserve1    sdkmath.Int
	totalSupply sdkmath.Int
	updatedAt   time.Time
}

// NewSimPool creates an empty pool over the given ledger. feePpt is the swap
// fee in parts-per-thousand (3 = 0.3%).
func NewSimPool(ledger *SimLedger, addr, denom0, denom1, lpDenom string, feePpt int64) *SimPool {
	return &SimPool{
		ledger:      ledger,
		addr:        addr,
		denom0:      denom0,
		denom1:      denom1,
		lpDenom:     lpDenom,
		feePpt:      feePpt,
		reserve0:    sdkmath.ZeroInt(),
		reserve1:    sdkmath.ZeroInt(),
		totalSupply: sdkmath.ZeroInt(),
	}
}

func (p *SimPool) Address() string          { return p.addr }
func (p *SimPool) Denoms() (string, string) { return p.denom0, p.denom1 }
func (p *SimPool) LiquidityDenom() string   { return p.lpDenom }

// Reserves returns the current reserves and the time of the last write.
func (p *SimPool) Reserves() (sdkmath.Int, sdkmath.Int, time.Time, error) {
	return p.reserve0, p.reserve1, p.updatedAt, nil
}

// TotalLiquiditySupply returns the outstanding liquidity-share supply.
func (p *SimPool) TotalLiquiditySupply() (sdkmath.Int, error) {
	return p.totalSupply, nil
}

func (p *SimPool) balances() (sdkmath.Int, sdkmath.Int, error) {
	bal0, err := p.ledger.BalanceOf(p.addr, p.denom0)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	bal1, err := p.ledger.BalanceOf(p.addr, p.denom1)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return bal0, bal1, nil
}

func (p *SimPool) sync(bal0, bal1 sdkmath.Int) {
	p.reserve0 = bal0
	p.reserve1 = bal1
	p.updatedAt = time.Now()
}

// Mint issues liquidity shares against the assets transferred in since the
// last reserve sync. Returns zero (not an error) when the deposit falls below
// the minimum-liquidity floor; callers decide whether that is fatal.
func (p *SimPool) Mint(recipient string) (sdkmath.Int, error) {
	bal0, bal1, err := p.balances()
	if err != nil {
		return sdkmath.Int{}, err
	}
	amount0 := bal0.Sub(p.reserve0)
	amount1 := bal1.Sub(p.reserve1)
	if amount0.IsNegative() || amount1.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("pool balance below tracked reserves")
	}

	var liquidity sdkmath.Int
	if p.totalSupply.IsZero() {
		root, err := sdkmath.LegacyNewDecFromInt(amount0.Mul(amount1)).ApproxSqrt()
		if err != nil {
			return sdkmath.Int{}, fmt.Errorf("bootstrap liquidity sqrt: %w", err)
		}
		liquidity = root.TruncateInt().Sub(MinPoolLiquidity)
		if !liquidity.IsPositive() {
			return sdkmath.ZeroInt(), nil
		}
		p.ledger.credit(lockedAccount, p.lpDenom, MinPoolLiquidity)
		p.totalSupply = MinPoolLiquidity
	} else {
		byAmount0 := amount0.Mul(p.totalSupply).Quo(p.reserve0)
		byAmount1 := amount1.Mul(p.totalSupply).Quo(p.reserve1)
		liquidity = sdkmath.MinInt(byAmount0, byAmount1)
		if !liquidity.IsPositive() {
			return sdkmath.ZeroInt(), nil
		}
	}

	p.ledger.credit(recipient, p.lpDenom, liquidity)
	p.totalSupply = p.totalSupply.Add(liquidity)
	p.sync(bal0, bal1)
	return liquidity, nil
}

// Burn redeems the liquidity shares previously transferred to the pool
// account, paying both assets to the recipient pro rata.
func (p *SimPool) Burn(recipient string) (sdkmath.Int, sdkmath.Int, error) {
	liquidity, err := p.ledger.BalanceOf(p.addr, p.lpDenom)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	if !liquidity.IsPositive() {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("no liquidity sent to pool")
	}
	bal0, bal1, err := p.balances()
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}

	amount0 := liquidity.Mul(bal0).Quo(p.totalSupply)
	amount1 := liquidity.Mul(bal1).Quo(p.totalSupply)
	if !amount0.IsPositive() || !amount1.IsPositive() {
		return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("insufficient liquidity burned")
	}

	if err := p.ledger.debit(p.addr, p.lpDenom, liquidity); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	p.totalSupply = p.totalSupply.Sub(liquidity)

	if err := p.ledger.Transfer(p.addr, recipient, sdk.Coin{Denom: p.denom0, Amount: amount0}); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	if err := p.ledger.Transfer(p.addr, recipient, sdk.Coin{Denom: p.denom1, Amount: amount1}); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}

	bal0, bal1, err = p.balances()
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	p.sync(bal0, bal1)
	return amount0, amount1, nil
}

// Swap pays the requested output amounts, taking whatever was transferred in
// beforehand as input, and enforces the fee-adjusted constant-product
// invariant.
func (p *SimPool) Swap(amount0Out, amount1Out sdkmath.Int, recipient string) error {
	if !amount0Out.IsPositive() && !amount1Out.IsPositive() {
		return fmt.Errorf("insufficient output amount")
	}
	if amount0Out.GTE(p.reserve0) || amount1Out.GTE(p.reserve1) {
		return fmt.Errorf("insufficient pool liquidity")
	}

	if amount0Out.IsPositive() {
		if err := p.ledger.Transfer(p.addr, recipient, sdk.Coin{Denom: p.denom0, Amount: amount0Out}); err != nil {
			return err
		}
	}
	if amount1Out.IsPositive() {
		if err := p.ledger.Transfer(p.addr, recipient, sdk.Coin{Denom: p.denom1, Amount: amount1Out}); err != nil {
			return err
		}
	}

	bal0, bal1, err := p.balances()
	if err != nil {
		return err
	}

	amount0In := inputAmount(bal0, p.reserve0, amount0Out)
	amount1In := inputAmount(bal1, p.reserve1, amount1Out)
	if !amount0In.IsPositive() && !amount1In.IsPositive() {
		return fmt.Errorf("insufficient input amount")
	}

	// (bal0*1000 - in0*fee) * (bal1*1000 - in1*fee) >= r0 * r1 * 1000^2
	thousand := sdkmath.NewInt(1000)
	fee := sdkmath.NewInt(p.feePpt)
	adj0 := bal0.Mul(thousand).Sub(amount0In.Mul(fee))
	adj1 := bal1.Mul(thousand).Sub(amount1In.Mul(fee))
	if adj0.Mul(adj1).LT(p.reserve0.Mul(p.reserve1).Mul(thousand).Mul(thousand)) {
		return fmt.Errorf("constant-product invariant violated")
	}

	p.sync(bal0, bal1)
	return nil
}

// inputAmount derives how much of one asset was sent in, given the balance
// after outputs were paid.
func inputAmount(balance, reserve, out sdkmath.Int) sdkmath.Int {
	floor := reserve.Sub(out)
	if balance.GT(floor) {
		return balance.Sub(floor)
	}
	return sdkmath.ZeroInt()
}

// AmountOut quotes a constant-product swap: the output obtainable for
// amountIn against the given reserves, net of the pool fee.
func AmountOut(amountIn, reserveIn, reserveOut sdkmath.Int, feePpt int64) sdkmath.Int {
	if !amountIn.IsPositive() || !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return sdkmath.ZeroInt()
	}
	inWithFee := amountIn.MulRaw(1000 - feePpt)
	numerator := inWithFee.Mul(reserveOut)
	denominator := reserveIn.MulRaw(1000).Add(inWithFee)
	return numerator.Quo(denominator)
}
