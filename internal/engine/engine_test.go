package engine

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/wlp/internal/gateway"
	"github.com/elys-network/wlp/internal/types"
)

const (
	testDenom0   = "uusdc"
	testDenom1   = "uatom"
	testLPDenom  = "ulp"
	testPoolAddr = "pool"
	testEngine   = "engine-acct"
	testFees     = "fee-collector"
	testSeeder   = "seeder"
)

func testParams(swapFeePpt int64) types.EngineParameters {
	return types.EngineParameters{
		DriftThresholdPpt:     500,
		PerformanceFeeBps:     1000,
		SwapFeePpt:            swapFeePpt,
		AdjustIntervalSeconds: 600,
	}
}

// newTestEnv builds a sim ledger, a pool seeded with a billion units on each
// side, and an engine targeting side 0. Large seed reserves keep price impact
// from test-sized deposits negligible.
func newTestEnv(t *testing.T, feePpt int64) (*gateway.SimLedger, *gateway.SimPool, *Engine) {
	t.Helper()

	ledger := gateway.NewSimLedger()
	ledger.RegisterDenom(testDenom0, 6)
	ledger.RegisterDenom(testDenom1, 6)
	ledger.RegisterDenom(testLPDenom, 6)
	pool := gateway.NewSimPool(ledger, testPoolAddr, testDenom0, testDenom1, testLPDenom, feePpt)

	seed := sdkmath.NewInt(1_000_000_000)
	ledger.Fund(testSeeder, sdk.Coin{Denom: testDenom0, Amount: seed})
	ledger.Fund(testSeeder, sdk.Coin{Denom: testDenom1, Amount: seed})
	require.NoError(t, ledger.Transfer(testSeeder, testPoolAddr, sdk.Coin{Denom: testDenom0, Amount: seed}))
	require.NoError(t, ledger.Transfer(testSeeder, testPoolAddr, sdk.Coin{Denom: testDenom1, Amount: seed}))
	minted, err := pool.Mint(testSeeder)
	require.NoError(t, err)
	require.True(t, minted.IsPositive())

	eng, err := New(Config{
		Pool:         pool,
		Ledger:       ledger,
		Params:       testParams(feePpt),
		TargetSide:   types.Side0,
		Account:      testEngine,
		FeeCollector: testFees,
	})
	require.NoError(t, err)
	return ledger, pool, eng
}

func fundDepositor(ledger *gateway.SimLedger, account, denom string, amount int64) {
	ledger.Fund(account, sdk.Coin{Denom: denom, Amount: sdkmath.NewInt(amount)})
}

func TestNewValidatesConfig(t *testing.T) {
	ledger := gateway.NewSimLedger()
	pool := gateway.NewSimPool(ledger, testPoolAddr, testDenom0, testDenom1, testLPDenom, 3)

	base := Config{
		Pool:         pool,
		Ledger:       ledger,
		Params:       testParams(3),
		TargetSide:   types.Side0,
		Account:      testEngine,
		FeeCollector: testFees,
	}

	_, err := New(base)
	require.NoError(t, err)

	missingPool := base
	missingPool.Pool = nil
	_, err = New(missingPool)
	require.Error(t, err)

	missingLedger := base
	missingLedger.Ledger = nil
	_, err = New(missingLedger)
	require.Error(t, err)

	badThreshold := base
	badThreshold.Params.DriftThresholdPpt = 0
	_, err = New(badThreshold)
	require.Error(t, err)

	badFee := base
	badFee.Params.PerformanceFeeBps = 10001
	_, err = New(badFee)
	require.Error(t, err)

	badSide := base
	badSide.TargetSide = types.Side(2)
	_, err = New(badSide)
	require.Error(t, err)
}

func TestAddLiquidityBootstrap(t *testing.T) {
	ledger, _, eng := newTestEnv(t, 0)
	fundDepositor(ledger, "alice", testDenom0, 10_000)

	shares, err := eng.AddLiquidity("alice", testDenom0, sdkmath.NewInt(10_000))
	require.NoError(t, err)

	// Bootstrap mints one share per unit of target value.
	require.Equal(t, sdkmath.NewInt(10_000), shares)
	require.Equal(t, sdkmath.NewInt(10_000), eng.ShareSupply())
	require.Equal(t, shares, eng.SharesOf("alice"))

	pos := eng.Position()
	require.Equal(t, sdkmath.NewInt(5_000), pos.TargetReserve)
	require.True(t, pos.PooledLiquidity.IsPositive())

	// NAV per share sits at par up to deployment truncation.
	ratio, err := eng.VirtualRatio().Float64()
	require.NoError(t, err)
	require.InDelta(t, 1.0, ratio, 0.01)
}

func TestAddLiquidityNonTargetAsset(t *testing.T) {
	ledger, _, eng := newTestEnv(t, 0)
	fundDepositor(ledger, "alice", testDenom1, 100_000)

	shares, err := eng.AddLiquidity("alice", testDenom1, sdkmath.NewInt(100_000))
	require.NoError(t, err)

	// Zapped through a deep zero-fee pool at price ~1, so the target value
	// and the minted shares land just under the deposited amount.
	require.True(t, shares.IsPositive())
	require.True(t, shares.LTE(sdkmath.NewInt(100_000)))
	require.True(t, shares.GTE(sdkmath.NewInt(99_000)))
}

func TestAddLiquidityRejectsBadInput(t *testing.T) {
	ledger, _, eng := newTestEnv(t, 0)
	fundDepositor(ledger, "alice", testDenom0, 1_000)

	_, err := eng.AddLiquidity("alice", testDenom0, sdkmath.ZeroInt())
	require.ErrorIs(t, err, ErrZeroAmount)

	_, err = eng.AddLiquidity("alice", "ubtc", sdkmath.NewInt(100))
	require.ErrorIs(t, err, ErrUnsupportedAsset)

	// Dust below the pool's mint floor aborts instead of minting unbacked
	// shares.
	_, err = eng.AddLiquidity("alice", testDenom0, sdkmath.NewInt(2))
	require.Error(t, err)
}

func TestRedeemRoundTripNeverExceedsDeposit(t *testing.T) {
	ledger, _, eng := newTestEnv(t, 3)
	fundDepositor(ledger, "alice", testDenom0, 1_000_000)

	shares, err := eng.AddLiquidity("alice", testDenom0, sdkmath.NewInt(1_000_000))
	require.NoError(t, err)

	out, err := eng.RedeemLiquidity("alice", shares, sdkmath.ZeroInt())
	require.NoError(t, err)

	// Swap fees are paid on the way in and the way out, so the round trip
	// returns strictly less than the deposit.
	require.True(t, out.IsPositive())
	require.True(t, out.LT(sdkmath.NewInt(1_000_000)))

	require.True(t, eng.ShareSupply().IsZero())
	require.True(t, eng.SharesOf("alice").IsZero())
	require.True(t, eng.Position().PooledLiquidity.IsZero())

	balance, err := ledger.BalanceOf("alice", testDenom0)
	require.NoError(t, err)
	require.Equal(t, out, balance)
}

func TestRedeemSlippageGuardIsAllOrNothing(t *testing.T) {
	ledger, _, eng := newTestEnv(t, 3)
	fundDepositor(ledger, "alice", testDenom0, 1_000_000)

	shares, err := eng.AddLiquidity("alice", testDenom0, sdkmath.NewInt(1_000_000))
	require.NoError(t, err)

	// A minimum above the whole deposit cannot be met after fees.
	_, err = eng.RedeemLiquidity("alice", shares, sdkmath.NewInt(1_000_001))
	require.ErrorIs(t, err, ErrSlippageExceeded)

	// Nothing was paid out and no shares were burned.
	balance, err := ledger.BalanceOf("alice", testDenom0)
	require.NoError(t, err)
	require.True(t, balance.IsZero())
	require.Equal(t, shares, eng.SharesOf("alice"))
}

func TestRedeemValidation(t *testing.T) {
	ledger, _, eng := newTestEnv(t, 0)
	fundDepositor(ledger, "alice", testDenom0, 100_000)

	shares, err := eng.AddLiquidity("alice", testDenom0, sdkmath.NewInt(100_000))
	require.NoError(t, err)

	_, err = eng.RedeemLiquidity("alice", sdkmath.ZeroInt(), sdkmath.ZeroInt())
	require.ErrorIs(t, err, ErrZeroAmount)

	_, err = eng.RedeemLiquidity("alice", shares.AddRaw(1), sdkmath.ZeroInt())
	require.ErrorIs(t, err, ErrInsufficientShares)

	_, err = eng.RedeemLiquidity("bob", sdkmath.NewInt(1), sdkmath.ZeroInt())
	require.ErrorIs(t, err, ErrInsufficientShares)
}

func TestSafeRedeemPaysInKind(t *testing.T) {
	ledger, pool, eng := newTestEnv(t, 3)
	fundDepositor(ledger, "alice", testDenom0, 1_000_000)

	shares, err := eng.AddLiquidity("alice", testDenom0, sdkmath.NewInt(1_000_000))
	require.NoError(t, err)

	posBefore := eng.Position()

	targetOut, liquidityOut, err := eng.SafeRedeemLiquidity("alice", shares)
	require.NoError(t, err)

	// Full burn pays the whole reserve and the whole pooled position.
	require.Equal(t, posBefore.TargetReserve, targetOut)
	require.Equal(t, posBefore.PooledLiquidity, liquidityOut)

	lpBalance, err := ledger.BalanceOf("alice", pool.LiquidityDenom())
	require.NoError(t, err)
	require.Equal(t, liquidityOut, lpBalance)

	targetBalance, err := ledger.BalanceOf("alice", testDenom0)
	require.NoError(t, err)
	require.Equal(t, targetOut, targetBalance)

	require.True(t, eng.ShareSupply().IsZero())
}

func TestSafeRedeemValueNeverExceedsDeposit(t *testing.T) {
	ledger, pool, eng := newTestEnv(t, 3)
	deposit := sdkmath.NewInt(1_000_000)
	fundDepositor(ledger, "alice", testDenom0, 1_000_000)

	shares, err := eng.AddLiquidity("alice", testDenom0, deposit)
	require.NoError(t, err)

	targetOut, liquidityOut, err := eng.SafeRedeemLiquidity("alice", shares)
	require.NoError(t, err)

	// Value the liquidity leg at live reserves: a balanced position is worth
	// twice its target-side share of the pool.
	reserve0, _, _, err := pool.Reserves()
	require.NoError(t, err)
	supply, err := pool.TotalLiquiditySupply()
	require.NoError(t, err)
	liquidityValue := reserve0.Mul(liquidityOut).Quo(supply).MulRaw(2)

	totalValue := targetOut.Add(liquidityValue)
	require.True(t, totalValue.LTE(deposit),
		"redeemed value %s exceeds deposit %s", totalValue, deposit)
	// Only swap fees and truncation are lost on this path.
	require.True(t, totalValue.GTE(deposit.MulRaw(99).QuoRaw(100)))
}

func TestPartialRedeemTruncatesInHoldersFavor(t *testing.T) {
	ledger, _, eng := newTestEnv(t, 0)
	fundDepositor(ledger, "alice", testDenom0, 999_999)

	shares, err := eng.AddLiquidity("alice", testDenom0, sdkmath.NewInt(999_999))
	require.NoError(t, err)

	third := shares.QuoRaw(3)
	targetOut, liquidityOut, err := eng.SafeRedeemLiquidity("alice", third)
	require.NoError(t, err)

	pos := eng.Position()
	// Slices truncate toward zero: 2/3 of everything (or a unit more)
	// remains with the position.
	require.True(t, targetOut.MulRaw(2).LTE(pos.TargetReserve.AddRaw(2)))
	require.True(t, liquidityOut.MulRaw(2).LTE(pos.PooledLiquidity.AddRaw(2)))
	require.Equal(t, shares.Sub(third), eng.ShareSupply())
}

// reentrantPool wraps SimPool and calls back into the engine on the first
// swap, recording the engine's response.
type reentrantPool struct {
	*gateway.SimPool
	eng      *Engine
	hookErr  error
	hookDone bool
}

func (p *reentrantPool) Swap(amount0Out, amount1Out sdkmath.Int, recipient string) error {
	if !p.hookDone {
		p.hookDone = true
		p.hookErr = p.eng.Adjust()
	}
	return p.SimPool.Swap(amount0Out, amount1Out, recipient)
}

func TestReentrantCallIsRejected(t *testing.T) {
	ledger := gateway.NewSimLedger()
	inner := gateway.NewSimPool(ledger, testPoolAddr, testDenom0, testDenom1, testLPDenom, 0)

	seed := sdkmath.NewInt(1_000_000_000)
	ledger.Fund(testSeeder, sdk.Coin{Denom: testDenom0, Amount: seed})
	ledger.Fund(testSeeder, sdk.Coin{Denom: testDenom1, Amount: seed})
	require.NoError(t, ledger.Transfer(testSeeder, testPoolAddr, sdk.Coin{Denom: testDenom0, Amount: seed}))
	require.NoError(t, ledger.Transfer(testSeeder, testPoolAddr, sdk.Coin{Denom: testDenom1, Amount: seed}))
	_, err := inner.Mint(testSeeder)
	require.NoError(t, err)

	pool := &reentrantPool{SimPool: inner}
	eng, err := New(Config{
		Pool:         pool,
		Ledger:       ledger,
		Params:       testParams(0),
		TargetSide:   types.Side0,
		Account:      testEngine,
		FeeCollector: testFees,
	})
	require.NoError(t, err)
	pool.eng = eng

	fundDepositor(ledger, "alice", testDenom0, 100_000)
	_, err = eng.AddLiquidity("alice", testDenom0, sdkmath.NewInt(100_000))
	require.NoError(t, err)

	require.True(t, pool.hookDone)
	require.ErrorIs(t, pool.hookErr, ErrReentrancyDetected)
}

// captureRecorder keeps every event in memory.
type captureRecorder struct {
	events []types.EngineEvent
}

func (r *captureRecorder) RecordEvent(event types.EngineEvent) error {
	r.events = append(r.events, event)
	return nil
}

func TestEventsAreEmittedPerOperation(t *testing.T) {
	ledger := gateway.NewSimLedger()
	pool := gateway.NewSimPool(ledger, testPoolAddr, testDenom0, testDenom1, testLPDenom, 0)

	seed := sdkmath.NewInt(1_000_000_000)
	ledger.Fund(testSeeder, sdk.Coin{Denom: testDenom0, Amount: seed})
	ledger.Fund(testSeeder, sdk.Coin{Denom: testDenom1, Amount: seed})
	require.NoError(t, ledger.Transfer(testSeeder, testPoolAddr, sdk.Coin{Denom: testDenom0, Amount: seed}))
	require.NoError(t, ledger.Transfer(testSeeder, testPoolAddr, sdk.Coin{Denom: testDenom1, Amount: seed}))
	_, err := pool.Mint(testSeeder)
	require.NoError(t, err)

	recorder := &captureRecorder{}
	eng, err := New(Config{
		Pool:         pool,
		Ledger:       ledger,
		Recorder:     recorder,
		Params:       testParams(0),
		TargetSide:   types.Side0,
		Account:      testEngine,
		FeeCollector: testFees,
	})
	require.NoError(t, err)

	fundDepositor(ledger, "alice", testDenom0, 100_000)
	shares, err := eng.AddLiquidity("alice", testDenom0, sdkmath.NewInt(100_000))
	require.NoError(t, err)

	_, err = eng.RedeemLiquidity("alice", shares, sdkmath.ZeroInt())
	require.NoError(t, err)

	require.Len(t, recorder.events, 2)

	added := recorder.events[0]
	require.Equal(t, types.EventLiquidityAdded, added.Kind)
	require.Equal(t, "alice", added.Account)
	require.NotEmpty(t, added.OpID)
	require.Equal(t, shares, added.SharesOut)
	require.Equal(t, shares.String(), added.Position.ShareSupply)

	redeemed := recorder.events[1]
	require.Equal(t, types.EventLiquidityRedeemed, redeemed.Kind)
	require.Equal(t, shares, redeemed.SharesIn)
	require.Equal(t, "0", redeemed.Position.ShareSupply)
	require.NotEqual(t, added.OpID, redeemed.OpID)
}
