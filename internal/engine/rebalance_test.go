package engine

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/wlp/internal/gateway"
	"github.com/elys-network/wlp/internal/types"
)

// traderSwap executes an external swap against the pool, moving the price
// the way third-party flow would.
func traderSwap(t *testing.T, ledger *gateway.SimLedger, pool *gateway.SimPool, denomIn string, amountIn int64) {
	t.Helper()

	reserve0, reserve1, _, err := pool.Reserves()
	require.NoError(t, err)

	in := sdkmath.NewInt(amountIn)
	denom0, _ := pool.Denoms()

	ledger.Fund("trader", sdk.Coin{Denom: denomIn, Amount: in})
	require.NoError(t, ledger.Transfer("trader", pool.Address(), sdk.Coin{Denom: denomIn, Amount: in}))

	if denomIn == denom0 {
		out := gateway.AmountOut(in, reserve0, reserve1, 0)
		require.NoError(t, pool.Swap(sdkmath.ZeroInt(), out, "trader"))
	} else {
		out := gateway.AmountOut(in, reserve1, reserve0, 0)
		require.NoError(t, pool.Swap(out, sdkmath.ZeroInt(), "trader"))
	}
}

func TestShouldAdjustBeforeFirstDeposit(t *testing.T) {
	_, _, eng := newTestEnv(t, 0)

	should, err := eng.ShouldAdjust()
	require.NoError(t, err)
	require.False(t, should)

	// No baseline exists, so adjustment is a defined no-op.
	require.NoError(t, eng.Adjust())
}

func TestShouldAdjustWithinBand(t *testing.T) {
	ledger, pool, eng := newTestEnv(t, 0)
	fundDepositor(ledger, "alice", testDenom0, 1_000_000)

	_, err := eng.AddLiquidity("alice", testDenom0, sdkmath.NewInt(1_000_000))
	require.NoError(t, err)

	// A small trade drifts the target reserve well under the 50% threshold.
	traderSwap(t, ledger, pool, testDenom0, 1_000_000)

	should, err := eng.ShouldAdjust()
	require.NoError(t, err)
	require.False(t, should)

	before := eng.Snapshot()
	require.NoError(t, eng.Adjust())
	require.Equal(t, before, eng.Snapshot())
}

func TestAdjustHarvestsGain(t *testing.T) {
	ledger, pool, eng := newTestEnv(t, 0)
	fundDepositor(ledger, "alice", testDenom0, 1_000_000)

	_, err := eng.AddLiquidity("alice", testDenom0, sdkmath.NewInt(1_000_000))
	require.NoError(t, err)

	reserveBefore := eng.Position().TargetReserve
	pooledBefore := eng.Position().PooledLiquidity
	ratioBefore := eng.VirtualRatio()

	// Heavy target-asset inflow drifts the attributable target reserve
	// roughly 70% above the baseline.
	traderSwap(t, ledger, pool, testDenom0, 700_000_000)

	should, err := eng.ShouldAdjust()
	require.NoError(t, err)
	require.True(t, should)

	require.NoError(t, eng.Adjust())

	// Profit was realized into the reserve and the fee collector was paid.
	pos := eng.Position()
	require.True(t, pos.TargetReserve.GT(reserveBefore))
	require.True(t, pos.PooledLiquidity.LT(pooledBefore))

	feeBalance, err := ledger.BalanceOf(testFees, testDenom0)
	require.NoError(t, err)
	require.True(t, feeBalance.IsPositive())

	require.True(t, eng.VirtualRatio().GT(ratioBefore))

	// The rewritten baseline closes the band.
	should, err = eng.ShouldAdjust()
	require.NoError(t, err)
	require.False(t, should)

	// A second adjustment changes nothing.
	after := eng.Snapshot()
	require.NoError(t, eng.Adjust())
	require.Equal(t, after, eng.Snapshot())
}

func TestAdjustCoversLoss(t *testing.T) {
	ledger, pool, eng := newTestEnv(t, 0)
	fundDepositor(ledger, "alice", testDenom0, 1_000_000)

	_, err := eng.AddLiquidity("alice", testDenom0, sdkmath.NewInt(1_000_000))
	require.NoError(t, err)

	reserveBefore := eng.Position().TargetReserve
	pooledBefore := eng.Position().PooledLiquidity

	// Heavy target-asset outflow drains the attributable target reserve to
	// roughly 45% of the baseline.
	traderSwap(t, ledger, pool, testDenom1, 1_200_000_000)

	should, err := eng.ShouldAdjust()
	require.NoError(t, err)
	require.True(t, should)

	require.NoError(t, eng.Adjust())

	// Reserve was deployed back into the pool as fresh liquidity.
	pos := eng.Position()
	require.True(t, pos.TargetReserve.LT(reserveBefore))
	require.True(t, pos.PooledLiquidity.GT(pooledBefore))

	// No fee on a loss correction.
	feeBalance, err := ledger.BalanceOf(testFees, testDenom0)
	require.NoError(t, err)
	require.True(t, feeBalance.IsZero())

	should, err = eng.ShouldAdjust()
	require.NoError(t, err)
	require.False(t, should)
}

func TestDepositRunsPendingAdjustmentFirst(t *testing.T) {
	ledger, pool, eng := newTestEnv(t, 0)
	fundDepositor(ledger, "alice", testDenom0, 1_000_000)
	fundDepositor(ledger, "bob", testDenom0, 1_000_000)

	_, err := eng.AddLiquidity("alice", testDenom0, sdkmath.NewInt(1_000_000))
	require.NoError(t, err)

	traderSwap(t, ledger, pool, testDenom0, 700_000_000)

	should, err := eng.ShouldAdjust()
	require.NoError(t, err)
	require.True(t, should)

	// Bob's deposit harvests first, so his shares are priced against the
	// post-correction NAV and alice keeps the profit.
	_, err = eng.AddLiquidity("bob", testDenom0, sdkmath.NewInt(1_000_000))
	require.NoError(t, err)

	require.True(t, eng.SharesOf("alice").GT(eng.SharesOf("bob")))

	should, err = eng.ShouldAdjust()
	require.NoError(t, err)
	require.False(t, should)
}

func TestScaledPerformanceFee(t *testing.T) {
	_, _, eng := newTestEnv(t, 0)
	harvested := sdkmath.NewInt(100_000)

	// At the threshold edge the base rate applies in full.
	fee := eng.scaledPerformanceFee(harvested, sdkmath.NewInt(1500))
	require.Equal(t, sdkmath.NewInt(10_000), fee)

	// Twice the threshold excess doubles the fee.
	fee = eng.scaledPerformanceFee(harvested, sdkmath.NewInt(2000))
	require.Equal(t, sdkmath.NewInt(20_000), fee)

	// The fee never exceeds what was harvested.
	fee = eng.scaledPerformanceFee(harvested, sdkmath.NewInt(11_000))
	require.Equal(t, harvested, fee)

	require.True(t, eng.scaledPerformanceFee(sdkmath.ZeroInt(), sdkmath.NewInt(2000)).IsZero())
}

func TestAdjustEmitsAdjustmentEvent(t *testing.T) {
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

	fundDepositor(ledger, "alice", testDenom0, 1_000_000)
	_, err = eng.AddLiquidity("alice", testDenom0, sdkmath.NewInt(1_000_000))
	require.NoError(t, err)

	traderSwap(t, ledger, pool, testDenom0, 700_000_000)
	require.NoError(t, eng.Adjust())

	require.Len(t, recorder.events, 2)
	adjustment := recorder.events[1]
	require.Equal(t, types.EventAdjustment, adjustment.Kind)
	require.Equal(t, types.AdjustmentHarvest, adjustment.Direction)
	require.Greater(t, adjustment.DriftPpt, int64(1500))
	require.True(t, adjustment.TargetHarvested.IsPositive())
	require.True(t, adjustment.PerformanceFee.IsPositive())
	require.True(t, adjustment.LiquidityBurned.IsPositive())
}
