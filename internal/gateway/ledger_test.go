package gateway

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"
)

func TestLedgerTransfer(t *testing.T) {
	ledger := NewSimLedger()
	ledger.Fund("alice", sdk.Coin{Denom: "uusdc", Amount: sdkmath.NewInt(1_000)})

	require.NoError(t, ledger.Transfer("alice", "bob", sdk.Coin{Denom: "uusdc", Amount: sdkmath.NewInt(400)}))

	aliceBalance, err := ledger.BalanceOf("alice", "uusdc")
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(600), aliceBalance)

	bobBalance, err := ledger.BalanceOf("bob", "uusdc")
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(400), bobBalance)
}

func TestLedgerRejectsOverdraftAndNegative(t *testing.T) {
	ledger := NewSimLedger()
	ledger.Fund("alice", sdk.Coin{Denom: "uusdc", Amount: sdkmath.NewInt(100)})

	err := ledger.Transfer("alice", "bob", sdk.Coin{Denom: "uusdc", Amount: sdkmath.NewInt(101)})
	require.Error(t, err)

	err = ledger.Transfer("alice", "bob", sdk.Coin{Denom: "uusdc", Amount: sdkmath.NewInt(-1)})
	require.Error(t, err)

	// Failed transfers leave balances untouched.
	balance, err := ledger.BalanceOf("alice", "uusdc")
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(100), balance)
}

func TestLedgerUnknownBalancesAreZero(t *testing.T) {
	ledger := NewSimLedger()

	balance, err := ledger.BalanceOf("nobody", "uusdc")
	require.NoError(t, err)
	require.True(t, balance.IsZero())
}

func TestLedgerDecimals(t *testing.T) {
	ledger := NewSimLedger()
	ledger.RegisterDenom("uusdc", 6)

	decimals, err := ledger.Decimals("uusdc")
	require.NoError(t, err)
	require.Equal(t, uint8(6), decimals)

	_, err = ledger.Decimals("ubtc")
	require.Error(t, err)
}
