package gateway

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// SimLedger is an in-memory AssetLedger used in sim mode and in tests.
type SimLedger struct {
	balances map[string]map[string]sdkmath.Int // account -> denom -> amount
	decimals map[string]uint8
}

// NewSimLedger creates an empty ledger.
func NewSimLedger() *SimLedger {
	return &SimLedger{
		balances: make(map[string]map[string]sdkmath.Int),
		decimals: make(map[string]uint8),
	}
}

// RegisterDenom records the display precision for a denom.
func (l *SimLedger) RegisterDenom(denom string, decimals uint8) {
	l.decimals[denom] = decimals
}

// Fund credits an account out of thin air. Test and bootstrap helper.
func (l *SimLedger) Fund(account string, amount sdk.Coin) {
	l.credit(account, amount.Denom, amount.Amount)
}

func (l *SimLedger) credit(account, denom string, amount sdkmath.Int) {
	if l.balances[account] == nil {
		l.balances[account] = make(map[string]sdkmath.Int)
	}
	cur, ok := l.balances[account][denom]
	if !ok {
		cur = sdkmath.ZeroInt()
	}
	l.balances[account][denom] = cur.Add(amount)
}

func (l *SimLedger) debit(account, denom string, amount sdkmath.Int) error {
	cur, ok := l.balances[account][denom]
	if !ok || cur.LT(amount) {
		return fmt.Errorf("insufficient %s balance for %s", denom, account)
	}
	l.balances[account][denom] = cur.Sub(amount)
	return nil
}

// Transfer moves amount from one account to another.
func (l *SimLedger) Transfer(from, to string, amount sdk.Coin) error {
	if amount.Amount.IsNegative() {
		return fmt.Errorf("negative transfer amount %s", amount)
	}
	if err := l.debit(from, amount.Denom, amount.Amount); err != nil {
		return err
	}
	l.credit(to, amount.Denom, amount.Amount)
	return nil
}

// TransferFrom moves amount out of the owner's account on behalf of an
// already-authenticated caller.
func (l *SimLedger) TransferFrom(owner, recipient string, amount sdk.Coin) error {
	return l.Transfer(owner, recipient, amount)
}

// BalanceOf returns the account's balance in the given denom.
func (l *SimLedger) BalanceOf(account, denom string) (sdkmath.Int, error) {
	cur, ok := l.balances[account][denom]
	if !ok {
		return sdkmath.ZeroInt(), nil
	}
	return cur, nil
}

// Decimals returns the registered display precision for a denom.
func (l *SimLedger) Decimals(denom string) (uint8, error) {
	d, ok := l.decimals[denom]
	if !ok {
		return 0, fmt.Errorf("unknown denom %s", denom)
	}
	return d, nil
}
