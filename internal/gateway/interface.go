package gateway

import (
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// PoolGateway is the engine's handle on the external constant-product pool.
// The pool is a shared mutable resource outside the engine's control: callers
// must re-read Reserves and TotalLiquiditySupply immediately before using
// them, never cache across operations.
//
// The gateway follows pair semantics: inputs are transferred to the pool's
// account on the asset ledger first, then Swap/Mint/Burn settle against the
// resulting balance deltas.
type PoolGateway interface {
	// Address is the pool's account on the asset ledger.
	Address() string

	// Denoms returns the two reserve asset denoms in pool order.
	Denoms() (string, string)

	// LiquidityDenom is the denom of the pool's own liquidity-share token.
	LiquidityDenom() string

	// Reserves returns the current reserves and the time of the last write.
	Reserves() (reserve0, reserve1 sdkmath.Int, updatedAt time.Time, err error)

	// Swap pays the requested output amounts to the recipient, taking as
	// input whatever was transferred to the pool beforehand. Fails if the
	// constant-product invariant (net of the swap fee) would be violated.
	Swap(amount0Out, amount1Out sdkmath.Int, recipient string) error

	// Mint issues liquidity shares against the assets transferred to the pool
	// since the last reserve sync. A zero return signals the deposit was
	// below the pool's minimum-liquidity floor.
	Mint(recipient string) (liquidityIssued sdkmath.Int, err error)

	// Burn redeems the liquidity shares previously transferred to the pool,
	// paying out both assets pro rata.
	Burn(recipient string) (amount0, amount1 sdkmath.Int, err error)

	// TotalLiquiditySupply returns the outstanding liquidity-share supply.
	TotalLiquiditySupply() (sdkmath.Int, error)
}

// AssetLedger is the fungible-token ledger holding both reserve assets and
// the pool's liquidity-share token. Caller authentication happens upstream;
// the ledger trusts the from/owner arguments it is given.
type AssetLedger interface {
	Transfer(from, to string, amount sdk.Coin) error
	TransferFrom(owner, recipient string, amount sdk.Coin) error
	BalanceOf(account, denom string) (sdkmath.Int, error)
	Decimals(denom string) (uint8, error)
}
