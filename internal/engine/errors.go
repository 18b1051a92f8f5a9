package engine

import "errors"

// Engine error taxonomy. Every error aborts the whole operation; nothing is
// retried internally. Callers retry with adjusted parameters (e.g. a fresh
// minimum-output quote).
var (
	ErrZeroAmount         = errors.New("amount is zero")
	ErrUnsupportedAsset   = errors.New("asset is not one of the pool reserves")
	ErrInsufficientMint   = errors.New("pool issued zero liquidity for supply")
	ErrSlippageExceeded   = errors.New("redemption output below caller minimum")
	ErrInsufficientShares = errors.New("share burn exceeds holder balance")
	ErrReentrancyDetected = errors.New("nested call into a guarded engine operation")
)
