package engine

import (
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/wlp/internal/types"
)

// Handle serializes access to an Engine. The daemon's adjustment loop and the
// web API share one handle, so at most one operation runs at a time; the
// engine's own reentrancy guard only catches callbacks within an operation.
type Handle struct {
	mu  sync.Mutex
	eng *Engine
}

// NewHandle wraps an engine in a serialized handle.
func NewHandle(eng *Engine) *Handle {
	return &Handle{eng: eng}
}

func (h *Handle) AddLiquidity(depositor, assetIn string, amountIn sdkmath.Int) (sdkmath.Int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.AddLiquidity(depositor, assetIn, amountIn)
}

func (h *Handle) RedeemLiquidity(holder string, sharesIn, minTargetOut sdkmath.Int) (sdkmath.Int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.RedeemLiquidity(holder, sharesIn, minTargetOut)
}

func (h *Handle) SafeRedeemLiquidity(holder string, sharesIn sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.SafeRedeemLiquidity(holder, sharesIn)
}

func (h *Handle) Adjust() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.Adjust()
}

func (h *Handle) ShouldAdjust() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.ShouldAdjust()
}

func (h *Handle) Snapshot() types.PositionSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.Snapshot()
}

func (h *Handle) SharesOf(holder string) sdkmath.Int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.SharesOf(holder)
}

func (h *Handle) NAVDisplay() (float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.NAVDisplay()
}

func (h *Handle) UnrealizedRatio() (sdkmath.LegacyDec, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.UnrealizedRatio()
}
