package types

// EngineParameters holds the tunable knobs of the position engine. They are
// persisted in the database so a running deployment keeps its calibration
// across restarts; code defaults live in the config package.
type EngineParameters struct {
	// DriftThresholdPpt is the symmetric correction band in parts-per-thousand.
	// A value of 500 triggers adjustment once attributable reserves drift 50%
	// above or below the virtual-reserve snapshot.
	DriftThresholdPpt int64 `json:"drift_threshold_ppt"`

	// PerformanceFeeBps is the base fee, in basis points, taken from harvested
	// profit. The effective fee scales linearly with how far past the
	// threshold the drift is.
	PerformanceFeeBps int64 `json:"performance_fee_bps"`

	// SwapFeePpt is the constant-product pool's swap fee in parts-per-thousand,
	// used when quoting zap swaps (3 = 0.3%).
	SwapFeePpt int64 `json:"swap_fee_ppt"`

	// AdjustIntervalSeconds is the daemon's opportunistic rebalance cadence.
	AdjustIntervalSeconds int64 `json:"adjust_interval_seconds"`
}
