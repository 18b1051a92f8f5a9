/*

Default engine parameters. These are used when no active parameter set is
found in the database during initialization.

*/

package config

import (
	"github.com/elys-network/wlp/internal/types"
)

// DefaultEngineParameters is the baseline calibration for the rebalancer and
// the zap engine.
var DefaultEngineParameters = types.EngineParameters{
	DriftThresholdPpt: 500, // Correct once attributable reserves drift 50% from the snapshot.
	// Rationale: corrections burn or mint pooled liquidity and pay swap fees
	// on the way. A wide band keeps the engine from churning the position on
	// ordinary market noise while still capping impermanent-loss exposure.

	PerformanceFeeBps: 1000, // 10% base fee on harvested profit.
	// The effective fee scales with how far past the threshold the drift is,
	// so a harvest triggered right at the band pays the base rate and larger
	// excursions pay proportionally more.

	SwapFeePpt: 3, // 0.3% constant-product swap fee, matching the pool.

	AdjustIntervalSeconds: 600, // Opportunistic adjustment check every 10 minutes.
	// Deposits and redemptions also run the rebalancer, so the timer only has
	// to catch drift during quiet periods.
}
