// ./internal/state/analytics.go
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/elys-network/wlp/internal/types"
)

// EngineSummary represents high-level engine statistics for the dashboard.
type EngineSummary struct {
	ShareSupply     string  `json:"share_supply"`
	NAV             string  `json:"nav"`
	TargetReserve   string  `json:"target_reserve"`
	PooledLiquidity string  `json:"pooled_liquidity"`
	VirtualRatio    float64 `json:"virtual_ratio"`
	TotalOperations int     `json:"total_operations"`
	LastUpdated     string  `json:"last_updated"`
}

// PerformanceMetrics represents aggregated adjustment performance data.
type PerformanceMetrics struct {
	TotalAdjustments int    `json:"total_adjustments"`
	Harvests         int    `json:"harvests"`
	TopUps           int    `json:"top_ups"`
	TotalHarvested   string `json:"total_harvested"`
	TotalFeesPaid    string `json:"total_fees_paid"`
	TotalDeployed    string `json:"total_deployed"`
}

// GetEngineSummary builds the dashboard summary from the latest event row
// and the operation counter.
func GetEngineSummary() (*EngineSummary, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT position, event_timestamp
		FROM engine_events
		ORDER BY event_timestamp DESC, event_id DESC
		LIMIT 1;
	`

	var positionJSON []byte
	var lastUpdated sql.NullTime
	err := DB.QueryRow(query).Scan(&positionJSON, &lastUpdated)
	if err != nil {
		if err == sql.ErrNoRows {
			return &EngineSummary{
				ShareSupply:     "0",
				NAV:             "0",
				TargetReserve:   "0",
				PooledLiquidity: "0",
			}, nil
		}
		return nil, fmt.Errorf("failed to query latest engine state: %w", err)
	}

	var snapshot types.PositionSnapshot
	if err := json.Unmarshal(positionJSON, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal position snapshot: %w", err)
	}

	operations, err := GetCurrentOperationNumber()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read operation counter for summary")
		operations = 0
	}

	summary := &EngineSummary{
		ShareSupply:     snapshot.ShareSupply,
		NAV:             snapshot.NAV,
		TargetReserve:   snapshot.TargetReserve,
		PooledLiquidity: snapshot.PooledLiquidity,
		VirtualRatio:    snapshot.VirtualRatio,
		TotalOperations: operations,
	}
	if lastUpdated.Valid {
		summary.LastUpdated = lastUpdated.Time.UTC().Format("2006-01-02T15:04:05Z")
	}
	return summary, nil
}

// GetPerformanceMetrics aggregates adjustment outcomes across all events.
func GetPerformanceMetrics() (*PerformanceMetrics, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE direction = 'HARVEST'),
			COUNT(*) FILTER (WHERE direction = 'TOP_UP'),
			COALESCE(SUM(target_harvested), 0)::TEXT,
			COALESCE(SUM(performance_fee), 0)::TEXT,
			COALESCE(SUM(reserve_deployed), 0)::TEXT
		FROM engine_events
		WHERE kind = 'ADJUSTMENT';
	`

	metrics := &PerformanceMetrics{}
	err := DB.QueryRow(query).Scan(
		&metrics.TotalAdjustments,
		&metrics.Harvests,
		&metrics.TopUps,
		&metrics.TotalHarvested,
		&metrics.TotalFeesPaid,
		&metrics.TotalDeployed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate performance metrics: %w", err)
	}

	return metrics, nil
}
