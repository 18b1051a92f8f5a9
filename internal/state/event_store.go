// ./internal/state/event_store.go
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/wlp/internal/types"
)

// Recorder persists engine events to PostgreSQL. It satisfies the engine's
// event-recorder contract.
type Recorder struct{}

func (Recorder) RecordEvent(event types.EngineEvent) error {
	_, err := SaveEngineEvent(event)
	return err
}

// SaveEngineEvent inserts one event row and returns its event_id.
func SaveEngineEvent(event types.EngineEvent) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	positionJSON, err := json.Marshal(event.Position)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal position snapshot: %w", err)
	}

	var amountInDenom, amountIn interface{}
	if event.AmountIn != nil {
		amountInDenom = event.AmountIn.Denom
		amountIn = event.AmountIn.Amount.String()
	}
	var account, direction interface{}
	if event.Account != "" {
		account = event.Account
	}
	if event.Direction != "" {
		direction = string(event.Direction)
	}

	query := `
		INSERT INTO engine_events (
			op_id, kind, event_timestamp,
			account, amount_in_denom, amount_in,
			shares_out, shares_in, target_out, liquidity_out,
			direction, drift_ppt,
			liquidity_burned, target_harvested, performance_fee, reserve_deployed, liquidity_minted,
			position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING event_id;
	`

	var eventID int64
	err = DB.QueryRow(
		query,
		event.OpID, string(event.Kind), event.Timestamp,
		account, amountInDenom, amountIn,
		event.SharesOut.String(), event.SharesIn.String(), event.TargetOut.String(), event.LiquidityOut.String(),
		direction, event.DriftPpt,
		event.LiquidityBurned.String(), event.TargetHarvested.String(), event.PerformanceFee.String(),
		event.ReserveDeployed.String(), event.LiquidityMinted.String(),
		positionJSON,
	).Scan(&eventID)

	if err != nil {
		return 0, fmt.Errorf("failed to save engine event: %w", err)
	}

	log.Debug().
		Int64("event_id", eventID).
		Str("kind", string(event.Kind)).
		Str("op_id", event.OpID).
		Msg("Engine event saved to database")

	return eventID, nil
}

// GetRecentEvents retrieves the most recent engine events, newest first.
func GetRecentEvents(limit int) ([]types.EngineEvent, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 20 // Default limit
	}

	query := eventSelectColumns + `
		FROM engine_events
		ORDER BY event_timestamp DESC, event_id DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	var events []types.EngineEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan engine event row")
			continue // Skip this row and continue with others
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}

// GetEventByID retrieves a single engine event by its event_id.
func GetEventByID(eventID int64) (*types.EngineEvent, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := eventSelectColumns + `
		FROM engine_events
		WHERE event_id = $1;
	`

	row := DB.QueryRow(query, eventID)
	event, err := scanEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no engine event found with id %d", eventID)
		}
		return nil, fmt.Errorf("failed to scan engine event %d: %w", eventID, err)
	}
	return &event, nil
}

// GetLatestSnapshot returns the position snapshot attached to the most recent
// event, or nil when no events exist yet.
func GetLatestSnapshot() (*types.PositionSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT position
		FROM engine_events
		ORDER BY event_timestamp DESC, event_id DESC
		LIMIT 1;
	`

	var positionJSON []byte
	err := DB.QueryRow(query).Scan(&positionJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}

	var snapshot types.PositionSnapshot
	if err := json.Unmarshal(positionJSON, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal position snapshot: %w", err)
	}
	return &snapshot, nil
}

const eventSelectColumns = `
		SELECT
			event_id, op_id, kind, event_timestamp,
			account, amount_in_denom, amount_in,
			shares_out, shares_in, target_out, liquidity_out,
			direction, drift_ppt,
			liquidity_burned, target_harvested, performance_fee, reserve_deployed, liquidity_minted,
			position`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (types.EngineEvent, error) {
	var (
		event         types.EngineEvent
		kind          string
		account       sql.NullString
		amountInDenom sql.NullString
		amountIn      sql.NullString
		direction     sql.NullString
		positionJSON  []byte
	)
	var sharesOut, sharesIn, targetOut, liquidityOut string
	var liquidityBurned, targetHarvested, performanceFee string
	var reserveDeployed, liquidityMinted string

	err := row.Scan(
		&event.EventID, &event.OpID, &kind, &event.Timestamp,
		&account, &amountInDenom, &amountIn,
		&sharesOut, &sharesIn, &targetOut, &liquidityOut,
		&direction, &event.DriftPpt,
		&liquidityBurned, &targetHarvested, &performanceFee, &reserveDeployed, &liquidityMinted,
		&positionJSON,
	)
	if err != nil {
		return types.EngineEvent{}, err
	}

	event.Kind = types.EventKind(kind)
	event.Account = account.String
	event.Direction = types.AdjustmentDirection(direction.String)

	if amountInDenom.Valid && amountIn.Valid {
		amount, err := parseNumeric(amountIn.String)
		if err != nil {
			return types.EngineEvent{}, err
		}
		coin := sdk.Coin{Denom: amountInDenom.String, Amount: amount}
		event.AmountIn = &coin
	}

	for _, field := range []struct {
		dst *sdkmath.Int
		raw string
	}{
		{&event.SharesOut, sharesOut},
		{&event.SharesIn, sharesIn},
		{&event.TargetOut, targetOut},
		{&event.LiquidityOut, liquidityOut},
		{&event.LiquidityBurned, liquidityBurned},
		{&event.TargetHarvested, targetHarvested},
		{&event.PerformanceFee, performanceFee},
		{&event.ReserveDeployed, reserveDeployed},
		{&event.LiquidityMinted, liquidityMinted},
	} {
		value, err := parseNumeric(field.raw)
		if err != nil {
			return types.EngineEvent{}, err
		}
		*field.dst = value
	}

	if err := json.Unmarshal(positionJSON, &event.Position); err != nil {
		return types.EngineEvent{}, fmt.Errorf("failed to unmarshal position snapshot: %w", err)
	}

	return event, nil
}

func parseNumeric(raw string) (sdkmath.Int, error) {
	value, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("invalid numeric value in database: %q", raw)
	}
	return value, nil
}
