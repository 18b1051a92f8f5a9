/*

This file manages the persistent global operation counter for the engine
daemon. The counter is stored in the database to ensure continuity across
restarts.

*/

package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// GetCurrentOperationNumber retrieves the current operation number from the database
func GetCurrentOperationNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `SELECT current_operation FROM operation_counter WHERE id = 1;`

	var currentOperation int
	row := DB.QueryRow(query)
	err := row.Scan(&currentOperation)

	if err != nil {
		if err == sql.ErrNoRows {
			// This should not happen due to the INSERT in EnsureSchema
			log.Warn().Msg("No operation counter row found, initializing to 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get current operation number: %w", err)
	}

	log.Debug().Int("currentOperation", currentOperation).Msg("Retrieved current operation number")
	return currentOperation, nil
}

// IncrementOperationNumber increments the operation counter and returns the new value
func IncrementOperationNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	updateQuery := `
		UPDATE operation_counter
		SET current_operation = current_operation + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_operation;`

	var newOperation int
	row := DB.QueryRow(updateQuery)
	err := row.Scan(&newOperation)

	if err != nil {
		return 0, fmt.Errorf("failed to increment operation number: %w", err)
	}

	log.Debug().Int("newOperation", newOperation).Msg("Incremented operation counter")
	return newOperation, nil
}

// ResetOperationNumber resets the operation counter to a specific value (for testing/maintenance)
func ResetOperationNumber(operationNumber int) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if operationNumber < 0 {
		return fmt.Errorf("operation number cannot be negative: %d", operationNumber)
	}

	updateQuery := `
		UPDATE operation_counter
		SET current_operation = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1;`

	result, err := DB.Exec(updateQuery, operationNumber)
	if err != nil {
		return fmt.Errorf("failed to reset operation number to %d: %w", operationNumber, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no rows updated when resetting operation number")
	}

	log.Warn().Int("operationNumber", operationNumber).Msg("Reset operation counter")
	return nil
}
