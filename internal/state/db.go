// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS engine_parameters (
			params_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			drift_threshold_ppt BIGINT NOT NULL,
			performance_fee_bps BIGINT NOT NULL,
			swap_fee_ppt BIGINT NOT NULL,
			adjust_interval_seconds BIGINT NOT NULL,
			CONSTRAINT uq_engine_parameters_config_version UNIQUE (config_name, version)
		);
		CREATE INDEX IF NOT EXISTS idx_engine_parameters_config_active_timestamp ON engine_parameters(config_name, is_active, activated_at DESC);

		CREATE TABLE IF NOT EXISTS engine_events (
			event_id BIGSERIAL PRIMARY KEY,
			op_id UUID NOT NULL,
			kind VARCHAR(32) NOT NULL,
			event_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,

			-- Deposit / redemption fields
			account VARCHAR(128),
			amount_in_denom VARCHAR(64),
			amount_in NUMERIC(40, 0),
			shares_out NUMERIC(40, 0) NOT NULL,
			shares_in NUMERIC(40, 0) NOT NULL,
			target_out NUMERIC(40, 0) NOT NULL,
			liquidity_out NUMERIC(40, 0) NOT NULL,

			-- Adjustment fields
			direction VARCHAR(16),
			drift_ppt BIGINT NOT NULL DEFAULT 0,
			liquidity_burned NUMERIC(40, 0) NOT NULL,
			target_harvested NUMERIC(40, 0) NOT NULL,
			performance_fee NUMERIC(40, 0) NOT NULL,
			reserve_deployed NUMERIC(40, 0) NOT NULL,
			liquidity_minted NUMERIC(40, 0) NOT NULL,

			-- Post-operation engine state
			position JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_engine_events_timestamp ON engine_events(event_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_engine_events_kind ON engine_events(kind);
		CREATE INDEX IF NOT EXISTS idx_engine_events_op_id ON engine_events(op_id);

		-- Operation counter table for persistent global operation tracking
		CREATE TABLE IF NOT EXISTS operation_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_operation INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		-- Insert initial row if it doesn't exist
		INSERT INTO operation_counter (id, current_operation)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
