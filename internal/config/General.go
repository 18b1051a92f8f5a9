package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Application configuration loaded from environment variables. Populated at
// startup by LoadConfig.
var (
	// EngineMode selects the gateway wiring: "sim" runs against the in-memory
	// constant-product pool, "live" against a remote gateway node. There is no
	// default; the daemon refuses to start without an explicit mode.
	EngineMode string

	// Denom0 and Denom1 are the two pool reserve assets, in the pool's
	// ordering. TargetSide selects which of them the engine values deposits
	// and redemptions in.
	Denom0     string
	Denom1     string
	TargetSide int

	// EngineAccount is the engine's own account on the asset ledger.
	// FeeCollector receives performance fees harvested on gains.
	EngineAccount string
	FeeCollector  string

	// GatewayRPC is the JSON-RPC endpoint of the pool gateway node (live mode
	// only).
	GatewayRPC string
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars. All listed variables are required.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	EngineMode, err = getEnv("ENGINE_MODE")
	if err != nil {
		return err
	}

	Denom0, err = getEnv("POOL_DENOM0")
	if err != nil {
		return err
	}

	Denom1, err = getEnv("POOL_DENOM1")
	if err != nil {
		return err
	}

	TargetSide, err = getEnvAsInt("TARGET_SIDE")
	if err != nil {
		return err
	}
	if TargetSide != 0 && TargetSide != 1 {
		return errors.New("TARGET_SIDE must be 0 or 1, got: " + strconv.Itoa(TargetSide))
	}

	EngineAccount, err = getEnv("ENGINE_ACCOUNT")
	if err != nil {
		return err
	}

	FeeCollector, err = getEnv("FEE_COLLECTOR")
	if err != nil {
		return err
	}

	if EngineMode == "live" {
		GatewayRPC, err = getEnv("GATEWAY_RPC")
		if err != nil {
			return err
		}
	}

	log.Debug().
		Str("EngineMode", EngineMode).
		Str("Denom0", Denom0).
		Str("Denom1", Denom1).
		Int("TargetSide", TargetSide).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsInt retrieves an environment variable as an int. Returns error if
// not set or invalid.
func getEnvAsInt(key string) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid integer, got: " + valueStr)
	}
	return value, nil
}
