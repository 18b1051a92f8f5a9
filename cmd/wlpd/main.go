package main

import (
	"math/rand"
	"os"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/wlp/internal/config"
	"github.com/elys-network/wlp/internal/engine"
	"github.com/elys-network/wlp/internal/gateway"
	"github.com/elys-network/wlp/internal/logger"
	"github.com/elys-network/wlp/internal/state"
	"github.com/elys-network/wlp/internal/types"
	"github.com/elys-network/wlp/internal/web"
)

const (
	DEFAULT_CONFIG_NAME    = "default"
	DEFAULT_CONFIG_VERSION = 1

	simPoolAddr   = "sim-pool"
	simSeedHolder = "sim-seeder"
	simTrader     = "sim-trader"
	simLPDenom    = "ulp"
)

// main is the entry point for the position engine daemon.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Position engine daemon starting...")

	// Initialize database connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load engine parameters
	engineParams, err := state.LoadActiveEngineParameters(DEFAULT_CONFIG_NAME)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active engine parameters, using defaults and saving.")
		defaultParams := config.DefaultEngineParameters
		if _, err := state.SaveEngineParameters(defaultParams, DEFAULT_CONFIG_NAME, DEFAULT_CONFIG_VERSION, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default engine parameters.")
		}
		engineParams = &defaultParams
	}
	log.Info().Msg("Engine parameters loaded successfully.")

	// --- 2. Gateway Initialization (with Safety Switch) ---
	var pool gateway.PoolGateway
	var ledger gateway.AssetLedger
	var simPool *gateway.SimPool
	var simLedger *gateway.SimLedger

	switch config.EngineMode {
	case "live":
		log.Warn().Msg("Initializing engine in LIVE mode. Real pool operations will be submitted.")
		remote, err := gateway.NewRemoteGateway(config.GatewayRPC)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to pool gateway")
		}
		pool = remote
		ledger = remote
		log.Info().Str("endpoint", config.GatewayRPC).Msg("Pool gateway connected")

	case "sim":
		log.Info().Msg("Initializing engine in SIM mode against the in-memory pool.")
		simLedger, simPool = buildSimEnvironment(engineParams.SwapFeePpt)
		pool = simPool
		ledger = simLedger

	default:
		log.Fatal().Str("mode", config.EngineMode).Msg("ENGINE_MODE must be 'sim' or 'live'. Halting to prevent accidental execution.")
	}

	// --- 3. Create Engine Instance with Dependency Injection ---
	eng, err := engine.New(engine.Config{
		Pool:         pool,
		Ledger:       ledger,
		Recorder:     state.Recorder{},
		Params:       *engineParams,
		TargetSide:   sideFromConfig(),
		Account:      config.EngineAccount,
		FeeCollector: config.FeeCollector,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine instance")
	}
	handle := engine.NewHandle(eng)
	log.Info().Msg("Engine instance created successfully")

	// --- 4. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(handle, webPort)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting engine web API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// In sim mode a background trader keeps the pool price moving so the
	// adjustment loop has drift to correct.
	if config.EngineMode == "sim" {
		go runMarketNoise(simLedger, simPool, engineParams.SwapFeePpt)
	}

	// --- 5. Adjustment Loop ---
	interval := time.Duration(engineParams.AdjustIntervalSeconds) * time.Second
	log.Info().Str("interval", interval.String()).Msg("Starting adjustment loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		should, err := handle.ShouldAdjust()
		if err != nil {
			log.Error().Err(err).Msg("Drift check failed")
			continue
		}
		if !should {
			log.Debug().Msg("Drift within band, no adjustment needed")
			continue
		}

		if err := handle.Adjust(); err != nil {
			log.Error().Err(err).Msg("Adjustment failed")
			continue
		}
		if _, err := state.IncrementOperationNumber(); err != nil {
			log.Error().Err(err).Msg("Failed to increment operation counter")
		}
		log.Info().Interface("position", handle.Snapshot()).Msg("Adjustment completed")
	}
}

// buildSimEnvironment seeds an in-memory ledger and pool with large balanced
// reserves and funds the engine's counterparties.
func buildSimEnvironment(swapFeePpt int64) (*gateway.SimLedger, *gateway.SimPool) {
	ledger := gateway.NewSimLedger()
	ledger.RegisterDenom(config.Denom0, uint8(mustAtoi(os.Getenv("SIM_DECIMALS0"), 6)))
	ledger.RegisterDenom(config.Denom1, uint8(mustAtoi(os.Getenv("SIM_DECIMALS1"), 6)))
	ledger.RegisterDenom(simLPDenom, 6)

	pool := gateway.NewSimPool(ledger, simPoolAddr, config.Denom0, config.Denom1, simLPDenom, swapFeePpt)

	seed0 := sdkmath.NewInt(int64(mustAtoi(os.Getenv("SIM_SEED0"), 1_000_000_000)))
	seed1 := sdkmath.NewInt(int64(mustAtoi(os.Getenv("SIM_SEED1"), 1_000_000_000)))

	ledger.Fund(simSeedHolder, sdk.Coin{Denom: config.Denom0, Amount: seed0})
	ledger.Fund(simSeedHolder, sdk.Coin{Denom: config.Denom1, Amount: seed1})
	if err := ledger.Transfer(simSeedHolder, simPoolAddr, sdk.Coin{Denom: config.Denom0, Amount: seed0}); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed sim pool")
	}
	if err := ledger.Transfer(simSeedHolder, simPoolAddr, sdk.Coin{Denom: config.Denom1, Amount: seed1}); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed sim pool")
	}
	minted, err := pool.Mint(simSeedHolder)
	if err != nil || !minted.IsPositive() {
		log.Fatal().Err(err).Msg("Failed to bootstrap sim pool liquidity")
	}

	log.Info().
		Str("reserve0", seed0.String()).
		Str("reserve1", seed1.String()).
		Int64("swap_fee_ppt", swapFeePpt).
		Msg("Sim pool seeded")
	return ledger, pool
}

// runMarketNoise trades randomly against the sim pool, up to 2% of a reserve
// per trade.
func runMarketNoise(ledger *gateway.SimLedger, pool *gateway.SimPool, swapFeePpt int64) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	interval := time.Duration(mustAtoi(os.Getenv("SIM_NOISE_SECONDS"), 30)) * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		reserve0, reserve1, _, err := pool.Reserves()
		if err != nil {
			log.Error().Err(err).Msg("Sim trader failed to read reserves")
			continue
		}

		denomIn := config.Denom0
		reserveIn, reserveOut := reserve0, reserve1
		sellSide0 := rng.Intn(2) == 0
		if !sellSide0 {
			denomIn = config.Denom1
			reserveIn, reserveOut = reserve1, reserve0
		}

		amountIn := reserveIn.MulRaw(int64(rng.Intn(20) + 1)).QuoRaw(1000)
		if !amountIn.IsPositive() {
			continue
		}
		quoted := gateway.AmountOut(amountIn, reserveIn, reserveOut, swapFeePpt)
		if !quoted.IsPositive() {
			continue
		}

		ledger.Fund(simTrader, sdk.Coin{Denom: denomIn, Amount: amountIn})
		if err := ledger.Transfer(simTrader, simPoolAddr, sdk.Coin{Denom: denomIn, Amount: amountIn}); err != nil {
			log.Error().Err(err).Msg("Sim trader transfer failed")
			continue
		}

		amount0Out, amount1Out := sdkmath.ZeroInt(), quoted
		if !sellSide0 {
			amount0Out, amount1Out = quoted, sdkmath.ZeroInt()
		}
		if err := pool.Swap(amount0Out, amount1Out, simTrader); err != nil {
			log.Error().Err(err).Msg("Sim trader swap failed")
			continue
		}

		log.Debug().
			Str("denom_in", denomIn).
			Str("amount_in", amountIn.String()).
			Str("amount_out", quoted.String()).
			Msg("Sim market noise trade")
	}
}

func sideFromConfig() types.Side {
	if config.TargetSide == 1 {
		return types.Side1
	}
	return types.Side0
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
