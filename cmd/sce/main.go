package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/meridian-protocol/sce/internal/config"
	"github.com/meridian-protocol/sce/internal/engine"
	"github.com/meridian-protocol/sce/internal/logger"
	"github.com/meridian-protocol/sce/internal/oracle"
	"github.com/meridian-protocol/sce/internal/state"
	"github.com/meridian-protocol/sce/internal/token"
	"github.com/meridian-protocol/sce/internal/types"
	"github.com/meridian-protocol/sce/internal/web"
)

const (
	RISK_CONFIG_NAME    = "default_risk_profile"
	RISK_CONFIG_VERSION = 1
	MONITOR_INTERVAL    = 1 * time.Minute
)

// main is the entry point for the stablecoin core engine.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("SCE Core Engine Starting...")

	// Initialize Database Connection (receipts + risk parameters)
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: config.GetEnvAsInt("DB_PORT", 5432),
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

	// Load Risk Parameters
	riskParams, err := state.LoadActiveRiskParameters(RISK_CONFIG_NAME)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active risk parameters, using defaults and saving.")
		defaultParams := config.DefaultRiskParameters
		if _, err := state.SaveRiskParameters(defaultParams, RISK_CONFIG_NAME, RISK_CONFIG_VERSION, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default risk parameters.")
		}
		riskParams = &defaultParams
	}
	log.Info().Msg("Risk parameters loaded successfully.")

	// --- 2. Oracle Initialization (with Safety Switch) ---
	var prices oracle.PriceSource
	switch config.Mode {
	case "live":
		log.Warn().Msg("Initializing SCE in LIVE mode. Oracle prices drive real solvency decisions.")
		feed, err := oracle.NewFeedClient(config.OracleBaseURL, config.OracleMaxPriceAge)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize price feed client")
		}
		prices = feed
	case "sim":
		log.Warn().Msg("Initializing SCE in SIM mode. Prices come from a static in-memory source.")
		static := oracle.NewStaticSource()
		for _, feedID := range config.OracleFeedIDs {
			static.SetUSDPrice(feedID, 1) // placeholder until operators set real quotes
		}
		prices = static
	default:
		log.Fatal().Str("mode", config.Mode).Msg("SCE_MODE must be 'live' or 'sim'. Halting to prevent accidental execution.")
	}

	// --- 3. Token Ledgers ---
	stable := token.NewLedger(config.StableDenom, engine.CustodyAccount)
	collateral := make(map[string]token.CollateralAsset, len(config.CollateralDenoms))
	for _, denom := range config.CollateralDenoms {
		collateral[denom] = token.NewLedger(denom, "")
	}

	// --- 4. Create Engine Instance with Dependency Injection ---
	log.Info().Msg("Creating core engine instance with dependency injection...")

	engineConfig := engine.Config{
		Registry: types.RegistryConfig{
			Denoms:  config.CollateralDenoms,
			FeedIDs: config.OracleFeedIDs,
		},
		Prices:     prices,
		Stable:     stable,
		Collateral: collateral,
		Params:     *riskParams,
		Sink:       state.PostgresSink{},
	}

	core, err := engine.NewCoreEngine(engineConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create core engine instance")
	}

	log.Info().Msg("Core engine instance created successfully")

	// --- 5. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, core)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting SCE web API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 6. Solvency Monitor Loop ---
	go monitorLoop(core, stable)

	// Block until interrupted
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutdown signal received, stopping SCE")
}

// monitorLoop periodically audits the conservation invariant: the stable
// token's total supply must equal the sum of all debt on the ledger.
func monitorLoop(core *engine.CoreEngine, stable token.StableToken) {
	ticker := time.NewTicker(MONITOR_INTERVAL)
	defer ticker.Stop()

	for range ticker.C {
		totalDebt := core.GetTotalDebt()
		supply := stable.TotalSupply()
		if !totalDebt.Equal(supply) {
			log.Error().
				Str("totalDebt", totalDebt.String()).
				Str("tokenSupply", supply.String()).
				Msg("Conservation invariant violated: debt and supply diverge")
			continue
		}
		log.Debug().
			Str("totalDebt", totalDebt.String()).
			Msg("Conservation invariant holds")
	}
}
