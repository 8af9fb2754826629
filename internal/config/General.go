package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// Mode selects how the engine is wired: "sim" runs against in-memory
	// ledgers and a static price source, "live" requires the HTTP oracle.
	Mode string

	// StableDenom is the denom of the stable token the engine mints.
	StableDenom string

	// CollateralDenoms lists the approved collateral assets, in order.
	CollateralDenoms []string
	// OracleFeedIDs lists the oracle feed per collateral asset, positionally
	// matched against CollateralDenoms.
	OracleFeedIDs []string

	// OracleBaseURL is the base URL of the price feed API (live mode only).
	OracleBaseURL string
	// OracleMaxPriceAge bounds how old a quote may be before it is rejected
	// as stale. Zero disables the check.
	OracleMaxPriceAge time.Duration
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set unless noted.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	Mode, err = getEnv("SCE_MODE")
	if err != nil {
		return err
	}

	StableDenom, err = getEnv("SCE_STABLE_DENOM")
	if err != nil {
		return err
	}

	CollateralDenoms, err = getEnvAsList("SCE_COLLATERAL_DENOMS")
	if err != nil {
		return err
	}

	OracleFeedIDs, err = getEnvAsList("SCE_ORACLE_FEED_IDS")
	if err != nil {
		return err
	}

	if Mode == "live" {
		OracleBaseURL, err = getEnv("ORACLE_BASE_URL")
		if err != nil {
			return err
		}
		OracleMaxPriceAge, err = getEnvAsDuration("ORACLE_MAX_PRICE_AGE")
		if err != nil {
			return err
		}
	}

	log.Debug().
		Str("Mode", Mode).
		Str("StableDenom", StableDenom).
		Strs("CollateralDenoms", CollateralDenoms).
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

// getEnvAsList retrieves a comma-separated environment variable as a slice.
// Entries are trimmed; empty entries are rejected rather than dropped so a
// positional mismatch cannot slip through silently.
func getEnvAsList(key string) ([]string, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, errors.New("environment variable " + key + " contains an empty entry")
		}
		out = append(out, p)
	}
	return out, nil
}

// getEnvAsDuration retrieves an environment variable as a time.Duration.
func getEnvAsDuration(key string) (time.Duration, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid duration, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt retrieves an environment variable as an int with a default.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// GetEnvAsInt is the exported form used by main for optional numeric vars.
func GetEnvAsInt(key string, defaultValue int) int {
	return getEnvAsInt(key, defaultValue)
}
