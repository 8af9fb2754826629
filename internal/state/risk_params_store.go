// ./internal/state/risk_params_store.go
package state

import (
	"database/sql"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/meridian-protocol/sce/internal/types"
)

// SaveRiskParameters saves a new version of the risk parameter set. When
// makeActive is true every previous version of the config is deactivated in
// the same transaction.
func SaveRiskParameters(params types.RiskParameters, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}
	if err := params.Validate(); err != nil {
		return 0, err
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if makeActive {
		deactivateSQL := `UPDATE risk_parameters SET is_active = FALSE WHERE config_name = $1;`
		if _, err := tx.Exec(deactivateSQL, configName); err != nil {
			return 0, fmt.Errorf("failed to deactivate previous parameters: %w", err)
		}
	}

	insertSQL := `
		INSERT INTO risk_parameters
			(config_name, version, is_active,
			 liquidation_threshold, liquidation_precision, liquidation_bonus, min_health_factor)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING params_id;`

	var paramsID int64
	err = tx.QueryRow(insertSQL,
		configName,
		version,
		makeActive,
		params.LiquidationThreshold.String(),
		params.LiquidationPrecision.String(),
		params.LiquidationBonus.String(),
		params.MinHealthFactor.String(),
	).Scan(&paramsID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert risk parameters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit risk parameters: %w", err)
	}

	log.Info().
		Int64("paramsID", paramsID).
		Str("configName", configName).
		Int("version", version).
		Bool("active", makeActive).
		Msg("Saved risk parameters")
	return paramsID, nil
}

// LoadActiveRiskParameters returns the most recently activated parameter set
// for configName, or an error when none exists.
func LoadActiveRiskParameters(configName string) (*types.RiskParameters, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT liquidation_threshold, liquidation_precision, liquidation_bonus, min_health_factor
		FROM risk_parameters
		WHERE config_name = $1 AND is_active = TRUE
		ORDER BY activated_at DESC
		LIMIT 1;`

	var thresholdStr, precisionStr, bonusStr, minHFStr string
	err := DB.QueryRow(query, configName).Scan(&thresholdStr, &precisionStr, &bonusStr, &minHFStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no active risk parameters for config %q", configName)
		}
		return nil, fmt.Errorf("failed to load risk parameters: %w", err)
	}

	params := types.RiskParameters{}
	fields := []struct {
		raw  string
		dest *sdkmath.Int
	}{
		{thresholdStr, &params.LiquidationThreshold},
		{precisionStr, &params.LiquidationPrecision},
		{bonusStr, &params.LiquidationBonus},
		{minHFStr, &params.MinHealthFactor},
	}
	for _, f := range fields {
		v, ok := new(big.Int).SetString(f.raw, 10)
		if !ok {
			return nil, fmt.Errorf("corrupt risk parameter value %q", f.raw)
		}
		*f.dest = sdkmath.NewIntFromBigInt(v)
	}

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("stored risk parameters are invalid: %w", err)
	}

	log.Debug().Str("configName", configName).Msg("Loaded active risk parameters")
	return &params, nil
}
