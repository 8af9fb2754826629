/*

This file contains the core engine: deposit, mint, redeem, burn and liquidate
composed as invariant-checked transactions over the accounting store, the
valuation layer and the health factor engine.

Every mutating operation follows the same ordering: validate inputs, commit
the internal ledger effects and buffer the observable events, perform the
external asset interaction, verify it succeeded, then verify the global
health invariant. The external interaction comes after the internal write so
a malicious asset calling back into the engine can never observe a ledger
state inconsistent with reality; the reentrancy guard rejects that callback
outright. Any failure unwinds the ledger writes already made, so the whole
operation is atomic.

*/

package engine

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/meridian-protocol/sce/internal/logger"
	"github.com/meridian-protocol/sce/internal/oracle"
	"github.com/meridian-protocol/sce/internal/token"
	"github.com/meridian-protocol/sce/internal/types"
)

// CustodyAccount is the engine's own account on every token ledger: deposits
// park collateral here and burns pull stable tokens here before destruction.
const CustodyAccount = "sce_engine_custody"

// Config wires a CoreEngine's collaborators with dependency injection, so
// tests can substitute deterministic fakes for the oracle and the tokens.
type Config struct {
	Registry   types.RegistryConfig
	Prices     oracle.PriceSource
	Stable     token.StableToken
	Collateral map[string]token.CollateralAsset // one handle per registered denom
	Params     types.RiskParameters
	Sink       EventSink // optional; nil drops events
}

// NewCoreEngine validates the configuration and assembles the engine. The
// registry mismatch check runs first: a bad wiring must fail before any
// state is created.
func NewCoreEngine(cfg Config) (*CoreEngine, error) {
	registry, err := NewCollateralRegistry(cfg.Registry)
	if err != nil {
		return nil, err
	}
	if err := validateConfig(cfg, registry); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}

	accounts := NewAccountingStore()
	valuation := NewValuationEngine(registry, cfg.Prices, accounts)
	health := NewHealthFactorEngine(accounts, valuation, cfg.Params)

	e := &CoreEngine{
		logger:     logger.GetForComponent("core_engine"),
		registry:   registry,
		accounts:   accounts,
		valuation:  valuation,
		health:     health,
		stable:     cfg.Stable,
		collateral: cfg.Collateral,
		params:     cfg.Params,
		sink:       cfg.Sink,
	}

	e.logger.Info().
		Strs("denoms", registry.Denoms()).
		Str("minHealthFactor", cfg.Params.MinHealthFactor.String()).
		Msg("Core engine created")
	return e, nil
}

func validateConfig(cfg Config, registry *CollateralRegistry) error {
	if cfg.Prices == nil {
		return fmt.Errorf("price source cannot be nil")
	}
	if cfg.Stable == nil {
		return fmt.Errorf("stable token cannot be nil")
	}
	if err := cfg.Params.Validate(); err != nil {
		return err
	}
	for _, denom := range registry.Denoms() {
		if _, ok := cfg.Collateral[denom]; !ok {
			return fmt.Errorf("no collateral asset handle for %s", denom)
		}
	}
	return nil
}

// CoreEngine exposes the protocol's state-changing operations and read-only
// queries. One engine instance owns one accounting ledger.
type CoreEngine struct {
	logger     zerolog.Logger
	registry   *CollateralRegistry
	accounts   *AccountingStore
	valuation  *ValuationEngine
	health     *HealthFactorEngine
	stable     token.StableToken
	collateral map[string]token.CollateralAsset
	params     types.RiskParameters
	sink       EventSink
	guard      entryGuard
}

func (e *CoreEngine) emit(buf *eventBuffer) { buf.flush(e.sink) }

// Deposit pulls amount of denom from the user into engine custody and
// credits their collateral balance. Depositing can only improve health, so
// there is no postcondition gate.
func (e *CoreEngine) Deposit(user, denom string, amount sdkmath.Int) error {
	release, err := e.guard.enter()
	if err != nil {
		return err
	}
	defer release()

	var buf eventBuffer
	if err := e.deposit(&buf, user, denom, amount); err != nil {
		return err
	}
	e.emit(&buf)
	return nil
}

func (e *CoreEngine) deposit(buf *eventBuffer, user, denom string, amount sdkmath.Int) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	asset, ok := e.collateral[denom]
	if !ok || !e.registry.IsAllowed(denom) {
		return fmt.Errorf("%w: %s", ErrCollateralNotAllowed, denom)
	}

	e.accounts.AddCollateral(user, denom, amount)
	buf.deposited(user, denom, amount)

	if err := asset.TransferFrom(CustodyAccount, user, CustodyAccount, amount); err != nil {
		// Unwind the ledger credit so the failed pull leaves no trace.
		if uerr := e.accounts.SubCollateral(user, denom, amount); uerr != nil {
			e.logger.Error().Err(uerr).Str("user", user).Msg("Deposit unwind failed")
		}
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	e.logger.Info().
		Str("user", user).
		Str("denom", denom).
		Str("amount", amount.String()).
		Msg("Collateral deposited")
	return nil
}

// Mint increases the user's debt by amount and mints them stable tokens.
// Health is asserted before and after the increment, so a mint that would
// newly break solvency fails with no state change.
func (e *CoreEngine) Mint(user string, amount sdkmath.Int) error {
	release, err := e.guard.enter()
	if err != nil {
		return err
	}
	defer release()

	var buf eventBuffer
	if err := e.mint(&buf, user, amount); err != nil {
		return err
	}
	e.emit(&buf)
	return nil
}

func (e *CoreEngine) mint(buf *eventBuffer, user string, amount sdkmath.Int) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	if err := e.health.AssertHealthy(user); err != nil {
		return err
	}

	e.accounts.AddDebt(user, amount)
	if err := e.health.AssertHealthy(user); err != nil {
		if uerr := e.accounts.SubDebt(user, amount); uerr != nil {
			e.logger.Error().Err(uerr).Str("user", user).Msg("Mint unwind failed")
		}
		return err
	}
	buf.minted(user, amount)

	if err := e.stable.Mint(CustodyAccount, user, amount); err != nil {
		if uerr := e.accounts.SubDebt(user, amount); uerr != nil {
			e.logger.Error().Err(uerr).Str("user", user).Msg("Mint unwind failed")
		}
		return fmt.Errorf("%w: %w", ErrMintFailed, err)
	}

	e.logger.Info().
		Str("user", user).
		Str("amount", amount.String()).
		Msg("Stable tokens minted")
	return nil
}

// Redeem debits amount of denom from the user's collateral and pushes the
// asset back to them, provided the position stays healthy.
func (e *CoreEngine) Redeem(user, denom string, amount sdkmath.Int) error {
	release, err := e.guard.enter()
	if err != nil {
		return err
	}
	defer release()

	var buf eventBuffer
	if err := e.redeem(&buf, user, denom, amount); err != nil {
		return err
	}
	e.emit(&buf)
	e.logger.Info().
		Str("user", user).
		Str("denom", denom).
		Str("amount", amount.String()).
		Msg("Collateral redeemed")
	return nil
}

func (e *CoreEngine) redeem(buf *eventBuffer, user, denom string, amount sdkmath.Int) error {
	if err := e.redeemCollateral(buf, user, user, denom, amount); err != nil {
		return err
	}
	if err := e.health.AssertHealthy(user); err != nil {
		e.reclaimSeized(user, user, denom, amount)
		return err
	}
	return nil
}

// redeemCollateral moves collateral off from's ledger entry and pushes the
// underlying asset to to's token balance. It carries no health gate of its
// own: the public redemption path asserts the redeemer afterwards, while a
// liquidation seizure is judged by the improvement comparison instead.
func (e *CoreEngine) redeemCollateral(buf *eventBuffer, from, to, denom string, amount sdkmath.Int) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	asset, ok := e.collateral[denom]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollateralNotAllowed, denom)
	}

	if err := e.accounts.SubCollateral(from, denom, amount); err != nil {
		return err
	}
	buf.redeemed(from, to, denom, amount)

	if err := asset.Transfer(CustodyAccount, to, amount); err != nil {
		e.accounts.AddCollateral(from, denom, amount)
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}

// Burn pulls amount of stable tokens from the user, destroys them and
// reduces the user's debt, then asserts the closing solvency gate.
func (e *CoreEngine) Burn(user string, amount sdkmath.Int) error {
	release, err := e.guard.enter()
	if err != nil {
		return err
	}
	defer release()

	var buf eventBuffer
	if err := e.burn(&buf, user, user, amount); err != nil {
		return err
	}

	// Burning only raises the burner's health factor, so this trips only for
	// an account that was already below minimum and did not clear its debt
	// entirely.
	if err := e.health.AssertHealthy(user); err != nil {
		e.accounts.AddDebt(user, amount)
		if merr := e.stable.Mint(CustodyAccount, user, amount); merr != nil {
			e.logger.Error().Err(merr).Str("user", user).Msg("Burn unwind failed")
		}
		return err
	}

	e.emit(&buf)
	e.logger.Info().
		Str("user", user).
		Str("amount", amount.String()).
		Msg("Stable tokens burned")
	return nil
}

// burn retires debt on behalf of debtor, paid for by payer's tokens. The two
// differ during liquidation.
func (e *CoreEngine) burn(buf *eventBuffer, payer, debtor string, amount sdkmath.Int) error {
	if err := requirePositive(amount); err != nil {
		return err
	}

	if err := e.accounts.SubDebt(debtor, amount); err != nil {
		return err
	}
	if err := e.stable.TransferFrom(CustodyAccount, payer, CustodyAccount, amount); err != nil {
		e.accounts.AddDebt(debtor, amount)
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if err := e.stable.Burn(CustodyAccount, CustodyAccount, amount); err != nil {
		// Return the pulled tokens before surfacing the failure.
		if uerr := e.stable.Transfer(CustodyAccount, payer, amount); uerr != nil {
			e.logger.Error().Err(uerr).Str("payer", payer).Msg("Burn unwind failed")
		}
		e.accounts.AddDebt(debtor, amount)
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	buf.burned(debtor, amount)
	return nil
}

// DepositAndMint composes Deposit then Mint under a single guard acquisition.
// If the mint fails the deposit is pulled back out, so the composite is
// atomic as a whole.
func (e *CoreEngine) DepositAndMint(user, denom string, depositAmount, mintAmount sdkmath.Int) error {
	release, err := e.guard.enter()
	if err != nil {
		return err
	}
	defer release()

	var buf eventBuffer
	if err := e.deposit(&buf, user, denom, depositAmount); err != nil {
		return err
	}
	if err := e.mint(&buf, user, mintAmount); err != nil {
		if uerr := e.accounts.SubCollateral(user, denom, depositAmount); uerr != nil {
			e.logger.Error().Err(uerr).Str("user", user).Msg("Composite unwind failed")
		} else if terr := e.collateral[denom].Transfer(CustodyAccount, user, depositAmount); terr != nil {
			e.logger.Error().Err(terr).Str("user", user).Msg("Composite unwind failed")
		}
		return err
	}
	e.emit(&buf)
	return nil
}

// RedeemForBurn burns debt first, then redeems collateral, so the redemption
// is judged against the already-reduced debt. A failed redemption re-creates
// the burned debt, keeping the composite atomic.
func (e *CoreEngine) RedeemForBurn(user, denom string, redeemAmount, burnAmount sdkmath.Int) error {
	release, err := e.guard.enter()
	if err != nil {
		return err
	}
	defer release()

	var buf eventBuffer
	if err := e.burn(&buf, user, user, burnAmount); err != nil {
		return err
	}
	if err := e.redeem(&buf, user, denom, redeemAmount); err != nil {
		e.accounts.AddDebt(user, burnAmount)
		if merr := e.stable.Mint(CustodyAccount, user, burnAmount); merr != nil {
			e.logger.Error().Err(merr).Str("user", user).Msg("Composite unwind failed")
		}
		return err
	}
	e.emit(&buf)
	e.logger.Info().
		Str("user", user).
		Str("denom", denom).
		Str("redeemed", redeemAmount.String()).
		Str("burned", burnAmount.String()).
		Msg("Debt repaid and collateral redeemed")
	return nil
}

// Liquidate lets a third party close out an undercollateralized position.
// The liquidator covers debtToCover of the target's debt with their own
// stable tokens and receives the debt-equivalent quantity of denom plus the
// liquidation bonus. The target's health factor must strictly improve, and
// one call is not guaranteed to restore it above the minimum; pathological
// positions may need several.
func (e *CoreEngine) Liquidate(liquidator, targetUser, denom string, debtToCover sdkmath.Int) error {
	release, err := e.guard.enter()
	if err != nil {
		return err
	}
	defer release()

	if err := requirePositive(debtToCover); err != nil {
		return err
	}

	startingHealth, err := e.health.HealthFactor(targetUser)
	if err != nil {
		return err
	}
	if startingHealth.GTE(e.params.MinHealthFactor) {
		return fmt.Errorf("%w: %s at %s", ErrHealthFactorOk, targetUser, startingHealth)
	}

	baseAmount, err := e.valuation.AssetAmountFromUsd(denom, debtToCover)
	if err != nil {
		return err
	}
	bonus := baseAmount.Mul(e.params.LiquidationBonus).Quo(e.params.LiquidationPrecision)
	seized := baseAmount.Add(bonus)

	var buf eventBuffer
	if err := e.redeemCollateral(&buf, targetUser, liquidator, denom, seized); err != nil {
		return err
	}
	if err := e.burn(&buf, liquidator, targetUser, debtToCover); err != nil {
		// The collateral push already happened; pull it back so the aborted
		// liquidation leaves no trace.
		e.reclaimSeized(liquidator, targetUser, denom, seized)
		return err
	}

	// Every failure from here on reverses the seizure and the burn: an oracle
	// outage on the closing reads aborts the liquidation like any other gate.
	endingHealth, err := e.health.HealthFactor(targetUser)
	if err != nil {
		e.unwindLiquidation(liquidator, targetUser, denom, seized, debtToCover)
		return err
	}
	if endingHealth.LTE(startingHealth) {
		e.unwindLiquidation(liquidator, targetUser, denom, seized, debtToCover)
		return fmt.Errorf("%w: %s -> %s", ErrHealthFactorNotImproved, startingHealth, endingHealth)
	}

	if err := e.health.AssertHealthy(liquidator); err != nil {
		e.unwindLiquidation(liquidator, targetUser, denom, seized, debtToCover)
		return err
	}

	e.emit(&buf)
	e.logger.Info().
		Str("liquidator", liquidator).
		Str("target", targetUser).
		Str("denom", denom).
		Str("debtCovered", debtToCover.String()).
		Str("collateralSeized", seized.String()).
		Str("healthBefore", startingHealth.String()).
		Str("healthAfter", endingHealth.String()).
		Msg("Position liquidated")
	return nil
}

// unwindLiquidation reverses a fully-executed seizure-and-burn: the collateral
// returns to the target, the covered debt is re-created and the liquidator's
// tokens are minted back.
func (e *CoreEngine) unwindLiquidation(liquidator, targetUser, denom string, seized, debtToCover sdkmath.Int) {
	e.reclaimSeized(liquidator, targetUser, denom, seized)
	e.accounts.AddDebt(targetUser, debtToCover)
	if merr := e.stable.Mint(CustodyAccount, liquidator, debtToCover); merr != nil {
		e.logger.Error().Err(merr).Str("liquidator", liquidator).Msg("Liquidation unwind failed")
	}
}

// reclaimSeized reverses an already-executed collateral seizure: the asset
// returns to custody and the ledger entry to the target.
func (e *CoreEngine) reclaimSeized(liquidator, targetUser, denom string, seized sdkmath.Int) {
	asset := e.collateral[denom]
	if err := asset.Transfer(liquidator, CustodyAccount, seized); err != nil {
		e.logger.Error().Err(err).Str("liquidator", liquidator).Msg("Liquidation unwind failed")
		return
	}
	e.accounts.AddCollateral(targetUser, denom, seized)
}

func requirePositive(amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return ErrAmountNotPositive
	}
	return nil
}
