/*

This file contains the engine's error taxonomy. Every error is a hard gate:
it aborts the whole enclosing operation with no partial state left behind, and
the caller must issue a new, corrected call.

*/

package engine

import "errors"

var (
	// ErrAmountNotPositive rejects zero or negative quantities where a
	// positive one is required.
	ErrAmountNotPositive = errors.New("engine: amount must be more than zero")

	// ErrCollateralNotAllowed rejects assets with no registered oracle feed.
	ErrCollateralNotAllowed = errors.New("engine: collateral asset not allowed")

	// ErrMismatchedFeeds rejects construction with denom and feed lists of
	// different lengths.
	ErrMismatchedFeeds = errors.New("engine: denom and feed lists must be the same length")

	// ErrInsufficientCollateral rejects a redemption or seizure that would
	// drive a collateral balance negative.
	ErrInsufficientCollateral = errors.New("engine: redemption exceeds deposited collateral")

	// ErrInsufficientDebt rejects a burn larger than the outstanding debt.
	ErrInsufficientDebt = errors.New("engine: burn exceeds outstanding debt")

	// ErrTransferFailed wraps a failed external asset movement.
	ErrTransferFailed = errors.New("engine: asset transfer failed")

	// ErrMintFailed wraps a failed stable-token mint.
	ErrMintFailed = errors.New("engine: stable token mint failed")

	// ErrHealthFactorTooLow means the operation would leave, or already
	// leaves, the account insolvent.
	ErrHealthFactorTooLow = errors.New("engine: health factor below minimum")

	// ErrHealthFactorOk means liquidation was attempted on a solvent account.
	ErrHealthFactorOk = errors.New("engine: health factor is not below minimum")

	// ErrHealthFactorNotImproved means a liquidation finished its mechanical
	// effects without making the target strictly healthier.
	ErrHealthFactorNotImproved = errors.New("engine: liquidation did not improve health factor")

	// ErrNonPositivePrice is the division-by-zero class failure of the
	// USD-to-asset inverse when the feed reports a non-positive price.
	ErrNonPositivePrice = errors.New("engine: oracle price is not positive")

	// ErrReentrantCall rejects a state-changing call issued while another one
	// is still in flight.
	ErrReentrantCall = errors.New("engine: reentrant call rejected")
)
