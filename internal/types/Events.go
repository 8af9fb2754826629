/*

This file contains the structured events the engine emits on every successful
state change, and the persisted receipt wrapper the state package stores.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// EventType identifies the state change an Event records.
type EventType string

const (
	EventCollateralDeposited EventType = "COLLATERAL_DEPOSITED"
	EventCollateralRedeemed  EventType = "COLLATERAL_REDEEMED"
	EventStableMinted        EventType = "DSC_MINTED"
	EventStableBurned        EventType = "DSC_BURNED"
)

// Event is a single engine state change. For collateral redemptions From and
// To differ during liquidation: collateral leaves the liquidated account and
// the underlying asset is pushed to the liquidator.
type Event struct {
	Type      EventType   `json:"type"`
	From      string      `json:"from"`
	To        string      `json:"to,omitempty"`
	Denom     string      `json:"denom,omitempty"` // empty for mint/burn events
	Amount    sdkmath.Int `json:"amount"`
	Timestamp time.Time   `json:"timestamp"`
}

// EventReceipt is the persisted form of an Event, keyed for the journal.
type EventReceipt struct {
	ReceiptID string    `json:"receipt_id"` // UUID assigned by the store
	Event     Event     `json:"event"`
	CreatedAt time.Time `json:"created_at"`
}
