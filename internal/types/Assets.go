/*

This file contains the types describing the collateral assets the engine
accepts and the oracle feed each asset is priced by.

*/

package types

// Asset describes a single approved collateral asset.
type Asset struct {
	Denom     string `json:"denom"`     // e.g., "uatom"
	FeedID    string `json:"feed_id"`   // oracle feed identifier, e.g., "ATOM-USD"
	Precision int    `json:"precision"` // on-ledger decimal precision, 18 throughout the engine
}

// RegistryConfig is the raw (denom, feed) wiring supplied at construction.
// The two slices are parallel; a length mismatch is a configuration error.
type RegistryConfig struct {
	Denoms  []string `json:"denoms"`
	FeedIDs []string `json:"feed_ids"`
}
