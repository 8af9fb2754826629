// ./internal/state/receipts_store.go
package state

import (
	"fmt"
	"math/big"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/meridian-protocol/sce/internal/types"
)

// SaveEventReceipt appends one engine event to the journal and returns the
// assigned receipt ID.
func SaveEventReceipt(event types.Event) (string, error) {
	if DB == nil {
		return "", fmt.Errorf("database not initialized")
	}

	receiptID := uuid.New().String()
	insertSQL := `
		INSERT INTO event_receipts
			(receipt_id, event_type, account_from, account_to, denom, amount, event_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7);`

	_, err := DB.Exec(insertSQL,
		receiptID,
		string(event.Type),
		event.From,
		nullable(event.To),
		nullable(event.Denom),
		event.Amount.String(),
		event.Timestamp,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert event receipt: %w", err)
	}

	log.Debug().
		Str("receiptID", receiptID).
		Str("eventType", string(event.Type)).
		Msg("Saved event receipt")
	return receiptID, nil
}

// LoadRecentReceipts returns the newest limit receipts, newest first.
func LoadRecentReceipts(limit int) ([]types.EventReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT receipt_id, event_type, account_from,
		       COALESCE(account_to, ''), COALESCE(denom, ''),
		       amount, event_timestamp, created_at
		FROM event_receipts
		ORDER BY event_timestamp DESC
		LIMIT $1;`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query event receipts: %w", err)
	}
	defer rows.Close()

	var receipts []types.EventReceipt
	for rows.Next() {
		var (
			receipt   types.EventReceipt
			eventType string
			amountStr string
			timestamp time.Time
		)
		err := rows.Scan(
			&receipt.ReceiptID,
			&eventType,
			&receipt.Event.From,
			&receipt.Event.To,
			&receipt.Event.Denom,
			&amountStr,
			&timestamp,
			&receipt.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event receipt: %w", err)
		}
		amount, ok := new(big.Int).SetString(amountStr, 10)
		if !ok {
			return nil, fmt.Errorf("corrupt amount %q in receipt %s", amountStr, receipt.ReceiptID)
		}
		receipt.Event.Type = types.EventType(eventType)
		receipt.Event.Amount = sdkmath.NewIntFromBigInt(amount)
		receipt.Event.Timestamp = timestamp
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event receipts: %w", err)
	}
	return receipts, nil
}

// PostgresSink adapts the receipt store to the engine's event sink. Recording
// is best effort: a journal write failure is logged, never propagated into
// the ledger operation that emitted the event.
type PostgresSink struct{}

// Record implements the engine's EventSink.
func (PostgresSink) Record(event types.Event) {
	if _, err := SaveEventReceipt(event); err != nil {
		log.Error().Err(err).Str("eventType", string(event.Type)).Msg("Failed to persist event receipt")
	}
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
