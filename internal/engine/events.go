/*

This file contains the event plumbing. Events are buffered per operation and
flushed to the sink only when the whole operation commits, so the journal
never records effects of an aborted call.

*/

package engine

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/meridian-protocol/sce/internal/types"
)

// EventSink receives the engine's structured events. Implementations must be
// cheap and must not call back into the engine.
type EventSink interface {
	Record(event types.Event)
}

// MemorySink collects events in order. Used by tests and as the default sink
// when no persistence is wired.
type MemorySink struct {
	events []types.Event
}

// NewMemorySink builds an empty sink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

// Record implements EventSink.
func (m *MemorySink) Record(event types.Event) {
	m.events = append(m.events, event)
}

// Events returns everything recorded so far, in emission order.
func (m *MemorySink) Events() []types.Event {
	return append([]types.Event(nil), m.events...)
}

// eventBuffer accumulates an operation's events until commit.
type eventBuffer struct {
	pending []types.Event
}

func (b *eventBuffer) deposited(user, denom string, amount sdkmath.Int) {
	b.pending = append(b.pending, types.Event{
		Type: types.EventCollateralDeposited, From: user, To: user,
		Denom: denom, Amount: amount, Timestamp: time.Now(),
	})
}

func (b *eventBuffer) redeemed(from, to, denom string, amount sdkmath.Int) {
	b.pending = append(b.pending, types.Event{
		Type: types.EventCollateralRedeemed, From: from, To: to,
		Denom: denom, Amount: amount, Timestamp: time.Now(),
	})
}

func (b *eventBuffer) minted(user string, amount sdkmath.Int) {
	b.pending = append(b.pending, types.Event{
		Type: types.EventStableMinted, From: user, To: user,
		Amount: amount, Timestamp: time.Now(),
	})
}

func (b *eventBuffer) burned(user string, amount sdkmath.Int) {
	b.pending = append(b.pending, types.Event{
		Type: types.EventStableBurned, From: user,
		Amount: amount, Timestamp: time.Now(),
	})
}

func (b *eventBuffer) flush(sink EventSink) {
	if sink == nil {
		return
	}
	for _, ev := range b.pending {
		sink.Record(ev)
	}
	b.pending = nil
}
