/*

This file contains the reentrancy guard serializing the engine's external
entry points. A state-changing call that triggers a callback into the engine
before it completes must be rejected outright: the ledger write for a user
has to be fully committed before anything else may observe or mutate it.

*/

package engine

import "sync/atomic"

// entryGuard is a per-call-frame lock token. enter acquires it or fails, and
// the returned release function must run on every exit path, so callers
// defer it immediately.
type entryGuard struct {
	busy atomic.Bool
}

func (g *entryGuard) enter() (release func(), err error) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, ErrReentrantCall
	}
	return func() { g.busy.Store(false) }, nil
}
