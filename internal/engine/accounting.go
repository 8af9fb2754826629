/*

This file contains the accounting store: per-user collateral balances by denom
and the per-user minted-debt scalar. Accounts are created implicitly on first
deposit or mint and never deleted, only zeroed. The store holds quantities
only; pricing and solvency live in the valuation and health layers.

*/

package engine

import (
	"fmt"
	"sort"

	sdkmath "cosmossdk.io/math"
)

type position struct {
	collateral map[string]sdkmath.Int
	debt       sdkmath.Int
}

// AccountingStore is the mutable ledger of all user positions. It is an
// explicit object passed into every operation; there is no ambient state.
// Mutations never go negative: a decrement that would underflow fails and
// leaves the store untouched.
type AccountingStore struct {
	positions map[string]*position
}

// NewAccountingStore builds an empty ledger.
func NewAccountingStore() *AccountingStore {
	return &AccountingStore{positions: make(map[string]*position)}
}

func (s *AccountingStore) ensure(user string) *position {
	p, ok := s.positions[user]
	if !ok {
		p = &position{
			collateral: make(map[string]sdkmath.Int),
			debt:       sdkmath.ZeroInt(),
		}
		s.positions[user] = p
	}
	return p
}

// Collateral returns user's deposited quantity of denom, zero if none.
func (s *AccountingStore) Collateral(user, denom string) sdkmath.Int {
	if p, ok := s.positions[user]; ok {
		if c, ok := p.collateral[denom]; ok {
			return c
		}
	}
	return sdkmath.ZeroInt()
}

// Debt returns user's outstanding minted debt, zero if none.
func (s *AccountingStore) Debt(user string) sdkmath.Int {
	if p, ok := s.positions[user]; ok {
		return p.debt
	}
	return sdkmath.ZeroInt()
}

// AddCollateral credits denom to user's position.
func (s *AccountingStore) AddCollateral(user, denom string, amount sdkmath.Int) {
	p := s.ensure(user)
	current := sdkmath.ZeroInt()
	if c, ok := p.collateral[denom]; ok {
		current = c
	}
	p.collateral[denom] = current.Add(amount)
}

// SubCollateral debits denom from user's position. Fails without mutating if
// the balance would go negative.
func (s *AccountingStore) SubCollateral(user, denom string, amount sdkmath.Int) error {
	current := s.Collateral(user, denom)
	if current.LT(amount) {
		return fmt.Errorf("%w: %s holds %s %s, redeeming %s",
			ErrInsufficientCollateral, user, current, denom, amount)
	}
	s.ensure(user).collateral[denom] = current.Sub(amount)
	return nil
}

// AddDebt increases user's minted-debt scalar.
func (s *AccountingStore) AddDebt(user string, amount sdkmath.Int) {
	p := s.ensure(user)
	p.debt = p.debt.Add(amount)
}

// SubDebt decreases user's minted-debt scalar. Fails without mutating if the
// debt would go negative.
func (s *AccountingStore) SubDebt(user string, amount sdkmath.Int) error {
	current := s.Debt(user)
	if current.LT(amount) {
		return fmt.Errorf("%w: %s owes %s, burning %s",
			ErrInsufficientDebt, user, current, amount)
	}
	s.ensure(user).debt = current.Sub(amount)
	return nil
}

// TotalDebt sums every user's debt. The stable token's total supply must
// equal this at all times; debt and collateral are tracked independently per
// user, never pooled.
func (s *AccountingStore) TotalDebt() sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, p := range s.positions {
		total = total.Add(p.debt)
	}
	return total
}

// Users returns every account the store has seen, sorted for determinism.
func (s *AccountingStore) Users() []string {
	users := make([]string, 0, len(s.positions))
	for user := range s.positions {
		users = append(users, user)
	}
	sort.Strings(users)
	return users
}
