/*

This file contains the in-memory fungible-token ledger. It backs both the
stable token and the collateral assets in tests and simulation mode, and its
total supply is what the conservation property (sum of all debt equals minted
supply) is checked against.

*/

package token

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrAmountNotPositive     = errors.New("token: amount must be positive")
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrNotMinter             = errors.New("token: caller is not the authorized minter")
)

// Ledger is a minimal fungible-token ledger: balances, allowances, and an
// optional single authorized minter. It implements both StableToken and
// CollateralAsset.
type Ledger struct {
	mu         sync.RWMutex
	denom      string
	minter     string // empty means minting is disabled entirely
	balances   map[string]sdkmath.Int
	allowances map[string]map[string]sdkmath.Int // owner -> spender -> amount
	supply     sdkmath.Int
}

// NewLedger builds an empty ledger for denom. minter is the only account
// allowed to mint or burn; pass "" for a fixed-supply collateral ledger.
func NewLedger(denom, minter string) *Ledger {
	return &Ledger{
		denom:      denom,
		minter:     minter,
		balances:   make(map[string]sdkmath.Int),
		allowances: make(map[string]map[string]sdkmath.Int),
		supply:     sdkmath.ZeroInt(),
	}
}

// Denom returns the ledger's asset identifier.
func (l *Ledger) Denom() string { return l.denom }

// Mint implements StableToken.
func (l *Ledger) Mint(caller, to string, amount sdkmath.Int) error {
	if !amount.IsPositive() {
		return ErrAmountNotPositive
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.minter == "" || caller != l.minter {
		return fmt.Errorf("%w: %s", ErrNotMinter, caller)
	}
	l.balances[to] = l.balanceLocked(to).Add(amount)
	l.supply = l.supply.Add(amount)
	return nil
}

// Burn implements StableToken.
func (l *Ledger) Burn(caller, from string, amount sdkmath.Int) error {
	if !amount.IsPositive() {
		return ErrAmountNotPositive
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.minter == "" || caller != l.minter {
		return fmt.Errorf("%w: %s", ErrNotMinter, caller)
	}
	balance := l.balanceLocked(from)
	if balance.LT(amount) {
		return fmt.Errorf("%w: %s has %s %s, burning %s", ErrInsufficientBalance,
			from, balance, l.denom, amount)
	}
	l.balances[from] = balance.Sub(amount)
	l.supply = l.supply.Sub(amount)
	return nil
}

// Approve grants spender the right to move up to amount from owner's balance.
func (l *Ledger) Approve(owner, spender string, amount sdkmath.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[string]sdkmath.Int)
	}
	l.allowances[owner][spender] = amount
}

// TransferFrom spends allowance to move amount from from to to.
func (l *Ledger) TransferFrom(spender, from, to string, amount sdkmath.Int) error {
	if !amount.IsPositive() {
		return ErrAmountNotPositive
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if spender != from {
		allowance := sdkmath.ZeroInt()
		if inner := l.allowances[from]; inner != nil {
			if a, ok := inner[spender]; ok {
				allowance = a
			}
		}
		if allowance.LT(amount) {
			return fmt.Errorf("%w: %s allowed %s %s, moving %s", ErrInsufficientAllowance,
				spender, allowance, l.denom, amount)
		}
		l.allowances[from][spender] = allowance.Sub(amount)
	}
	return l.moveLocked(from, to, amount)
}

// Transfer moves amount from from to to.
func (l *Ledger) Transfer(from, to string, amount sdkmath.Int) error {
	if !amount.IsPositive() {
		return ErrAmountNotPositive
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.moveLocked(from, to, amount)
}

// BalanceOf returns holder's balance, zero for unknown accounts.
func (l *Ledger) BalanceOf(holder string) sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceLocked(holder)
}

// TotalSupply returns the minted-and-not-burned supply.
func (l *Ledger) TotalSupply() sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply
}

// SetBalance seeds a balance directly, bypassing supply accounting. Test and
// simulation bootstrap only.
func (l *Ledger) SetBalance(holder string, amount sdkmath.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[holder] = amount
}

func (l *Ledger) balanceLocked(holder string) sdkmath.Int {
	if b, ok := l.balances[holder]; ok {
		return b
	}
	return sdkmath.ZeroInt()
}

func (l *Ledger) moveLocked(from, to string, amount sdkmath.Int) error {
	balance := l.balanceLocked(from)
	if balance.LT(amount) {
		return fmt.Errorf("%w: %s has %s %s, moving %s", ErrInsufficientBalance,
			from, balance, l.denom, amount)
	}
	l.balances[from] = balance.Sub(amount)
	l.balances[to] = l.balanceLocked(to).Add(amount)
	return nil
}
