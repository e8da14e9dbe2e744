// Package ledger is the native-unit account ledger standing in for the outer
// runtime's value transfers. Mint fee settlement (forward to admin, refund to
// caller) runs through it, always after issuance state has been committed.
package ledger

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"zoopr/internal/sentinel"
)

// Ledger tracks account balances in wei-scale integers.
type Ledger struct {
	mu       sync.RWMutex
	balances map[common.Address]*big.Int
}

func New() *Ledger {
	return &Ledger{balances: make(map[common.Address]*big.Int)}
}

// Balance returns the current balance of an account. Unknown accounts are zero.
func (l *Ledger) Balance(account common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Deposit credits an account. Used to fund accounts at deployment and in tests.
func (l *Ledger) Deposit(account common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("deposit amount must be non-negative: %w", sentinel.ErrInvalidInput)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(account, amount)
	return nil
}

// Transfer moves amount from one account to another. Fails without side
// effects if the source balance is insufficient.
func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("transfer amount must be non-negative: %w", sentinel.ErrInvalidInput)
	}
	if amount.Sign() == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("transfer %s from %s: %w", amount, from.Hex(), sentinel.ErrInsufficientFunds)
	}

	bal.Sub(bal, amount)
	l.credit(to, amount)
	return nil
}

func (l *Ledger) credit(account common.Address, amount *big.Int) {
	if b, ok := l.balances[account]; ok {
		b.Add(b, amount)
		return
	}
	l.balances[account] = new(big.Int).Set(amount)
}
