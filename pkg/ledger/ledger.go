// Package ledger holds exact-decimal balances for items and currencies.
//
// All arithmetic goes through shopspring/decimal so repeated credits and
// debits never drift the way float64 sums do.
package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientBalance is returned when a debit would leave a negative amount.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount is returned for zero or negative credit/debit amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Ledger maps an item or currency name to its exact quantity.
type Ledger map[string]decimal.Decimal

// Balance returns the amount held under key, zero when absent.
func (l Ledger) Balance(key string) decimal.Decimal {
	if l == nil {
		return decimal.Zero
	}
	if v, ok := l[key]; ok {
		return v
	}
	return decimal.Zero
}

// Has reports whether key holds a positive amount.
func (l Ledger) Has(key string) bool {
	return l.Balance(key).IsPositive()
}

// Credit adds amount to key. A missing key starts at zero.
func (l Ledger) Credit(key string, amount decimal.Decimal) error {
	if l == nil {
		return errors.New("ledger is nil")
	}
	if !amount.IsPositive() {
		return fmt.Errorf("credit %s: %w", key, ErrInvalidAmount)
	}
	l[key] = Add(l.Balance(key), amount)
	return nil
}

// Debit subtracts amount from key. The ledger is left untouched on error.
func (l Ledger) Debit(key string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("debit %s: %w", key, ErrInvalidAmount)
	}
	next, err := Sub(l.Balance(key), amount)
	if err != nil {
		return fmt.Errorf("debit %s: %w", key, err)
	}
	l[key] = next
	return nil
}

// Clone returns an independent copy. decimal.Decimal values are immutable,
// so copying the map is enough.
func (l Ledger) Clone() Ledger {
	if l == nil {
		return nil
	}
	out := make(Ledger, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Keys returns the ledger keys in sorted order.
func (l Ledger) Keys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Negative returns the first key (in sorted order) holding a negative amount.
func (l Ledger) Negative() (string, bool) {
	for _, k := range l.Keys() {
		if l[k].IsNegative() {
			return k, true
		}
	}
	return "", false
}

// Add returns cur + amount.
func Add(cur, amount decimal.Decimal) decimal.Decimal {
	return cur.Add(amount)
}

// Sub returns cur - amount, failing when the result would be negative.
func Sub(cur, amount decimal.Decimal) (decimal.Decimal, error) {
	next := cur.Sub(amount)
	if next.IsNegative() {
		return cur, ErrInsufficientBalance
	}
	return next, nil
}
