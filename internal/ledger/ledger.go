// internal/ledger/ledger.go
package ledger

import (
	"math"

	"escrow-service/internal/domain"
)

// Ledger holds the per-payer balances, per-payer authorized refunds and
// the releasable pool of a single escrow instance. Every mutation is
// overflow-checked and verify-then-commit: a failed operation leaves the
// ledger untouched. The owning escrow instance serializes access, the
// ledger itself carries no lock.
//
// Invariant: sum(balances) + sum(authorizedRefunds) + releasablePool
// equals total deposited minus total withdrawn at every observation
// point.
type Ledger struct {
	balances          map[string]uint64
	authorizedRefunds map[string]uint64
	releasablePool    uint64
}

func New() *Ledger {
	return &Ledger{
		balances:          make(map[string]uint64),
		authorizedRefunds: make(map[string]uint64),
	}
}

func (l *Ledger) BalanceOf(payer string) uint64 {
	return l.balances[payer]
}

func (l *Ledger) RefundBalanceOf(payer string) uint64 {
	return l.authorizedRefunds[payer]
}

func (l *Ledger) ReleasablePool() uint64 {
	return l.releasablePool
}

// TotalHeld sums everything the ledger is custodian of. Used by the
// conservation checks in tests and the instance summary.
func (l *Ledger) TotalHeld() uint64 {
	var total uint64
	for _, v := range l.balances {
		total += v
	}
	for _, v := range l.authorizedRefunds {
		total += v
	}
	return total + l.releasablePool
}

// Credit adds a deposit to the payer's live balance.
func (l *Ledger) Credit(payer string, amount uint64) error {
	next, err := AddChecked(l.balances[payer], amount)
	if err != nil {
		return err
	}
	l.balances[payer] = next
	return nil
}

// MoveToPool moves amount from the payer's live balance into the
// releasable pool. Both sides are checked before either is written.
func (l *Ledger) MoveToPool(payer string, amount uint64) error {
	pool, err := AddChecked(l.releasablePool, amount)
	if err != nil {
		return err
	}
	bal := l.balances[payer]
	if bal < amount {
		return domain.ErrInsufficientEscrowBalance
	}
	l.releasablePool = pool
	l.balances[payer] = bal - amount
	return nil
}

// AuthorizeRefund earmarks amount of the payer's live balance for refund.
// The cumulative check (balance covers the new refund total, not just
// this amount) guards against authorizing more refund than was ever
// escrowed even when each authorization is individually affordable.
func (l *Ledger) AuthorizeRefund(payer string, amount uint64) error {
	refundTotal, err := AddChecked(l.authorizedRefunds[payer], amount)
	if err != nil {
		return err
	}
	bal := l.balances[payer]
	if bal < amount {
		return domain.ErrEscrowBalanceExceeded
	}
	if bal < refundTotal {
		return domain.ErrEscrowBalanceExceeded
	}
	l.balances[payer] = bal - amount
	l.authorizedRefunds[payer] = refundTotal
	return nil
}

// TakeRefund zeroes the payer's authorized refund and returns the amount
// that was held. The caller pays it out and calls RestoreRefund if the
// payout fails.
func (l *Ledger) TakeRefund(payer string) (uint64, error) {
	amount := l.authorizedRefunds[payer]
	if amount == 0 {
		return 0, domain.ErrNoRefundAuthorized
	}
	l.authorizedRefunds[payer] = 0
	return amount, nil
}

// RestoreRefund reinstates a refund taken by TakeRefund after a failed
// transfer. Cannot overflow: the amount was just removed from the same
// entry.
func (l *Ledger) RestoreRefund(payer string, amount uint64) {
	l.authorizedRefunds[payer] += amount
}

// TakePool zeroes the releasable pool and returns the captured amount.
func (l *Ledger) TakePool() (uint64, error) {
	amount := l.releasablePool
	if amount == 0 {
		return 0, domain.ErrNothingToRelease
	}
	l.releasablePool = 0
	return amount, nil
}

// RestorePool reinstates the pool after a failed beneficiary transfer.
func (l *Ledger) RestorePool(amount uint64) {
	l.releasablePool += amount
}

// AddChecked returns a+b or ErrArithmeticOverflow if the sum would wrap.
func AddChecked(a, b uint64) (uint64, error) {
	if b > math.MaxUint64-a {
		return 0, domain.ErrArithmeticOverflow
	}
	return a + b, nil
}
