package ledger

import (
	"errors"
	"math"
	"testing"

	"escrow-service/internal/domain"
)

func TestCreditOverflowLeavesBalanceUnchanged(t *testing.T) {
	l := New()
	if err := l.Credit("alice", math.MaxUint64-10); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	err := l.Credit("alice", 11)
	if !errors.Is(err, domain.ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if got := l.BalanceOf("alice"); got != math.MaxUint64-10 {
		t.Fatalf("balance mutated on failed credit: %d", got)
	}
}

func TestAuthorizeRefundCumulativeGuard(t *testing.T) {
	l := New()
	if err := l.Credit("bob", 100); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := l.AuthorizeRefund("bob", 60); err != nil {
		t.Fatalf("first authorize: %v", err)
	}
	// Remaining balance is 40; a second 60 must fail even though 60 was
	// affordable in isolation against the original deposit.
	err := l.AuthorizeRefund("bob", 60)
	if !errors.Is(err, domain.ErrEscrowBalanceExceeded) {
		t.Fatalf("expected balance exceeded, got %v", err)
	}
	if l.BalanceOf("bob") != 40 || l.RefundBalanceOf("bob") != 60 {
		t.Fatalf("failed authorize mutated ledger: balance=%d refund=%d",
			l.BalanceOf("bob"), l.RefundBalanceOf("bob"))
	}
}

func TestTakeRefundExactlyOnce(t *testing.T) {
	l := New()
	if err := l.Credit("carol", 105); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := l.AuthorizeRefund("carol", 105); err != nil {
		t.Fatalf("AuthorizeRefund: %v", err)
	}
	amount, err := l.TakeRefund("carol")
	if err != nil || amount != 105 {
		t.Fatalf("TakeRefund = %d, %v", amount, err)
	}
	if _, err := l.TakeRefund("carol"); !errors.Is(err, domain.ErrNoRefundAuthorized) {
		t.Fatalf("second take should fail, got %v", err)
	}
}

func TestMoveToPoolInsufficientBalance(t *testing.T) {
	l := New()
	if err := l.Credit("dave", 50); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	err := l.MoveToPool("dave", 51)
	if !errors.Is(err, domain.ErrInsufficientEscrowBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if l.BalanceOf("dave") != 50 || l.ReleasablePool() != 0 {
		t.Fatalf("failed move mutated ledger")
	}
	if err := l.MoveToPool("dave", 50); err != nil {
		t.Fatalf("MoveToPool: %v", err)
	}
	if l.ReleasablePool() != 50 {
		t.Fatalf("pool = %d, want 50", l.ReleasablePool())
	}
}

func TestConservationAcrossOperations(t *testing.T) {
	l := New()
	deposited := uint64(0)
	for _, amt := range []uint64{100, 250, 7} {
		if err := l.Credit("eve", amt); err != nil {
			t.Fatalf("Credit: %v", err)
		}
		deposited += amt
	}
	if err := l.AuthorizeRefund("eve", 100); err != nil {
		t.Fatalf("AuthorizeRefund: %v", err)
	}
	if err := l.MoveToPool("eve", 250); err != nil {
		t.Fatalf("MoveToPool: %v", err)
	}
	if l.TotalHeld() != deposited {
		t.Fatalf("conservation broken: held=%d deposited=%d", l.TotalHeld(), deposited)
	}
	amount, err := l.TakeRefund("eve")
	if err != nil {
		t.Fatalf("TakeRefund: %v", err)
	}
	if l.TotalHeld() != deposited-amount {
		t.Fatalf("conservation broken after withdrawal: held=%d want=%d",
			l.TotalHeld(), deposited-amount)
	}
}
