package escrow

import (
	"context"
	"errors"
	"math"
	"testing"

	"escrow-service/internal/domain"
	"escrow-service/internal/events"
	"escrow-service/internal/transfer"

	"go.uber.org/zap"
)

const (
	routerID      = "router-1"
	managerID     = "manager-1"
	beneficiaryID = "treasury-wallet"
)

func newTestEscrow(t *testing.T, fee uint64) (*Escrow, *transfer.Memory, *events.Bus) {
	t.Helper()
	payouts := transfer.NewMemory()
	bus := events.NewBus(zap.NewNop())
	esc, err := New(Config{
		ServiceID:    7,
		FulfillerRef: "biller-ke-001",
		Fee:          fee,
		Roles: domain.Roles{
			Router:      routerID,
			Manager:     managerID,
			Beneficiary: beneficiaryID,
		},
	}, payouts, bus, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return esc, payouts, bus
}

func deposit(t *testing.T, esc *Escrow, payer string, amount, fee uint64) {
	t.Helper()
	_, err := esc.Deposit(context.Background(), routerID, domain.DepositRequest{
		Payer:       payer,
		Amount:      amount,
		Transferred: amount + fee,
		ServiceRef:  "bill-42",
		FiatAmount:  amount,
	})
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
}

func TestFailedFulfillmentRefundFlow(t *testing.T) {
	esc, payouts, _ := newTestEscrow(t, 5)
	ctx := context.Background()

	deposit(t, esc, "payer-1", 100, 5)
	rec, err := esc.Record(1)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.Status != domain.StatusPending || rec.FeeAmountAtDeposit != 5 {
		t.Fatalf("record 1 = %+v", rec)
	}
	if got := esc.DepositsOf("payer-1"); got != 105 {
		t.Fatalf("balance after deposit = %d, want 105", got)
	}

	err = esc.RegisterFulfillment(ctx, managerID, domain.FulfillmentOutcome{
		RecordID: 1,
		Status:   domain.StatusFailed,
	})
	if err != nil {
		t.Fatalf("RegisterFulfillment: %v", err)
	}
	if esc.DepositsOf("payer-1") != 0 {
		t.Fatalf("balance after failure = %d, want 0", esc.DepositsOf("payer-1"))
	}
	if esc.RefundBalanceOf("payer-1") != 105 {
		t.Fatalf("authorized refund = %d, want 105", esc.RefundBalanceOf("payer-1"))
	}
	rec, _ = esc.Record(1)
	if rec.Status != domain.StatusFailed {
		t.Fatalf("record status = %s, want failed", rec.Status)
	}

	paid, err := esc.WithdrawRefund(ctx, managerID, "payer-1")
	if err != nil {
		t.Fatalf("WithdrawRefund: %v", err)
	}
	if paid != 105 {
		t.Fatalf("paid = %d, want 105", paid)
	}
	if esc.RefundBalanceOf("payer-1") != 0 {
		t.Fatalf("refund not zeroed after withdrawal")
	}
	if payouts.PaidTo("payer-1") != 105 {
		t.Fatalf("paid = %d, want 105", payouts.PaidTo("payer-1"))
	}

	// After a successful withdrawal of A, a second withdrawal must fail
	// and change nothing.
	_, err = esc.WithdrawRefund(ctx, managerID, "payer-1")
	if !errors.Is(err, domain.ErrNoRefundAuthorized) {
		t.Fatalf("second withdrawal: %v", err)
	}
	if payouts.PaidTo("payer-1") != 105 {
		t.Fatalf("second withdrawal moved funds")
	}
}

func TestSuccessfulFulfillmentReleaseFlow(t *testing.T) {
	esc, payouts, _ := newTestEscrow(t, 5)
	ctx := context.Background()

	deposit(t, esc, "payer-1", 100, 5)
	err := esc.RegisterFulfillment(ctx, managerID, domain.FulfillmentOutcome{
		RecordID:   1,
		Status:     domain.StatusSuccess,
		ReceiptURI: "https://receipts.example/r1",
		ExternalID: "ext-777",
	})
	if err != nil {
		t.Fatalf("RegisterFulfillment: %v", err)
	}
	if esc.DepositsOf("payer-1") != 0 {
		t.Fatalf("balance after success = %d, want 0", esc.DepositsOf("payer-1"))
	}
	if esc.ReleasablePool() != 105 {
		t.Fatalf("releasable pool = %d, want 105", esc.ReleasablePool())
	}
	rec, _ := esc.Record(1)
	if rec.ReceiptURI != "https://receipts.example/r1" || rec.ExternalID != "ext-777" {
		t.Fatalf("receipt fields not stored: %+v", rec)
	}

	released, err := esc.BeneficiaryWithdraw(ctx, managerID)
	if err != nil {
		t.Fatalf("BeneficiaryWithdraw: %v", err)
	}
	if released != 105 {
		t.Fatalf("released = %d, want 105", released)
	}
	if esc.ReleasablePool() != 0 {
		t.Fatalf("pool not zeroed")
	}
	// The captured pre-zero amount is transferred, never the cleared pool.
	if payouts.PaidTo(beneficiaryID) != 105 {
		t.Fatalf("beneficiary paid %d, want 105", payouts.PaidTo(beneficiaryID))
	}

	_, err = esc.BeneficiaryWithdraw(ctx, managerID)
	if !errors.Is(err, domain.ErrNothingToRelease) {
		t.Fatalf("empty pool withdrawal: %v", err)
	}
}

func TestStatusTransitionsAtMostOnce(t *testing.T) {
	esc, _, _ := newTestEscrow(t, 0)
	ctx := context.Background()

	deposit(t, esc, "payer-1", 50, 0)
	if err := esc.RegisterFulfillment(ctx, managerID, domain.FulfillmentOutcome{
		RecordID: 1, Status: domain.StatusSuccess,
	}); err != nil {
		t.Fatalf("first registration: %v", err)
	}

	for _, status := range []domain.FulfillmentStatus{domain.StatusSuccess, domain.StatusFailed} {
		err := esc.RegisterFulfillment(ctx, managerID, domain.FulfillmentOutcome{
			RecordID: 1, Status: status,
		})
		if !errors.Is(err, domain.ErrAlreadyFinalized) {
			t.Fatalf("re-registration as %s: %v", status, err)
		}
	}
	if esc.ReleasablePool() != 50 {
		t.Fatalf("re-registration mutated the pool")
	}
}

func TestRecordIDsDenseAcrossPayers(t *testing.T) {
	esc, _, _ := newTestEscrow(t, 0)

	for i, payer := range []string{"a", "b", "a", "c", "b"} {
		deposit(t, esc, payer, uint64(10*(i+1)), 0)
	}
	for id := uint64(1); id <= 5; id++ {
		if _, err := esc.Record(id); err != nil {
			t.Fatalf("record %d missing: %v", id, err)
		}
	}
	recs := esc.RecordsOf("a")
	if len(recs) != 2 || recs[0].ID != 1 || recs[1].ID != 3 {
		t.Fatalf("payer index wrong: %+v", recs)
	}
}

func TestUnauthorizedCallersMutateNothing(t *testing.T) {
	esc, _, _ := newTestEscrow(t, 5)
	ctx := context.Background()
	deposit(t, esc, "payer-1", 100, 5)

	if _, err := esc.Deposit(ctx, managerID, domain.DepositRequest{
		Payer: "payer-1", Amount: 10, Transferred: 15,
	}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("deposit by manager: %v", err)
	}
	if err := esc.RegisterFulfillment(ctx, routerID, domain.FulfillmentOutcome{
		RecordID: 1, Status: domain.StatusFailed,
	}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("registration by router: %v", err)
	}
	if _, err := esc.WithdrawRefund(ctx, routerID, "payer-1"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("refund withdrawal by router: %v", err)
	}
	if _, err := esc.BeneficiaryWithdraw(ctx, beneficiaryID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("pool withdrawal by beneficiary: %v", err)
	}
	if err := esc.SetFee(ctx, routerID, 9); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("fee change by router: %v", err)
	}

	if esc.DepositsOf("payer-1") != 105 || esc.TotalHeld() != 105 || esc.Fee() != 5 {
		t.Fatalf("unauthorized calls changed state")
	}
}

func TestFeeSnapshotNotRetroactive(t *testing.T) {
	esc, _, _ := newTestEscrow(t, 5)
	ctx := context.Background()

	deposit(t, esc, "payer-1", 100, 5)
	if err := esc.SetFee(ctx, managerID, 50); err != nil {
		t.Fatalf("SetFee: %v", err)
	}
	deposit(t, esc, "payer-2", 100, 50)

	rec1, _ := esc.Record(1)
	rec2, _ := esc.Record(2)
	if rec1.FeeAmountAtDeposit != 5 || rec2.FeeAmountAtDeposit != 50 {
		t.Fatalf("fee snapshots wrong: %d, %d", rec1.FeeAmountAtDeposit, rec2.FeeAmountAtDeposit)
	}

	// Record 1 still settles against its own snapshot.
	if err := esc.RegisterFulfillment(ctx, managerID, domain.FulfillmentOutcome{
		RecordID: 1, Status: domain.StatusFailed,
	}); err != nil {
		t.Fatalf("RegisterFulfillment: %v", err)
	}
	if esc.RefundBalanceOf("payer-1") != 105 {
		t.Fatalf("refund = %d, want 105", esc.RefundBalanceOf("payer-1"))
	}
}

func TestDepositOverflowProbe(t *testing.T) {
	esc, _, _ := newTestEscrow(t, 0)
	ctx := context.Background()

	deposit(t, esc, "payer-1", 100, 0)
	_, err := esc.Deposit(ctx, routerID, domain.DepositRequest{
		Payer:       "payer-1",
		Amount:      math.MaxUint64 - 50,
		Transferred: math.MaxUint64 - 50,
	})
	if !errors.Is(err, domain.ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if esc.DepositsOf("payer-1") != 100 {
		t.Fatalf("balance mutated on failed deposit: %d", esc.DepositsOf("payer-1"))
	}
	if _, err := esc.Record(2); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("failed deposit created a record")
	}
}

func TestDepositTransferMismatchRejected(t *testing.T) {
	esc, _, _ := newTestEscrow(t, 5)
	ctx := context.Background()

	_, err := esc.Deposit(ctx, routerID, domain.DepositRequest{
		Payer:       "payer-1",
		Amount:      100,
		Transferred: 100, // fee missing
	})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if esc.TotalHeld() != 0 {
		t.Fatalf("mismatched deposit credited funds")
	}
}

func TestRegisterUnknownAndInvalidStatus(t *testing.T) {
	esc, _, _ := newTestEscrow(t, 0)
	ctx := context.Background()

	err := esc.RegisterFulfillment(ctx, managerID, domain.FulfillmentOutcome{
		RecordID: 99, Status: domain.StatusSuccess,
	})
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("unknown record: %v", err)
	}
	err = esc.RegisterFulfillment(ctx, managerID, domain.FulfillmentOutcome{
		RecordID: 0, Status: domain.StatusSuccess,
	})
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("record id zero: %v", err)
	}

	deposit(t, esc, "payer-1", 10, 0)
	err = esc.RegisterFulfillment(ctx, managerID, domain.FulfillmentOutcome{
		RecordID: 1, Status: domain.FulfillmentStatus("settled"),
	})
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("garbage status: %v", err)
	}
	rec, _ := esc.Record(1)
	if rec.Status != domain.StatusPending {
		t.Fatalf("garbage status mutated the record")
	}
}

func TestTransferFailureRollsBack(t *testing.T) {
	esc, payouts, _ := newTestEscrow(t, 5)
	ctx := context.Background()

	deposit(t, esc, "payer-1", 100, 5)
	if err := esc.RegisterFulfillment(ctx, managerID, domain.FulfillmentOutcome{
		RecordID: 1, Status: domain.StatusFailed,
	}); err != nil {
		t.Fatalf("RegisterFulfillment: %v", err)
	}

	payouts.FailNext(errors.New("rail timeout"))
	_, err := esc.WithdrawRefund(ctx, managerID, "payer-1")
	if !errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("expected transfer failure, got %v", err)
	}
	if esc.RefundBalanceOf("payer-1") != 105 {
		t.Fatalf("refund not restored after failed transfer: %d", esc.RefundBalanceOf("payer-1"))
	}

	// Retry succeeds and pays exactly once.
	if _, err := esc.WithdrawRefund(ctx, managerID, "payer-1"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if payouts.PaidTo("payer-1") != 105 {
		t.Fatalf("paid %d, want 105", payouts.PaidTo("payer-1"))
	}
}

func TestBeneficiaryTransferFailureRestoresPool(t *testing.T) {
	esc, payouts, _ := newTestEscrow(t, 0)
	ctx := context.Background()

	deposit(t, esc, "payer-1", 80, 0)
	if err := esc.RegisterFulfillment(ctx, managerID, domain.FulfillmentOutcome{
		RecordID: 1, Status: domain.StatusSuccess,
	}); err != nil {
		t.Fatalf("RegisterFulfillment: %v", err)
	}

	payouts.FailNext(errors.New("rail down"))
	_, err := esc.BeneficiaryWithdraw(ctx, managerID)
	if !errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("expected transfer failure, got %v", err)
	}
	if esc.ReleasablePool() != 80 {
		t.Fatalf("pool not restored: %d", esc.ReleasablePool())
	}
}

func TestConservationInvariant(t *testing.T) {
	esc, payouts, _ := newTestEscrow(t, 5)
	ctx := context.Background()

	deposited := uint64(0)
	for _, amt := range []uint64{100, 40, 250} {
		deposit(t, esc, "payer-1", amt, 5)
		deposited += amt + 5
		if esc.TotalHeld() != deposited {
			t.Fatalf("conservation broken after deposit: held=%d want=%d", esc.TotalHeld(), deposited)
		}
	}

	if err := esc.RegisterFulfillment(ctx, managerID, domain.FulfillmentOutcome{RecordID: 1, Status: domain.StatusFailed}); err != nil {
		t.Fatalf("RegisterFulfillment: %v", err)
	}
	if err := esc.RegisterFulfillment(ctx, managerID, domain.FulfillmentOutcome{RecordID: 2, Status: domain.StatusSuccess}); err != nil {
		t.Fatalf("RegisterFulfillment: %v", err)
	}
	if esc.TotalHeld() != deposited {
		t.Fatalf("registration changed total held: %d want %d", esc.TotalHeld(), deposited)
	}

	if _, err := esc.WithdrawRefund(ctx, managerID, "payer-1"); err != nil {
		t.Fatalf("WithdrawRefund: %v", err)
	}
	if _, err := esc.BeneficiaryWithdraw(ctx, managerID); err != nil {
		t.Fatalf("BeneficiaryWithdraw: %v", err)
	}

	withdrawn := payouts.PaidTo("payer-1") + payouts.PaidTo(beneficiaryID)
	if esc.TotalHeld() != deposited-withdrawn {
		t.Fatalf("conservation broken after withdrawals: held=%d deposited=%d withdrawn=%d",
			esc.TotalHeld(), deposited, withdrawn)
	}
}

func TestDepositEventCarriesRecord(t *testing.T) {
	esc, _, bus := newTestEscrow(t, 5)

	deposit(t, esc, "payer-1", 100, 5)
	evts := bus.Events()
	if len(evts) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evts))
	}
	evt := evts[0]
	if evt.Type != domain.EventDepositReceived || evt.ServiceID != 7 {
		t.Fatalf("event = %+v", evt)
	}
	if evt.Record == nil || evt.Record.ID != 1 || evt.Record.DepositAmount != 100 {
		t.Fatalf("deposit event missing record: %+v", evt.Record)
	}
	if evt.ID == "" || evt.OccurredAt.IsZero() {
		t.Fatalf("event not stamped: %+v", evt)
	}
}
