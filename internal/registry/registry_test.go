package registry

import (
	"context"
	"errors"
	"testing"

	"escrow-service/internal/domain"
	"escrow-service/internal/escrow"
	"escrow-service/internal/events"
	"escrow-service/internal/transfer"

	"go.uber.org/zap"
)

func newInstance(t *testing.T, serviceID uint64) *escrow.Escrow {
	t.Helper()
	esc, err := escrow.New(escrow.Config{
		ServiceID:    serviceID,
		FulfillerRef: "biller-1",
		Fee:          2,
		Roles: domain.Roles{
			Router:      "router-1",
			Manager:     "manager-1",
			Beneficiary: "bene-1",
		},
	}, transfer.NewMemory(), events.NewBus(zap.NewNop()), zap.NewNop())
	if err != nil {
		t.Fatalf("escrow.New: %v", err)
	}
	return esc
}

func TestResolveUnknownService(t *testing.T) {
	reg := New()
	if _, err := reg.Resolve(12); !errors.Is(err, domain.ErrServiceNotFound) {
		t.Fatalf("unknown service: %v", err)
	}
	if _, err := reg.Resolve(0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("zero service id: %v", err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := New()
	if err := reg.Register(newInstance(t, 3)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(newInstance(t, 3)); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("duplicate registration: %v", err)
	}
}

func TestManagerForwardsToInstance(t *testing.T) {
	reg := New()
	if err := reg.Register(newInstance(t, 3)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	mgr := NewManager(reg, zap.NewNop())
	ctx := context.Background()

	recordID, err := mgr.Deposit(ctx, 3, "router-1", domain.DepositRequest{
		Payer: "payer-1", Amount: 10, Transferred: 12,
	})
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if recordID != 1 {
		t.Fatalf("record id = %d, want 1", recordID)
	}
	balance, refund, err := mgr.DepositsOf(3, "payer-1")
	if err != nil || balance != 12 || refund != 0 {
		t.Fatalf("DepositsOf = %d, %d, %v", balance, refund, err)
	}

	if _, err := mgr.Deposit(ctx, 9, "router-1", domain.DepositRequest{
		Payer: "payer-1", Amount: 10, Transferred: 12,
	}); !errors.Is(err, domain.ErrServiceNotFound) {
		t.Fatalf("deposit to unknown service: %v", err)
	}
}
