// internal/registry/manager.go
package registry

import (
	"context"

	"escrow-service/internal/domain"
	"escrow-service/internal/escrow"

	"go.uber.org/zap"
)

// Manager is the coordinating facade: it resolves the registry and
// forwards each call to the right escrow instance. All role checks stay
// inside the instances; the manager adds no authority of its own.
type Manager struct {
	registry *Registry
	logger   *zap.Logger
}

func NewManager(registry *Registry, logger *zap.Logger) *Manager {
	return &Manager{registry: registry, logger: logger}
}

func (m *Manager) Deposit(ctx context.Context, serviceID uint64, caller string, req domain.DepositRequest) (uint64, error) {
	esc, err := m.registry.Resolve(serviceID)
	if err != nil {
		return 0, err
	}
	return esc.Deposit(ctx, caller, req)
}

func (m *Manager) RegisterFulfillment(ctx context.Context, serviceID uint64, caller string, outcome domain.FulfillmentOutcome) error {
	esc, err := m.registry.Resolve(serviceID)
	if err != nil {
		return err
	}
	return esc.RegisterFulfillment(ctx, caller, outcome)
}

func (m *Manager) WithdrawRefund(ctx context.Context, serviceID uint64, caller, payee string) (uint64, error) {
	esc, err := m.registry.Resolve(serviceID)
	if err != nil {
		return 0, err
	}
	return esc.WithdrawRefund(ctx, caller, payee)
}

func (m *Manager) BeneficiaryWithdraw(ctx context.Context, serviceID uint64, caller string) (uint64, error) {
	esc, err := m.registry.Resolve(serviceID)
	if err != nil {
		return 0, err
	}
	return esc.BeneficiaryWithdraw(ctx, caller)
}

func (m *Manager) SetFee(ctx context.Context, serviceID uint64, caller string, amount uint64) error {
	esc, err := m.registry.Resolve(serviceID)
	if err != nil {
		return err
	}
	return esc.SetFee(ctx, caller, amount)
}

func (m *Manager) Record(serviceID, recordID uint64) (domain.FulfillmentRecord, error) {
	esc, err := m.registry.Resolve(serviceID)
	if err != nil {
		return domain.FulfillmentRecord{}, err
	}
	return esc.Record(recordID)
}

func (m *Manager) RecordsOf(serviceID uint64, payer string) ([]domain.FulfillmentRecord, error) {
	esc, err := m.registry.Resolve(serviceID)
	if err != nil {
		return nil, err
	}
	return esc.RecordsOf(payer), nil
}

// DepositsOf returns the payer's live balance and authorized refund.
func (m *Manager) DepositsOf(serviceID uint64, payer string) (balance, refund uint64, err error) {
	esc, err := m.registry.Resolve(serviceID)
	if err != nil {
		return 0, 0, err
	}
	return esc.DepositsOf(payer), esc.RefundBalanceOf(payer), nil
}

func (m *Manager) Summary(serviceID uint64) (escrow.Summary, error) {
	esc, err := m.registry.Resolve(serviceID)
	if err != nil {
		return escrow.Summary{}, err
	}
	return esc.Summary(), nil
}
