// internal/escrow/accessors.go
package escrow

import "escrow-service/internal/domain"

// Summary is the read-side snapshot of one escrow instance.
type Summary struct {
	ServiceID      uint64 `json:"service_id"`
	FulfillerRef   string `json:"fulfiller_ref"`
	Beneficiary    string `json:"beneficiary"`
	Fee            uint64 `json:"fee"`
	ReleasablePool uint64 `json:"releasable_pool"`
	TotalHeld      uint64 `json:"total_held"`
}

func (e *Escrow) ServiceID() uint64 {
	return e.serviceID
}

func (e *Escrow) Fulfiller() string {
	return e.fulfillerRef
}

func (e *Escrow) Beneficiary() string {
	return e.roles.Beneficiary
}

func (e *Escrow) Fee() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fee
}

// DepositsOf returns the payer's live escrow balance: funds deposited and
// not yet moved to the releasable pool or an authorized refund.
func (e *Escrow) DepositsOf(payer string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.BalanceOf(payer)
}

// RefundBalanceOf returns the payer's authorized-refund balance.
func (e *Escrow) RefundBalanceOf(payer string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.RefundBalanceOf(payer)
}

func (e *Escrow) ReleasablePool() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.ReleasablePool()
}

// TotalHeld returns everything the instance is custodian of.
func (e *Escrow) TotalHeld() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.TotalHeld()
}

// Record returns a copy of one fulfillment record.
func (e *Escrow) Record(id uint64) (domain.FulfillmentRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records.get(id)
	if !ok {
		return domain.FulfillmentRecord{}, domain.ErrRecordNotFound
	}
	return *rec, nil
}

// RecordsOf returns copies of the payer's records in creation order.
func (e *Escrow) RecordsOf(payer string) []domain.FulfillmentRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.records.byPayer(payer)
}

func (e *Escrow) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Summary{
		ServiceID:      e.serviceID,
		FulfillerRef:   e.fulfillerRef,
		Beneficiary:    e.roles.Beneficiary,
		Fee:            e.fee,
		ReleasablePool: e.ledger.ReleasablePool(),
		TotalHeld:      e.ledger.TotalHeld(),
	}
}
