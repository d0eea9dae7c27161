// internal/transfer/transfer.go
package transfer

import (
	"context"
	"sync"
)

// Transferer moves funds out of escrow custody to an external payee.
// Implementations are atomic with respect to the caller: either the
// payout is accepted in full or an error is returned and no value moved.
type Transferer interface {
	Transfer(ctx context.Context, toAddress string, amount uint64) error
}

// Memory is an in-process transferer for tests and local runs. FailNext
// makes the next transfer fail with the given error.
type Memory struct {
	mu       sync.Mutex
	payouts  map[string]uint64
	failNext error
}

func NewMemory() *Memory {
	return &Memory{payouts: make(map[string]uint64)}
}

func (m *Memory) Transfer(_ context.Context, toAddress string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.payouts[toAddress] += amount
	return nil
}

func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// PaidTo returns the total amount delivered to an address.
func (m *Memory) PaidTo(toAddress string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payouts[toAddress]
}
