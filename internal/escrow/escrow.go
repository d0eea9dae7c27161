// internal/escrow/escrow.go
package escrow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"escrow-service/internal/domain"
	"escrow-service/internal/events"
	"escrow-service/internal/ledger"
	"escrow-service/internal/transfer"

	"go.uber.org/zap"
)

// Config fixes one escrow instance at construction time. ServiceID must
// be positive; the three role identities must be set. Fee is the only
// field the manager can change afterwards.
type Config struct {
	ServiceID    uint64
	FulfillerRef string
	Fee          uint64
	Roles        domain.Roles
}

// Escrow is the custodial ledger and fulfillment state machine for a
// single service identifier. Every mutating operation runs to completion
// under one mutex, so no partial effects are ever observable and
// different escrow instances never block each other.
type Escrow struct {
	mu sync.Mutex

	serviceID    uint64
	fulfillerRef string
	roles        domain.Roles
	fee          uint64

	ledger  *ledger.Ledger
	records *recordStore

	transferer transfer.Transferer
	sink       events.Sink
	logger     *zap.Logger
}

func New(cfg Config, transferer transfer.Transferer, sink events.Sink, logger *zap.Logger) (*Escrow, error) {
	if cfg.ServiceID == 0 {
		return nil, fmt.Errorf("%w: service id must be positive", domain.ErrInvalidArgument)
	}
	if cfg.Roles.Router == "" || cfg.Roles.Manager == "" || cfg.Roles.Beneficiary == "" {
		return nil, fmt.Errorf("%w: router, manager and beneficiary identities are required", domain.ErrInvalidArgument)
	}
	return &Escrow{
		serviceID:    cfg.ServiceID,
		fulfillerRef: cfg.FulfillerRef,
		roles:        cfg.Roles,
		fee:          cfg.Fee,
		ledger:       ledger.New(),
		records:      newRecordStore(),
		transferer:   transferer,
		sink:         sink,
		logger:       logger,
	}, nil
}

func (e *Escrow) isRouter(caller string) bool {
	return caller == e.roles.Router
}

func (e *Escrow) isManager(caller string) bool {
	return caller == e.roles.Manager
}

// Deposit takes the payer's funds into custody and creates a PENDING
// fulfillment record with the current fee snapshotted in. Only the
// router role may call it. The value transferred with the call must
// equal the stated amount plus the current fee: the full obligation is
// escrowed up front, so a later refund or release of amount+fee never
// mints value. No partial or excess transfer is silently accepted.
// Returns the id of the created record.
func (e *Escrow) Deposit(ctx context.Context, caller string, req domain.DepositRequest) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isRouter(caller) {
		return 0, domain.ErrUnauthorized
	}
	if req.Payer == "" || req.Amount == 0 {
		return 0, fmt.Errorf("%w: payer and a positive amount are required", domain.ErrInvalidArgument)
	}

	total, err := ledger.AddChecked(req.Amount, e.fee)
	if err != nil {
		return 0, err
	}
	if req.Transferred != total {
		return 0, fmt.Errorf("%w: transferred value %d does not match amount %d plus fee %d",
			domain.ErrInvalidArgument, req.Transferred, req.Amount, e.fee)
	}

	if err := e.ledger.Credit(req.Payer, total); err != nil {
		return 0, err
	}

	rec := &domain.FulfillmentRecord{
		ID:                  e.records.nextID(),
		ServiceRef:          req.ServiceRef,
		FulfillerRef:        e.fulfillerRef,
		Payer:               req.Payer,
		DepositAmount:       req.Amount,
		FeeAmountAtDeposit:  e.fee,
		FiatAmountAtDeposit: req.FiatAmount,
		EntryTime:           time.Now().UTC(),
		Status:              domain.StatusPending,
	}
	e.records.append(rec)

	e.publish(domain.Event{
		Type:     domain.EventDepositReceived,
		Payer:    req.Payer,
		Amount:   total,
		RecordID: rec.ID,
		Record:   recordCopy(rec),
	})

	e.logger.Info("deposit received",
		zap.Uint64("service_id", e.serviceID),
		zap.Uint64("record_id", rec.ID),
		zap.String("payer", req.Payer),
		zap.Uint64("amount", req.Amount),
		zap.Uint64("fee_snapshot", rec.FeeAmountAtDeposit))
	return rec.ID, nil
}

// RegisterFulfillment finalizes a pending record. Only the manager role
// may call it. Preconditions run in order (record exists, record still
// pending, total does not overflow, balance covers total) and complete
// before any mutation begins; the balance check catches a fee raised
// after deposit beyond what was actually escrowed.
func (e *Escrow) RegisterFulfillment(ctx context.Context, caller string, outcome domain.FulfillmentOutcome) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isManager(caller) {
		return domain.ErrUnauthorized
	}

	rec, ok := e.records.get(outcome.RecordID)
	if !ok {
		return domain.ErrRecordNotFound
	}
	if rec.Status != domain.StatusPending {
		return domain.ErrAlreadyFinalized
	}

	total, err := ledger.AddChecked(rec.DepositAmount, rec.FeeAmountAtDeposit)
	if err != nil {
		return err
	}
	if e.ledger.BalanceOf(rec.Payer) < total {
		return domain.ErrInsufficientEscrowBalance
	}

	switch outcome.Status {
	case domain.StatusFailed:
		if err := e.ledger.AuthorizeRefund(rec.Payer, total); err != nil {
			return err
		}
		rec.Status = domain.StatusFailed
		e.publish(domain.Event{
			Type:     domain.EventRefundAuthorized,
			Payer:    rec.Payer,
			Amount:   total,
			RecordID: rec.ID,
		})
	case domain.StatusSuccess:
		if err := e.ledger.MoveToPool(rec.Payer, total); err != nil {
			return err
		}
		rec.Status = domain.StatusSuccess
		rec.ReceiptURI = outcome.ReceiptURI
		rec.ExternalID = outcome.ExternalID
	default:
		return domain.ErrInvalidStatus
	}

	e.publish(domain.Event{
		Type:     domain.EventFulfillmentRegistered,
		Payer:    rec.Payer,
		Amount:   total,
		RecordID: rec.ID,
		Record:   recordCopy(rec),
	})

	e.logger.Info("fulfillment registered",
		zap.Uint64("service_id", e.serviceID),
		zap.Uint64("record_id", rec.ID),
		zap.String("payer", rec.Payer),
		zap.String("status", string(rec.Status)),
		zap.Uint64("total", total))
	return nil
}

// WithdrawRefund pays the payee's authorized refund out through the
// transfer rail. Only the manager role may call it. The refund is zeroed
// before the external transfer runs (checks-effects-interactions); a
// transfer failure restores it under the same lock, so the net effect is
// all-or-nothing. Returns the amount paid out.
func (e *Escrow) WithdrawRefund(ctx context.Context, caller, payee string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isManager(caller) {
		return 0, domain.ErrUnauthorized
	}

	amount, err := e.ledger.TakeRefund(payee)
	if err != nil {
		return 0, err
	}

	if err := e.transferer.Transfer(ctx, payee, amount); err != nil {
		e.ledger.RestoreRefund(payee, amount)
		return 0, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}

	e.publish(domain.Event{
		Type:   domain.EventRefundWithdrawn,
		Payer:  payee,
		Amount: amount,
	})

	e.logger.Info("refund withdrawn",
		zap.Uint64("service_id", e.serviceID),
		zap.String("payee", payee),
		zap.Uint64("amount", amount))
	return amount, nil
}

// BeneficiaryWithdraw pays the releasable pool out to the beneficiary.
// Only the manager role may call it. The pool amount is captured before
// the pool is zeroed and the captured amount is what gets transferred.
// Returns the amount paid out.
func (e *Escrow) BeneficiaryWithdraw(ctx context.Context, caller string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isManager(caller) {
		return 0, domain.ErrUnauthorized
	}

	amount, err := e.ledger.TakePool()
	if err != nil {
		return 0, err
	}

	if err := e.transferer.Transfer(ctx, e.roles.Beneficiary, amount); err != nil {
		e.ledger.RestorePool(amount)
		return 0, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}

	e.publish(domain.Event{
		Type:   domain.EventPoolWithdrawn,
		Payer:  e.roles.Beneficiary,
		Amount: amount,
	})

	e.logger.Info("releasable pool withdrawn",
		zap.Uint64("service_id", e.serviceID),
		zap.String("beneficiary", e.roles.Beneficiary),
		zap.Uint64("amount", amount))
	return amount, nil
}

// SetFee replaces the fee amount. Only the manager role may call it.
// Takes effect for deposits made after the call; records already created
// keep their snapshot.
func (e *Escrow) SetFee(ctx context.Context, caller string, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isManager(caller) {
		return domain.ErrUnauthorized
	}

	e.fee = amount
	e.publish(domain.Event{
		Type:   domain.EventFeeUpdated,
		Amount: amount,
	})

	e.logger.Info("fee updated",
		zap.Uint64("service_id", e.serviceID),
		zap.Uint64("fee", amount))
	return nil
}

// publish stamps the instance id onto the event and hands it to the sink.
// Callers hold the mutex.
func (e *Escrow) publish(evt domain.Event) {
	evt.ServiceID = e.serviceID
	e.sink.Publish(evt)
}

func recordCopy(rec *domain.FulfillmentRecord) *domain.FulfillmentRecord {
	c := *rec
	return &c
}
