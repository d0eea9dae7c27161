// internal/domain/escrow.go
package domain

import "time"

// FulfillmentStatus represents the lifecycle state of one deposit.
type FulfillmentStatus string

const (
	StatusPending FulfillmentStatus = "pending"
	StatusSuccess FulfillmentStatus = "success"
	StatusFailed  FulfillmentStatus = "failed"
)

// Terminal reports whether the status is one of the two end states a
// fulfiller may report. Anything else is rejected by the state machine.
func (s FulfillmentStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// FulfillmentRecord is the audit entry for one deposit. It is created by
// the deposit operation, mutated exactly once by fulfillment registration
// (status, receipt URI, external id) and never deleted. Ids start at 1
// and increase densely in creation order.
type FulfillmentRecord struct {
	ID                  uint64            `json:"id"`
	ServiceRef          string            `json:"service_ref"`
	ExternalID          string            `json:"external_id,omitempty"`
	FulfillerRef        string            `json:"fulfiller_ref"`
	Payer               string            `json:"payer"`
	DepositAmount       uint64            `json:"deposit_amount"`
	FeeAmountAtDeposit  uint64            `json:"fee_amount_at_deposit"`
	FiatAmountAtDeposit uint64            `json:"fiat_amount_at_deposit"`
	EntryTime           time.Time         `json:"entry_time"`
	ReceiptURI          string            `json:"receipt_uri,omitempty"`
	Status              FulfillmentStatus `json:"status"`
}

// DepositRequest is submitted by the router role. Amount is the stated
// deposit; Transferred is the value that actually moved with the call
// and must equal Amount plus the instance's current fee. Partial or
// excess transfers are never silently accepted.
type DepositRequest struct {
	Payer       string `json:"payer"`
	Amount      uint64 `json:"amount"`
	Transferred uint64 `json:"transferred"`
	ServiceRef  string `json:"service_ref"`
	FiatAmount  uint64 `json:"fiat_amount"`
}

// FulfillmentOutcome is submitted by the manager role to finalize a
// pending record. ReceiptURI and ExternalID are only meaningful on
// success.
type FulfillmentOutcome struct {
	RecordID   uint64            `json:"record_id"`
	Status     FulfillmentStatus `json:"status"`
	ReceiptURI string            `json:"receipt_uri,omitempty"`
	ExternalID string            `json:"external_id,omitempty"`
}

// Roles fixes the three caller identities of one escrow instance at
// construction time. Router may create deposits, manager drives
// fulfillment and withdrawals, beneficiary is the payout target of the
// releasable pool and never a caller.
type Roles struct {
	Router      string `json:"router"`
	Manager     string `json:"manager"`
	Beneficiary string `json:"beneficiary"`
}
