// internal/domain/events.go
package domain

import "time"

// EventType identifies one kind of escrow state transition.
type EventType string

const (
	EventDepositReceived       EventType = "deposit_received"
	EventFulfillmentRegistered EventType = "fulfillment_registered"
	EventRefundAuthorized      EventType = "refund_authorized"
	EventRefundWithdrawn       EventType = "refund_withdrawn"
	EventPoolWithdrawn         EventType = "pool_withdrawn"
	EventFeeUpdated            EventType = "fee_updated"
)

// Event is one entry in the append-only transition log of an escrow
// instance. Record carries the full fulfillment record where the
// transition created or finalized one.
type Event struct {
	ID         string             `json:"id"`
	Type       EventType          `json:"type"`
	ServiceID  uint64             `json:"service_id"`
	Payer      string             `json:"payer,omitempty"`
	Amount     uint64             `json:"amount,omitempty"`
	RecordID   uint64             `json:"record_id,omitempty"`
	Record     *FulfillmentRecord `json:"record,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}
