// internal/domain/errors.go
package domain

import "errors"

// Escrow error taxonomy. Every rejected operation surfaces exactly one of
// these, so the coordinating manager can tell authorization problems from
// accounting problems from missing-record problems. None of them are
// retried internally; retry is caller policy.
var (
	ErrUnauthorized              = errors.New("unauthorized caller")
	ErrInvalidArgument           = errors.New("invalid argument")
	ErrArithmeticOverflow        = errors.New("arithmetic overflow")
	ErrInsufficientEscrowBalance = errors.New("insufficient escrow balance")
	ErrEscrowBalanceExceeded     = errors.New("escrow balance exceeded")
	ErrAlreadyFinalized          = errors.New("fulfillment already finalized")
	ErrRecordNotFound            = errors.New("fulfillment record not found")
	ErrNoRefundAuthorized        = errors.New("no refund authorized")
	ErrNothingToRelease          = errors.New("nothing to release")
	ErrInvalidStatus             = errors.New("invalid fulfillment status")
	ErrTransferFailed            = errors.New("fund transfer failed")
	ErrServiceNotFound           = errors.New("service not registered")
)
