// internal/handler/escrow_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"escrow-service/internal/auth"
	"escrow-service/internal/domain"
	"escrow-service/internal/metrics"
	"escrow-service/internal/registry"
	"escrow-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// EscrowHandler exposes the escrow operations over HTTP. The caller
// identity comes from the auth middleware; role checks live in the
// escrow state machine, the handler only translates wire <-> domain.
type EscrowHandler struct {
	manager *registry.Manager
	logger  *zap.Logger
}

func NewEscrowHandler(manager *registry.Manager, logger *zap.Logger) *EscrowHandler {
	return &EscrowHandler{manager: manager, logger: logger}
}

type depositRequest struct {
	Payer       string `json:"payer"`
	Amount      uint64 `json:"amount"`
	Transferred uint64 `json:"transferred"`
	ServiceRef  string `json:"service_ref"`
	FiatAmount  uint64 `json:"fiat_amount"`
}

type fulfillmentRequest struct {
	RecordID   uint64 `json:"record_id"`
	Status     string `json:"status"`
	ReceiptURI string `json:"receipt_uri"`
	ExternalID string `json:"external_id"`
}

type feeRequest struct {
	Fee uint64 `json:"fee"`
}

// HandleDeposit accepts custody of transferred funds for a payer.
func (h *EscrowHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := h.serviceID(w, r)
	if !ok {
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	recordID, err := h.manager.Deposit(r.Context(), serviceID, auth.Caller(r.Context()), domain.DepositRequest{
		Payer:       req.Payer,
		Amount:      req.Amount,
		Transferred: req.Transferred,
		ServiceRef:  req.ServiceRef,
		FiatAmount:  req.FiatAmount,
	})
	if err != nil {
		h.writeError(w, "deposit", err)
		return
	}

	metrics.DepositsTotal.WithLabelValues(formatID(serviceID)).Inc()
	response.JSON(w, http.StatusCreated, map[string]interface{}{
		"record_id": recordID,
	})
}

// HandleRegisterFulfillment records the terminal outcome of a pending record.
func (h *EscrowHandler) HandleRegisterFulfillment(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := h.serviceID(w, r)
	if !ok {
		return
	}

	var req fulfillmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := domain.FulfillmentStatus(req.Status)
	err := h.manager.RegisterFulfillment(r.Context(), serviceID, auth.Caller(r.Context()), domain.FulfillmentOutcome{
		RecordID:   req.RecordID,
		Status:     status,
		ReceiptURI: req.ReceiptURI,
		ExternalID: req.ExternalID,
	})
	if err != nil {
		h.writeError(w, "register_fulfillment", err)
		return
	}

	metrics.FulfillmentsTotal.WithLabelValues(formatID(serviceID), string(status)).Inc()
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"record_id": req.RecordID,
		"status":    status,
	})
}

// HandleWithdrawRefund pays out the caller-named payer's authorized refund.
func (h *EscrowHandler) HandleWithdrawRefund(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := h.serviceID(w, r)
	if !ok {
		return
	}
	payer := chi.URLParam(r, "payer")

	amount, err := h.manager.WithdrawRefund(r.Context(), serviceID, auth.Caller(r.Context()), payer)
	if err != nil {
		h.writeError(w, "withdraw_refund", err)
		return
	}

	metrics.WithdrawalsTotal.WithLabelValues(formatID(serviceID), "refund").Inc()
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"payer":  payer,
		"amount": amount,
	})
}

// HandleBeneficiaryWithdraw drains the releasable pool to the beneficiary.
func (h *EscrowHandler) HandleBeneficiaryWithdraw(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := h.serviceID(w, r)
	if !ok {
		return
	}

	amount, err := h.manager.BeneficiaryWithdraw(r.Context(), serviceID, auth.Caller(r.Context()))
	if err != nil {
		h.writeError(w, "beneficiary_withdraw", err)
		return
	}

	metrics.WithdrawalsTotal.WithLabelValues(formatID(serviceID), "pool").Inc()
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"amount": amount,
	})
}

// HandleSetFee updates the fee applied to future deposits.
func (h *EscrowHandler) HandleSetFee(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := h.serviceID(w, r)
	if !ok {
		return
	}

	var req feeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.manager.SetFee(r.Context(), serviceID, auth.Caller(r.Context()), req.Fee); err != nil {
		h.writeError(w, "set_fee", err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"fee": req.Fee,
	})
}

// HandleGetRecord returns one fulfillment record.
func (h *EscrowHandler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := h.serviceID(w, r)
	if !ok {
		return
	}
	recordID, err := strconv.ParseUint(chi.URLParam(r, "recordID"), 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid record id")
		return
	}

	rec, err := h.manager.Record(serviceID, recordID)
	if err != nil {
		h.writeError(w, "get_record", err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}

// HandleGetPayer returns a payer's balances and records.
func (h *EscrowHandler) HandleGetPayer(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := h.serviceID(w, r)
	if !ok {
		return
	}
	payer := chi.URLParam(r, "payer")

	balance, refund, err := h.manager.DepositsOf(serviceID, payer)
	if err != nil {
		h.writeError(w, "get_payer", err)
		return
	}
	records, err := h.manager.RecordsOf(serviceID, payer)
	if err != nil {
		h.writeError(w, "get_payer", err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"payer":             payer,
		"balance":           balance,
		"authorized_refund": refund,
		"records":           records,
	})
}

// HandleGetSummary returns the service-wide escrow totals.
func (h *EscrowHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := h.serviceID(w, r)
	if !ok {
		return
	}

	summary, err := h.manager.Summary(serviceID)
	if err != nil {
		h.writeError(w, "get_summary", err)
		return
	}
	response.JSON(w, http.StatusOK, summary)
}

func (h *EscrowHandler) serviceID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "serviceID"), 10, 64)
	if err != nil || id == 0 {
		response.Error(w, http.StatusBadRequest, "invalid service id")
		return 0, false
	}
	return id, true
}

func (h *EscrowHandler) writeError(w http.ResponseWriter, operation string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("escrow operation failed",
			zap.String("operation", operation),
			zap.Error(err))
	} else {
		metrics.RejectedOperations.WithLabelValues(operation).Inc()
	}
	response.Error(w, status, err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRecordNotFound),
		errors.Is(err, domain.ErrServiceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyFinalized):
		return http.StatusConflict
	case errors.Is(err, domain.ErrArithmeticOverflow),
		errors.Is(err, domain.ErrInsufficientEscrowBalance),
		errors.Is(err, domain.ErrEscrowBalanceExceeded),
		errors.Is(err, domain.ErrNoRefundAuthorized),
		errors.Is(err, domain.ErrNothingToRelease),
		errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
