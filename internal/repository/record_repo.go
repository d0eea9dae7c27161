// internal/repository/record_repo.go
package repository

import (
	"context"
	"fmt"

	"escrow-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordArchive keeps an audit copy of fulfillment records in Postgres.
// The in-memory escrow instance stays authoritative; the archive is fed
// asynchronously from the event log and written idempotently, so a
// replayed event never duplicates a row.
type RecordArchive struct {
	pool *pgxpool.Pool
}

func NewRecordArchive(pool *pgxpool.Pool) *RecordArchive {
	return &RecordArchive{pool: pool}
}

// Upsert inserts the record or refreshes the mutable columns (status,
// receipt URI, external id) when it already exists.
func (r *RecordArchive) Upsert(ctx context.Context, serviceID uint64, rec *domain.FulfillmentRecord) error {
	query := `
		INSERT INTO fulfillment_records (
			service_id, record_id, service_ref, external_id,
			fulfiller_ref, payer, deposit_amount, fee_amount_at_deposit,
			fiat_amount_at_deposit, entry_time, receipt_uri, status
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12
		)
		ON CONFLICT (service_id, record_id) DO UPDATE
		SET status = EXCLUDED.status,
			receipt_uri = EXCLUDED.receipt_uri,
			external_id = EXCLUDED.external_id,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(
		ctx, query,
		serviceID,
		rec.ID,
		rec.ServiceRef,
		rec.ExternalID,
		rec.FulfillerRef,
		rec.Payer,
		rec.DepositAmount,
		rec.FeeAmountAtDeposit,
		rec.FiatAmountAtDeposit,
		rec.EntryTime,
		rec.ReceiptURI,
		rec.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to archive record: %w", err)
	}
	return nil
}

// GetByID retrieves one archived record.
func (r *RecordArchive) GetByID(ctx context.Context, serviceID, recordID uint64) (*domain.FulfillmentRecord, error) {
	query := `
		SELECT
			record_id, service_ref, external_id, fulfiller_ref,
			payer, deposit_amount, fee_amount_at_deposit,
			fiat_amount_at_deposit, entry_time, receipt_uri, status
		FROM fulfillment_records
		WHERE service_id = $1 AND record_id = $2
	`

	rec := &domain.FulfillmentRecord{}
	err := r.scanRecord(r.pool.QueryRow(ctx, query, serviceID, recordID), rec)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get archived record: %w", err)
	}
	return rec, nil
}

// ListByPayer retrieves a payer's archived records in creation order.
func (r *RecordArchive) ListByPayer(ctx context.Context, serviceID uint64, payer string) ([]*domain.FulfillmentRecord, error) {
	query := `
		SELECT
			record_id, service_ref, external_id, fulfiller_ref,
			payer, deposit_amount, fee_amount_at_deposit,
			fiat_amount_at_deposit, entry_time, receipt_uri, status
		FROM fulfillment_records
		WHERE service_id = $1 AND payer = $2
		ORDER BY record_id ASC
	`

	rows, err := r.pool.Query(ctx, query, serviceID, payer)
	if err != nil {
		return nil, fmt.Errorf("failed to query archived records: %w", err)
	}
	defer rows.Close()

	var records []*domain.FulfillmentRecord
	for rows.Next() {
		rec := &domain.FulfillmentRecord{}
		if err := r.scanRecord(rows, rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archived records: %w", err)
	}
	return records, nil
}

func (r *RecordArchive) scanRecord(row pgx.Row, rec *domain.FulfillmentRecord) error {
	err := row.Scan(
		&rec.ID,
		&rec.ServiceRef,
		&rec.ExternalID,
		&rec.FulfillerRef,
		&rec.Payer,
		&rec.DepositAmount,
		&rec.FeeAmountAtDeposit,
		&rec.FiatAmountAtDeposit,
		&rec.EntryTime,
		&rec.ReceiptURI,
		&rec.Status,
	)
	if err == pgx.ErrNoRows {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to scan archived record: %w", err)
	}
	return nil
}
