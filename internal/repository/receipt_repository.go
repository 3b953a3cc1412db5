package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// ReceiptRepository records provider webhook deliveries
type ReceiptRepository struct {
	db *sql.DB
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *sql.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// Record stores a delivery keyed by body hash and returns how many times
// that exact body has now been received.
func (r *ReceiptRepository) Record(ctx context.Context, bodySHA256, event string, requestID *string) (int, error) {
	query := `
		INSERT INTO webhook_receipts (raw_body_sha256, event, signature_request_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (raw_body_sha256)
		DO UPDATE SET deliveries = webhook_receipts.deliveries + 1, last_received_at = NOW()
		RETURNING deliveries
	`

	var deliveries int
	if err := r.db.QueryRowContext(ctx, query, bodySHA256, event, requestID).Scan(&deliveries); err != nil {
		return 0, fmt.Errorf("failed to record webhook receipt: %w", err)
	}
	return deliveries, nil
}
