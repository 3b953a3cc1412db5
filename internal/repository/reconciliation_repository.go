package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hr-center/internal/models"
)

// ReconciliationRepository tracks stored artifacts left behind by failed or lost transitions
type ReconciliationRepository struct {
	db *sql.DB
}

// NewReconciliationRepository creates a new reconciliation repository
func NewReconciliationRepository(db *sql.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

// Create queues an artifact for reconciliation
func (r *ReconciliationRepository) Create(ctx context.Context, rec *models.ArtifactReconciliation) error {
	query := `
		INSERT INTO artifact_reconciliations (assignment_id, storage_key, stage, reason, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.AssignmentID, rec.StorageKey, rec.Stage, rec.Reason, models.ReconciliationPending,
	).Scan(&rec.ID, &rec.Status, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reconciliation: %w", err)
	}
	return nil
}

// ListPending returns pending entries created before cutoff
func (r *ReconciliationRepository) ListPending(ctx context.Context, cutoff time.Time, limit int) ([]models.ArtifactReconciliation, error) {
	query := `
		SELECT id, assignment_id, storage_key, stage, reason, status, created_at, resolved_at
		FROM artifact_reconciliations
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, models.ReconciliationPending, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliations: %w", err)
	}
	defer rows.Close()

	var recs []models.ArtifactReconciliation
	for rows.Next() {
		var rec models.ArtifactReconciliation
		if err := rows.Scan(&rec.ID, &rec.AssignmentID, &rec.StorageKey, &rec.Stage, &rec.Reason, &rec.Status, &rec.CreatedAt, &rec.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation: %w", err)
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// MarkResolved closes a reconciliation entry
func (r *ReconciliationRepository) MarkResolved(ctx context.Context, id uint) error {
	query := `UPDATE artifact_reconciliations SET status = $2, resolved_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReconciliationResolved); err != nil {
		return fmt.Errorf("failed to resolve reconciliation: %w", err)
	}
	return nil
}
