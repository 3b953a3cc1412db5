package repository

import (
	"context"
	"database/sql"
	"fmt"

	"hr-center/internal/models"
)

// EvidenceRepository stores encrypted signature evidence
type EvidenceRepository struct {
	db *sql.DB
}

// NewEvidenceRepository creates a new evidence repository
func NewEvidenceRepository(db *sql.DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

// Create stores one evidence record
func (r *EvidenceRepository) Create(ctx context.Context, ev *models.SignatureEvidence) error {
	query := `
		INSERT INTO signature_evidence (assignment_id, signer_order, signer_id, ciphertext)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, ev.AssignmentID, ev.SignerOrder, ev.SignerID, ev.Ciphertext).
		Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store signature evidence: %w", err)
	}
	return nil
}
