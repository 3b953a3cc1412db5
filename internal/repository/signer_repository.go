package repository

import (
	"context"
	"database/sql"
	"fmt"

	"hr-center/internal/models"
)

// SignerRepository handles per-signer rows of an assignment
type SignerRepository struct {
	db *sql.DB
}

// NewSignerRepository creates a new signer repository
func NewSignerRepository(db *sql.DB) *SignerRepository {
	return &SignerRepository{db: db}
}

// ListByAssignment returns signers in workflow order
func (r *SignerRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.DocumentSigner, error) {
	query := `
		SELECT id, assignment_id, signer_order, employee_id, display_name, email, role_name, status, signed_at
		FROM document_signers
		WHERE assignment_id = $1
		ORDER BY signer_order
	`

	rows, err := r.db.QueryContext(ctx, query, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signers: %w", err)
	}
	defer rows.Close()

	var signers []models.DocumentSigner
	for rows.Next() {
		var s models.DocumentSigner
		if err := rows.Scan(
			&s.ID,
			&s.AssignmentID,
			&s.SignerOrder,
			&s.EmployeeID,
			&s.DisplayName,
			&s.Email,
			&s.RoleName,
			&s.Status,
			&s.SignedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan signer: %w", err)
		}
		signers = append(signers, s)
	}

	return signers, rows.Err()
}

// MarkSigned flags the signer at the given step as done. Repeats are harmless.
func (r *SignerRepository) MarkSigned(ctx context.Context, assignmentID uint, order int) error {
	query := `
		UPDATE document_signers
		SET status = 'signed', signed_at = COALESCE(signed_at, NOW())
		WHERE assignment_id = $1 AND signer_order = $2
	`
	if _, err := r.db.ExecContext(ctx, query, assignmentID, order); err != nil {
		return fmt.Errorf("failed to mark signer signed: %w", err)
	}
	return nil
}
