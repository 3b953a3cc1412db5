package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"hr-center/internal/models"
)

const assignmentColumns = `
	id, template_id, employee_id, created_by, status, priority, due_date,
	signing_workflow, current_signer_step, signature_request_id,
	working_artifact_key, signed_artifact_key, external_file_id,
	assigned_at, sent_at, signed_at, completed_at, last_reminded_at,
	created_at, updated_at
`

// AssignmentRepository handles document assignment database operations.
// Every status change is a conditional update; callers learn whether they won.
type AssignmentRepository struct {
	db *sql.DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (*models.DocumentAssignment, error) {
	a := &models.DocumentAssignment{}
	err := row.Scan(
		&a.ID,
		&a.TemplateID,
		&a.EmployeeID,
		&a.CreatedBy,
		&a.Status,
		&a.Priority,
		&a.DueDate,
		&a.SigningWorkflow,
		&a.CurrentSignerStep,
		&a.SignatureRequestID,
		&a.WorkingArtifactKey,
		&a.SignedArtifactKey,
		&a.ExternalFileID,
		&a.AssignedAt,
		&a.SentAt,
		&a.SignedAt,
		&a.CompletedAt,
		&a.LastRemindedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func terminalStatuses() any {
	statuses := make([]string, len(models.TerminalStatuses))
	for i, s := range models.TerminalStatuses {
		statuses[i] = string(s)
	}
	return pq.Array(statuses)
}

// Create inserts an assignment in the assigned state together with its signer
// rows and the recipient's pending task, in one transaction.
func (r *AssignmentRepository) Create(ctx context.Context, a *models.DocumentAssignment, taskTitle string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("Failed to rollback transaction", "error", err)
		}
	}()

	query := `
		INSERT INTO document_assignments (template_id, employee_id, created_by, status, priority, due_date, signing_workflow, current_signer_step)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		RETURNING ` + assignmentColumns

	created, err := scanAssignment(tx.QueryRowContext(ctx, query,
		a.TemplateID,
		a.EmployeeID,
		a.CreatedBy,
		models.StatusAssigned,
		a.Priority,
		a.DueDate,
		a.SigningWorkflow,
	))
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	for _, s := range a.SigningWorkflow {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO document_signers (assignment_id, signer_order, employee_id, display_name, email, role_name)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, created.ID, s.Order, s.Identifier, s.DisplayName, s.Email, s.RoleName)
		if err != nil {
			return fmt.Errorf("failed to create signer %d: %w", s.Order, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pending_tasks (employee_id, type, title, priority, due_date, related_assignment_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, created.EmployeeID, models.TaskTypeSignDocument, taskTitle, created.Priority, created.DueDate, created.ID)
	if err != nil {
		return fmt.Errorf("failed to create pending task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit assignment: %w", err)
	}

	*a = *created
	return nil
}

// GetByID retrieves an assignment; nil when absent
func (r *AssignmentRepository) GetByID(ctx context.Context, id uint) (*models.DocumentAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM document_assignments WHERE id = $1`

	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// GetBySignatureRequestID retrieves the assignment bound to a provider session; nil when absent
func (r *AssignmentRepository) GetBySignatureRequestID(ctx context.Context, requestID string) (*models.DocumentAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM document_assignments WHERE signature_request_id = $1`

	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, requestID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment by signature request: %w", err)
	}
	return a, nil
}

// ListForEmployee returns assignments the employee receives or must sign, newest first
func (r *AssignmentRepository) ListForEmployee(ctx context.Context, employeeID int64) ([]models.DocumentAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM document_assignments
		WHERE employee_id = $1
		   OR id IN (SELECT assignment_id FROM document_signers WHERE employee_id = $1)
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, employeeID)
}

// ListReminderDue returns open assignments handed out before cutoff that were
// not reminded since. Assignments signed in-app only count from assignment.
func (r *AssignmentRepository) ListReminderDue(ctx context.Context, cutoff time.Time) ([]models.DocumentAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM document_assignments
		WHERE status <> ALL($1)
		  AND COALESCE(sent_at, assigned_at) < $2
		  AND (last_reminded_at IS NULL OR last_reminded_at < $2)
		ORDER BY COALESCE(sent_at, assigned_at)
	`
	return r.list(ctx, query, terminalStatuses(), cutoff)
}

// ListOverdue returns open assignments whose due date is before now and
// that have not had an overdue notice yet
func (r *AssignmentRepository) ListOverdue(ctx context.Context, now time.Time) ([]models.DocumentAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM document_assignments
		WHERE status <> ALL($1)
		  AND due_date < $2
		  AND overdue_notified_at IS NULL
		ORDER BY due_date
	`
	return r.list(ctx, query, terminalStatuses(), now)
}

func (r *AssignmentRepository) list(ctx context.Context, query string, args ...any) ([]models.DocumentAssignment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.DocumentAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}

	return assignments, nil
}

// MarkSent binds a provider session and moves assigned to sent.
// It returns false when the assignment was no longer assigned.
func (r *AssignmentRepository) MarkSent(ctx context.Context, id uint, requestID string) (bool, error) {
	query := `
		UPDATE document_assignments
		SET status = $2, signature_request_id = $3, sent_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query, id, models.StatusSent, requestID, models.StatusAssigned)
	if err != nil {
		return false, fmt.Errorf("failed to mark assignment sent: %w", err)
	}
	return affectedOne(res)
}

// AdvanceStep records an intermediate artifact and moves to the next signer,
// provided nobody else advanced or closed the assignment first.
func (r *AssignmentRepository) AdvanceStep(ctx context.Context, id uint, fromStep int, workingKey string) (bool, error) {
	query := `
		UPDATE document_assignments
		SET current_signer_step = current_signer_step + 1, working_artifact_key = $3, updated_at = NOW()
		WHERE id = $1 AND current_signer_step = $2 AND status <> ALL($4)
	`
	res, err := r.db.ExecContext(ctx, query, id, fromStep, workingKey, terminalStatuses())
	if err != nil {
		return false, fmt.Errorf("failed to advance signer step: %w", err)
	}
	return affectedOne(res)
}

// HandOff advances a sent assignment to the next signer and rebinds it to the
// next provider session, or to none when requestID is nil. The session that
// was just completed no longer resolves to the assignment.
func (r *AssignmentRepository) HandOff(ctx context.Context, id uint, fromStep int, workingKey string, requestID *string) (bool, error) {
	query := `
		UPDATE document_assignments
		SET current_signer_step = current_signer_step + 1, working_artifact_key = $3,
		    signature_request_id = $4, updated_at = NOW()
		WHERE id = $1 AND current_signer_step = $2 AND status <> ALL($5)
	`
	res, err := r.db.ExecContext(ctx, query, id, fromStep, workingKey, requestID, terminalStatuses())
	if err != nil {
		return false, fmt.Errorf("failed to hand off signer step: %w", err)
	}
	return affectedOne(res)
}

// MarkSigned is the terminal compare-and-set: the first caller to move a
// non-terminal assignment to signed wins and gets the updated row.
// Losers get nil with no error.
func (r *AssignmentRepository) MarkSigned(ctx context.Context, id uint, artifactKey string, externalFileID *string) (*models.DocumentAssignment, error) {
	query := `
		UPDATE document_assignments
		SET status = $2, signed_artifact_key = $3, external_file_id = $4,
		    signed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status <> ALL($5)
		RETURNING ` + assignmentColumns

	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, id, models.StatusSigned, artifactKey, externalFileID, terminalStatuses()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark assignment signed: %w", err)
	}
	return a, nil
}

// MarkClosed moves a non-terminal assignment to declined or expired
func (r *AssignmentRepository) MarkClosed(ctx context.Context, id uint, status models.AssignmentStatus) (bool, error) {
	if status != models.StatusDeclined && status != models.StatusExpired {
		return false, fmt.Errorf("invalid closing status %q", status)
	}

	query := `
		UPDATE document_assignments
		SET status = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status <> ALL($3)
	`
	res, err := r.db.ExecContext(ctx, query, id, status, terminalStatuses())
	if err != nil {
		return false, fmt.Errorf("failed to close assignment: %w", err)
	}
	return affectedOne(res)
}

// TouchReminded records that a reminder went out
func (r *AssignmentRepository) TouchReminded(ctx context.Context, id uint) error {
	_, err := r.db.ExecContext(ctx, `UPDATE document_assignments SET last_reminded_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to record reminder: %w", err)
	}
	return nil
}

// TouchOverdueNotified records the overdue notice
func (r *AssignmentRepository) TouchOverdueNotified(ctx context.Context, id uint) error {
	_, err := r.db.ExecContext(ctx, `UPDATE document_assignments SET overdue_notified_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to record overdue notice: %w", err)
	}
	return nil
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}
