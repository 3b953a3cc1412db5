package repository

import (
	"context"
	"database/sql"
	"fmt"

	"hr-center/internal/models"
)

// TaskRepository handles employee pending tasks
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// CompleteForAssignment closes the open signing tasks tied to an assignment
func (r *TaskRepository) CompleteForAssignment(ctx context.Context, assignmentID uint) error {
	query := `
		UPDATE pending_tasks
		SET completed_at = NOW()
		WHERE related_assignment_id = $1 AND type = $2 AND completed_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, assignmentID, models.TaskTypeSignDocument); err != nil {
		return fmt.Errorf("failed to complete pending task: %w", err)
	}
	return nil
}

// ListOpen returns an employee's incomplete tasks
func (r *TaskRepository) ListOpen(ctx context.Context, employeeID int64) ([]models.PendingTask, error) {
	query := `
		SELECT id, employee_id, type, title, priority, due_date, related_assignment_id, completed_at, created_at
		FROM pending_tasks
		WHERE employee_id = $1 AND completed_at IS NULL
		ORDER BY due_date NULLS LAST, created_at
	`

	rows, err := r.db.QueryContext(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.PendingTask
	for rows.Next() {
		var t models.PendingTask
		if err := rows.Scan(&t.ID, &t.EmployeeID, &t.Type, &t.Title, &t.Priority, &t.DueDate, &t.RelatedAssignmentID, &t.CompletedAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending task: %w", err)
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}
