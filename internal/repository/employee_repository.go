package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hr-center/internal/models"
	"hr-center/internal/workflow"
)

// EmployeeRepository reads the CRM directory mirror
type EmployeeRepository struct {
	db *sql.DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *sql.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// GetByBitrixID retrieves an employee by CRM id; nil when absent
func (r *EmployeeRepository) GetByBitrixID(ctx context.Context, id int64) (*models.Employee, error) {
	// The manager is the CRM item's responsible user
	query := `
		SELECT bitrix_id, badge_number, full_name, position, department, email,
		       NULLIF(data->>'assignedById', '')::BIGINT, last_sync
		FROM employee_cache
		WHERE bitrix_id = $1
	`

	employee := &models.Employee{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&employee.BitrixID,
		&employee.BadgeNumber,
		&employee.FullName,
		&employee.Position,
		&employee.Department,
		&employee.Email,
		&employee.ManagerID,
		&employee.LastSync,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	return employee, nil
}

// FindPerson implements workflow.Directory
func (r *EmployeeRepository) FindPerson(ctx context.Context, id int64) (*workflow.Person, error) {
	employee, err := r.GetByBitrixID(ctx, id)
	if err != nil || employee == nil {
		return nil, err
	}

	return &workflow.Person{
		ID:          employee.BitrixID,
		DisplayName: employee.FullName,
		Email:       employee.Email,
		ManagerID:   employee.ManagerID,
	}, nil
}
