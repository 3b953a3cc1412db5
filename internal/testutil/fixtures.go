package testutil

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"hr-center/internal/models"
	"hr-center/internal/pdf"
	"hr-center/internal/repository"
	"hr-center/internal/workflow"
)

// InsertEmployee adds a directory entry; managerID is stored the way the CRM sync does
func InsertEmployee(t *testing.T, db *sql.DB, id int64, name, email string, managerID *int64) {
	t.Helper()

	data := map[string]any{}
	if managerID != nil {
		data["assignedById"] = *managerID
	}
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to encode employee data: %v", err)
	}

	var emailArg any
	if email != "" {
		emailArg = email
	}

	_, err = db.ExecContext(context.Background(), `
		INSERT INTO employee_cache (bitrix_id, full_name, email, data)
		VALUES ($1, $2, $3, $4)
	`, id, name, emailArg, raw)
	if err != nil {
		t.Fatalf("Failed to insert employee %d: %v", id, err)
	}
}

// InsertTemplate adds an active template with a single signature field
func InsertTemplate(t *testing.T, db *sql.DB, cfg *workflow.DefaultSignerConfig) *models.DocumentTemplate {
	t.Helper()

	tmpl := &models.DocumentTemplate{
		Title:               "Employee Handbook",
		Category:            "onboarding",
		SourceKey:           "templates/handbook.pdf",
		FieldPositions:      []pdf.PercentField{{Page: 1, X: 10, Y: 80, Width: 30, Height: 8}},
		DefaultSignerConfig: cfg,
		IsActive:            true,
	}
	if err := repository.NewTemplateRepository(db).Create(context.Background(), tmpl); err != nil {
		t.Fatalf("Failed to insert template: %v", err)
	}
	return tmpl
}
