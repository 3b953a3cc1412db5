package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"hr-center/internal/models"
	"hr-center/internal/workflow"
)

// TemplateRepository handles document template database operations
type TemplateRepository struct {
	db *sql.DB
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create inserts a template
func (r *TemplateRepository) Create(ctx context.Context, tmpl *models.DocumentTemplate) error {
	positions, err := json.Marshal(tmpl.FieldPositions)
	if err != nil {
		return fmt.Errorf("failed to encode field positions: %w", err)
	}

	var signerConfig any
	if tmpl.DefaultSignerConfig != nil {
		signerConfig = *tmpl.DefaultSignerConfig
	}

	query := `
		INSERT INTO document_templates (title, description, category, source_key, field_positions, default_signer_config, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		tmpl.Title,
		tmpl.Description,
		tmpl.Category,
		tmpl.SourceKey,
		positions,
		signerConfig,
		tmpl.IsActive,
	).Scan(&tmpl.ID, &tmpl.CreatedAt, &tmpl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	return nil
}

// GetByID retrieves a template by id; nil when absent
func (r *TemplateRepository) GetByID(ctx context.Context, id uint) (*models.DocumentTemplate, error) {
	query := `
		SELECT id, title, description, category, source_key, field_positions,
		       default_signer_config, is_active, created_at, updated_at
		FROM document_templates
		WHERE id = $1
	`

	tmpl := &models.DocumentTemplate{}
	var positions []byte
	var signerConfig []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tmpl.ID,
		&tmpl.Title,
		&tmpl.Description,
		&tmpl.Category,
		&tmpl.SourceKey,
		&positions,
		&signerConfig,
		&tmpl.IsActive,
		&tmpl.CreatedAt,
		&tmpl.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	if err := json.Unmarshal(positions, &tmpl.FieldPositions); err != nil {
		return nil, fmt.Errorf("failed to decode field positions: %w", err)
	}
	if len(signerConfig) > 0 && string(signerConfig) != "null" {
		cfg := &workflow.DefaultSignerConfig{}
		if err := cfg.Scan(signerConfig); err != nil {
			return nil, fmt.Errorf("failed to decode signer config for template %d: %w", id, err)
		}
		tmpl.DefaultSignerConfig = cfg
	}

	return tmpl, nil
}
