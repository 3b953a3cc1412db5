package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hr-center/internal/models"
	"hr-center/internal/workflow"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrTemplateInactive = errors.New("template is inactive")
	ErrInvalidPriority  = errors.New("priority must be high, medium or low")
	ErrNoRecipients     = errors.New("at least one employee is required")
)

// Templates reads document templates
type Templates interface {
	GetByID(ctx context.Context, id uint) (*models.DocumentTemplate, error)
}

// Assignments persists assignments with their signer rows and pending task
type Assignments interface {
	Create(ctx context.Context, a *models.DocumentAssignment, taskTitle string) error
	GetByID(ctx context.Context, id uint) (*models.DocumentAssignment, error)
	ListForEmployee(ctx context.Context, employeeID int64) ([]models.DocumentAssignment, error)
}

// Resolver expands a template's signer config per recipient
type Resolver interface {
	Resolve(ctx context.Context, cfg *workflow.DefaultSignerConfig, recipientIDs []int64, creatingAdminID int64) ([]workflow.Outcome, error)
}

// Notifier announces new assignments
type Notifier interface {
	SendAssignmentCreated(ctx context.Context, to, name, documentTitle string, assignmentID uint, dueDate *time.Time) error
}

// AssignmentService creates document assignments from templates
type AssignmentService struct {
	templates   Templates
	assignments Assignments
	resolver    Resolver
	directory   workflow.Directory
	notifier    Notifier
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(
	templates Templates,
	assignments Assignments,
	resolver Resolver,
	directory workflow.Directory,
	notifier Notifier,
) *AssignmentService {
	return &AssignmentService{
		templates:   templates,
		assignments: assignments,
		resolver:    resolver,
		directory:   directory,
		notifier:    notifier,
	}
}

// CreateRequest assigns a template to employees
type CreateRequest struct {
	TemplateID  uint
	EmployeeIDs []int64
	Priority    string
	DueDate     *time.Time
	CreatedBy   int64
}

// Created is one assignment that was stored
type Created struct {
	EmployeeID   int64                     `json:"employeeId"`
	AssignmentID uint                      `json:"assignmentId"`
	Signers      []workflow.ResolvedSigner `json:"signers"`
}

// Failed is one recipient that could not be assigned
type Failed struct {
	EmployeeID int64  `json:"employeeId"`
	Error      string `json:"error"`
}

// CreateResult splits recipients by outcome
type CreateResult struct {
	Succeeded []Created `json:"succeeded"`
	Failed    []Failed  `json:"failed"`
}

// CreateAssignments resolves the template's workflow for every employee and
// stores one assignment per employee that resolved. A configuration error
// fails the whole request; per-employee failures are reported in the result.
func (s *AssignmentService) CreateAssignments(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if len(req.EmployeeIDs) == 0 {
		return nil, ErrNoRecipients
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	switch req.Priority {
	case models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
	default:
		return nil, ErrInvalidPriority
	}

	tmpl, err := s.templates.GetByID(ctx, req.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if tmpl == nil {
		return nil, ErrTemplateNotFound
	}
	if !tmpl.IsActive {
		return nil, ErrTemplateInactive
	}

	outcomes, err := s.resolver.Resolve(ctx, tmpl.DefaultSignerConfig, req.EmployeeIDs, req.CreatedBy)
	if err != nil {
		return nil, err
	}

	result := &CreateResult{Succeeded: []Created{}, Failed: []Failed{}}
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			slog.Warn("Recipient not assigned",
				"template_id", tmpl.ID,
				"employee_id", outcome.RecipientID,
				"error", outcome.Err,
			)
			result.Failed = append(result.Failed, Failed{EmployeeID: outcome.RecipientID, Error: outcome.Err.Error()})
			continue
		}

		a := &models.DocumentAssignment{
			TemplateID:      tmpl.ID,
			EmployeeID:      outcome.RecipientID,
			CreatedBy:       req.CreatedBy,
			Priority:        req.Priority,
			DueDate:         req.DueDate,
			SigningWorkflow: workflow.Snapshot(outcome.Assignment.Signers),
		}
		if err := s.assignments.Create(ctx, a, "Sign: "+tmpl.Title); err != nil {
			slog.Error("Failed to store assignment",
				"template_id", tmpl.ID,
				"employee_id", outcome.RecipientID,
				"error", err,
			)
			result.Failed = append(result.Failed, Failed{EmployeeID: outcome.RecipientID, Error: "failed to store assignment"})
			continue
		}

		result.Succeeded = append(result.Succeeded, Created{
			EmployeeID:   outcome.RecipientID,
			AssignmentID: a.ID,
			Signers:      outcome.Assignment.Signers,
		})
		s.notifyFirstSigner(ctx, a, tmpl)
	}

	slog.Info("Assignments created",
		"template_id", tmpl.ID,
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed),
	)
	return result, nil
}

func (s *AssignmentService) notifyFirstSigner(ctx context.Context, a *models.DocumentAssignment, tmpl *models.DocumentTemplate) {
	var to *string
	name := ""
	if first, ok := a.SigningWorkflow.At(1); ok {
		to, name = first.Email, first.DisplayName
	} else if p, err := s.directory.FindPerson(ctx, a.EmployeeID); err == nil && p != nil {
		to, name = p.Email, p.DisplayName
	}
	if to == nil || *to == "" {
		return
	}

	if err := s.notifier.SendAssignmentCreated(ctx, *to, name, tmpl.Title, a.ID, a.DueDate); err != nil {
		slog.Warn("Failed to send assignment email", "assignment_id", a.ID, "error", err)
	}
}

// GetVisible returns an assignment the caller may see: admins see all,
// employees only those they receive or sign. Nil when absent or hidden.
func (s *AssignmentService) GetVisible(ctx context.Context, id uint, employeeID int64, isAdmin bool) (*models.DocumentAssignment, error) {
	a, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}
	if isAdmin || a.EmployeeID == employeeID {
		return a, nil
	}
	for _, signer := range a.SigningWorkflow {
		if signer.Identifier == employeeID {
			return a, nil
		}
	}
	return nil, nil
}

// ListForEmployee returns the employee's assignments, newest first
func (s *AssignmentService) ListForEmployee(ctx context.Context, employeeID int64) ([]models.DocumentAssignment, error) {
	assignments, err := s.assignments.ListForEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if assignments == nil {
		assignments = []models.DocumentAssignment{}
	}
	return assignments, nil
}
