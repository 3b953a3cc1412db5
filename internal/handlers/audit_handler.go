package handlers

import (
	"context"
	"net/http"
	"strconv"

	"hr-center/internal/models"
	"hr-center/internal/signing"
)

// AuditLister reads an assignment's audit trail
type AuditLister interface {
	ListByAssignment(ctx context.Context, assignmentID uint, limit, offset int) ([]models.AuditLog, error)
}

// AssignmentReader loads assignments by id
type AssignmentReader interface {
	GetByID(ctx context.Context, id uint) (*models.DocumentAssignment, error)
}

// AuditHandler handles audit log requests
type AuditHandler struct {
	auditRepo   AuditLister
	assignments AssignmentReader
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditRepo AuditLister, assignments AssignmentReader) *AuditHandler {
	return &AuditHandler{
		auditRepo:   auditRepo,
		assignments: assignments,
	}
}

// ListAssignmentAudit lists the audit trail of one assignment (admin only)
// @Summary List assignment audit trail
// @Description Get a paginated list of audit entries for an assignment, newest first (hr_admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(50)
// @Success 200 {array} models.AuditLog "List of audit logs"
// @Failure 400 {object} map[string]string "Invalid parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden - hr_admin only"
// @Failure 404 {object} map[string]string "Assignment not found"
// @Router /admin/assignments/{id}/audit [get]
func (h *AuditHandler) ListAssignmentAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAssignmentID(w, r)
	if !ok {
		return
	}

	// Get pagination parameters
	page := 1
	limit := 50

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	a, err := h.assignments.GetByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if a == nil {
		respondWithServiceError(w, r, &signing.NotFoundError{AssignmentID: id})
		return
	}

	logs, err := h.auditRepo.ListByAssignment(r.Context(), id, limit, (page-1)*limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve audit logs")
		return
	}

	respondWithJSON(w, http.StatusOK, logs)
}
