package handlers

import (
	"context"
	"net/http"
	"time"

	"hr-center/internal/middleware"
	"hr-center/internal/models"
	"hr-center/internal/service"
	"hr-center/internal/signing"
	"hr-center/pkg/validator"
)

// AssignmentService is the part of the assignment service the handler uses
type AssignmentService interface {
	CreateAssignments(ctx context.Context, req service.CreateRequest) (*service.CreateResult, error)
	GetVisible(ctx context.Context, id uint, employeeID int64, isAdmin bool) (*models.DocumentAssignment, error)
	ListForEmployee(ctx context.Context, employeeID int64) ([]models.DocumentAssignment, error)
}

// Dispatcher opens provider signing sessions
type Dispatcher interface {
	Dispatch(ctx context.Context, assignmentID uint, actor signing.Actor) (*signing.DispatchResult, error)
}

// SignerLister reads the per-signer rows of an assignment
type SignerLister interface {
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.DocumentSigner, error)
}

// AssignmentHandler handles document assignment requests
type AssignmentHandler struct {
	assignments AssignmentService
	dispatcher  Dispatcher
	signers     SignerLister
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(assignments AssignmentService, dispatcher Dispatcher, signers SignerLister) *AssignmentHandler {
	return &AssignmentHandler{
		assignments: assignments,
		dispatcher:  dispatcher,
		signers:     signers,
	}
}

// AssignmentDetail is an assignment with its signer progress
type AssignmentDetail struct {
	*models.DocumentAssignment
	Signers []models.DocumentSigner `json:"signers"`
}

// CreateAssignmentsRequest assigns a template to employees
type CreateAssignmentsRequest struct {
	TemplateID  uint    `json:"templateId" validate:"required"`
	EmployeeIDs []int64 `json:"employeeIds" validate:"required,max=500"`
	Priority    string  `json:"priority,omitempty" validate:"oneof=high medium low"`
	DueDate     string  `json:"dueDate,omitempty"` // YYYY-MM-DD
}

// CreateAssignments assigns a template to a list of employees
// @Summary Create document assignments
// @Description Resolve the template's signing workflow per employee and store one assignment each (hr_admin only). Per-employee failures are listed in the response.
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAssignmentsRequest true "Assignment data"
// @Success 201 {object} service.CreateResult
// @Failure 400 {object} map[string]string "Invalid input or template configuration"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden - hr_admin only"
// @Failure 404 {object} map[string]string "Template not found"
// @Failure 409 {object} map[string]string "Template inactive"
// @Router /admin/assignments [post]
func (h *AssignmentHandler) CreateAssignments(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetEmployeeID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req CreateAssignmentsRequest
	if !decodeJSON(w, r, maxJSONBodyBytes, &req) {
		return
	}
	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var dueDate *time.Time
	if req.DueDate != "" {
		d, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid dueDate format (expected YYYY-MM-DD)")
			return
		}
		dueDate = &d
	}

	result, err := h.assignments.CreateAssignments(r.Context(), service.CreateRequest{
		TemplateID:  req.TemplateID,
		EmployeeIDs: req.EmployeeIDs,
		Priority:    req.Priority,
		DueDate:     dueDate,
		CreatedBy:   adminID,
	})
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

// Dispatch sends an assignment to the signing provider
// @Summary Dispatch assignment to the signing provider
// @Description Create a provider signing session for an assigned document (hr_admin only)
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID"
// @Success 200 {object} signing.DispatchResult
// @Failure 400 {object} map[string]string "Invalid ID or signer without email"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden - hr_admin only"
// @Failure 404 {object} map[string]string "Assignment not found"
// @Failure 409 {object} map[string]string "Assignment already sent or closed"
// @Router /admin/assignments/{id}/dispatch [post]
func (h *AssignmentHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAssignmentID(w, r)
	if !ok {
		return
	}
	actor, ok := actorFromRequest(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), id, actor)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// ListMine lists the caller's assignments
// @Summary List my assignments
// @Description Assignments where the caller is the recipient or a signer, newest first
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.DocumentAssignment
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /assignments/my [get]
func (h *AssignmentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := middleware.GetEmployeeID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	assignments, err := h.assignments.ListForEmployee(r.Context(), employeeID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, assignments)
}

// Get returns one assignment
// @Summary Get assignment
// @Description Get an assignment visible to the caller. Admins see every assignment.
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID"
// @Success 200 {object} AssignmentDetail
// @Failure 400 {object} map[string]string "Invalid ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Assignment not found"
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAssignmentID(w, r)
	if !ok {
		return
	}
	employeeID, ok := middleware.GetEmployeeID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	isAdmin := middleware.GetRole(r) == models.RoleHRAdmin
	a, err := h.assignments.GetVisible(r.Context(), id, employeeID, isAdmin)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if a == nil {
		respondWithServiceError(w, r, &signing.NotFoundError{AssignmentID: id})
		return
	}

	signers, err := h.signers.ListByAssignment(r.Context(), a.ID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, AssignmentDetail{DocumentAssignment: a, Signers: signers})
}
