package handlers

import (
	"context"
	"net/http"

	"hr-center/internal/middleware"
	"hr-center/internal/models"
)

// TaskLister reads open to-do items
type TaskLister interface {
	ListOpen(ctx context.Context, employeeID int64) ([]models.PendingTask, error)
}

// TaskHandler serves the caller's pending tasks
type TaskHandler struct {
	tasks TaskLister
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks TaskLister) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// ListMine lists the caller's open tasks
// @Summary List my pending tasks
// @Description Open sign_document tasks of the caller. Tasks close when the assignment is signed.
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.PendingTask
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /tasks/my [get]
func (h *TaskHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := middleware.GetEmployeeID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	tasks, err := h.tasks.ListOpen(r.Context(), employeeID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tasks)
}
