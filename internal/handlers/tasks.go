package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edunext/edunext/internal/middleware"
	"github.com/edunext/edunext/internal/services"
	apperrors "github.com/edunext/edunext/pkg/errors"
	"github.com/edunext/edunext/pkg/response"
)

// TaskHandler serves per-user exercises and their grading endpoint.
type TaskHandler struct {
	tasks *services.TaskService
}

func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type gradeRequest struct {
	Answer string `json:"answer" validate:"required"`
}

// GET /api/tasks
func (h *TaskHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	tasks, err := h.tasks.ListForUser(requestContext(c), user.ID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, tasks)
}

// POST /api/tasks/:id/grade
func (h *TaskHandler) Grade(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var req gradeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.tasks.Grade(requestContext(c), user.ID, c.Param("id"), req.Answer)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, result)
}

// POST /api/tasks (admin)
func (h *TaskHandler) Create(c *gin.Context) {
	var req services.TaskInput
	if !bindAndValidate(c, &req) {
		return
	}

	task, err := h.tasks.Create(requestContext(c), req)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusCreated, task)
}
