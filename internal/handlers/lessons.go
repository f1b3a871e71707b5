package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/edunext/edunext/internal/auth"
	"github.com/edunext/edunext/internal/middleware"
	"github.com/edunext/edunext/internal/services"
	apperrors "github.com/edunext/edunext/pkg/errors"
	"github.com/edunext/edunext/pkg/response"
)

// LessonHandler serves lesson content, completion and the AI tutor endpoint.
type LessonHandler struct {
	lessons *services.LessonService
	policy  *iauth.Policy
}

func NewLessonHandler(lessons *services.LessonService, policy *iauth.Policy) *LessonHandler {
	return &LessonHandler{lessons: lessons, policy: policy}
}

type askRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

// GET /api/lessons/:id
func (h *LessonHandler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	lesson, err := h.lessons.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	if err := h.policy.RequireEnrollment(requestContext(c), user, lesson.CourseID); err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, lesson)
}

// POST /api/lessons/:id/complete
func (h *LessonHandler) Complete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	lesson, err := h.lessons.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	if err := h.policy.RequireEnrollment(requestContext(c), user, lesson.CourseID); err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	result, err := h.lessons.Complete(requestContext(c), user.ID, lesson.ID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, result)
}

// POST /api/lessons/:id/ask
func (h *LessonHandler) Ask(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var req askRequest
	if !bindAndValidate(c, &req) {
		return
	}

	lesson, err := h.lessons.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	if err := h.policy.RequireEnrollment(requestContext(c), user, lesson.CourseID); err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	answer, err := h.lessons.AskQuestion(requestContext(c), lesson.ID, req.Question)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answer": answer})
}

// POST /api/courses/:id/lessons (admin)
func (h *LessonHandler) Create(c *gin.Context) {
	var req services.LessonInput
	if !bindAndValidate(c, &req) {
		return
	}

	lesson, err := h.lessons.Create(requestContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusCreated, lesson)
}

// PATCH /api/lessons/:id (admin)
func (h *LessonHandler) Update(c *gin.Context) {
	var req services.LessonUpdateInput
	if !bindAndValidate(c, &req) {
		return
	}

	lesson, err := h.lessons.Update(requestContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, lesson)
}

// DELETE /api/lessons/:id (admin)
func (h *LessonHandler) Delete(c *gin.Context) {
	if err := h.lessons.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
