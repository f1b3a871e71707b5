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

// CourseHandler serves the catalogue and enrollment endpoints.
type CourseHandler struct {
	courses *services.CourseService
	policy  *iauth.Policy
}

func NewCourseHandler(courses *services.CourseService, policy *iauth.Policy) *CourseHandler {
	return &CourseHandler{courses: courses, policy: policy}
}

type enrollRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// GET /api/courses
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.courses.List(requestContext(c))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, courses)
}

// GET /api/courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	// Lesson content is part of the course payload only for enrolled users
	// and admins; everyone else gets the outline.
	user := middleware.CurrentUser(c)
	enrolled := false
	if user != nil {
		if user.IsAdmin {
			enrolled = true
		} else {
			var err error
			enrolled, err = h.policy.IsEnrolled(requestContext(c), user.ID, course.ID)
			if err != nil {
				response.Error(c, mapServiceError(err))
				return
			}
		}
	}
	if !enrolled {
		for i := range course.Lessons {
			course.Lessons[i].EducationContent = ""
		}
	}

	response.Success(c, http.StatusOK, course)
}

// GET /api/courses/enrolled
func (h *CourseHandler) ListEnrolled(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	courses, err := h.courses.ListEnrolled(requestContext(c), user.ID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, courses)
}

// POST /api/courses (admin)
func (h *CourseHandler) Create(c *gin.Context) {
	var req services.CourseInput
	if !bindAndValidate(c, &req) {
		return
	}

	course, err := h.courses.Create(requestContext(c), req)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusCreated, course)
}

// PATCH /api/courses/:id (admin)
func (h *CourseHandler) Update(c *gin.Context) {
	var req services.CourseUpdateInput
	if !bindAndValidate(c, &req) {
		return
	}

	course, err := h.courses.Update(requestContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, course)
}

// DELETE /api/courses/:id (admin)
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.courses.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/courses/:id/enroll (admin)
func (h *CourseHandler) Enroll(c *gin.Context) {
	var req enrollRequest
	if !bindAndValidate(c, &req) {
		return
	}

	enrollment, err := h.courses.Enroll(requestContext(c), req.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusCreated, enrollment)
}
