package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edunext/edunext/internal/middleware"
	"github.com/edunext/edunext/internal/services"
	apperrors "github.com/edunext/edunext/pkg/errors"
	"github.com/edunext/edunext/pkg/response"
)

// ProgressHandler exposes the achievement ledger: counters and badges.
type ProgressHandler struct {
	progress *services.ProgressService
}

func NewProgressHandler(progress *services.ProgressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

// GET /api/progress
func (h *ProgressHandler) Stats(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	stats, err := h.progress.StatsFor(requestContext(c), user.ID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// GET /api/progress/badges
func (h *ProgressHandler) Badges(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	badges, err := h.progress.BadgesFor(requestContext(c), user.ID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, badges)
}
