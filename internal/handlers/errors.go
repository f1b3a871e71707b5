package handlers

import (
	"errors"
	"net/http"

	iauth "github.com/edunext/edunext/internal/auth"
	"github.com/edunext/edunext/internal/services"
	"github.com/edunext/edunext/pkg/ai"
	apperrors "github.com/edunext/edunext/pkg/errors"
)

// mapServiceError translates service sentinels into renderable AppErrors.
// Unknown errors fall through to FromError, which hides them behind a 500.
func mapServiceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, iauth.ErrTokenExpired):
		return apperrors.ErrSessionExpired
	case errors.Is(err, iauth.ErrTokenNotFound):
		return apperrors.ErrUnauthorized
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrCourseNotFound),
		errors.Is(err, services.ErrLessonNotFound),
		errors.Is(err, services.ErrTaskNotFound):
		return apperrors.ErrNotFound
	case errors.Is(err, services.ErrEmailTaken):
		return apperrors.New("EMAIL_TAKEN", "Email is already registered", http.StatusConflict)
	case errors.Is(err, services.ErrAlreadyEnrolled):
		return apperrors.New("ALREADY_ENROLLED", "User is already enrolled in this course", http.StatusConflict)
	case errors.Is(err, services.ErrTaskAlreadySolved):
		return apperrors.New("TASK_ALREADY_SOLVED", "Task has already been solved", http.StatusConflict)
	case errors.Is(err, services.ErrCodeNotFound),
		errors.Is(err, services.ErrCodeMismatch):
		return apperrors.NewBadRequest("invalid verification code")
	case errors.Is(err, ai.ErrDisabled):
		return apperrors.New("AI_DISABLED", "AI features are not available", http.StatusServiceUnavailable)
	case errors.Is(err, services.ErrVerdictUnparsable):
		return apperrors.New("GRADER_UNAVAILABLE", "Grading service returned an unusable verdict", http.StatusBadGateway)
	default:
		return err
	}
}
