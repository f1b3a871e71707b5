package auth

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/edunext/edunext/internal/models"
	apperrors "github.com/edunext/edunext/pkg/errors"
)

// Policy composes session resolution with role and enrollment checks. It is
// the single entry point the HTTP layer uses to authorise requests.
type Policy struct {
	db       *gorm.DB
	sessions *SessionService
}

// NewPolicy constructs an access policy over the session store.
func NewPolicy(db *gorm.DB, sessions *SessionService) (*Policy, error) {
	if db == nil {
		return nil, errors.New("policy: db is required")
	}
	if sessions == nil {
		return nil, errors.New("policy: session service is required")
	}
	return &Policy{db: db, sessions: sessions}, nil
}

// Authenticate resolves a bearer token to the owning user record.
func (p *Policy) Authenticate(ctx context.Context, rawToken string) (*models.User, error) {
	userID, err := p.sessions.Validate(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := p.db.WithContext(ctx).Take(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Token outlived the account; treat it as an unknown token.
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("policy: load user: %w", err)
	}

	return &user, nil
}

// RequireAdmin authenticates the token and rejects non-admin users.
func (p *Policy) RequireAdmin(ctx context.Context, rawToken string) (*models.User, error) {
	user, err := p.Authenticate(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		return nil, apperrors.ErrForbidden
	}
	return user, nil
}

// IsEnrolled reports whether the user holds an enrollment for the course.
func (p *Policy) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("policy: check enrollment: %w", err)
	}
	return count > 0, nil
}

// RequireEnrollment fails with Forbidden unless the user is enrolled in the
// course or is an admin.
func (p *Policy) RequireEnrollment(ctx context.Context, user *models.User, courseID string) error {
	if user == nil {
		return apperrors.ErrUnauthorized
	}
	if user.IsAdmin {
		return nil
	}

	enrolled, err := p.IsEnrolled(ctx, user.ID, courseID)
	if err != nil {
		return err
	}
	if !enrolled {
		return apperrors.ErrForbidden
	}
	return nil
}
