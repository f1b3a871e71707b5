package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edunext/edunext/internal/auth"
	"github.com/edunext/edunext/internal/models"
	"github.com/edunext/edunext/pkg/crypto"
	apperrors "github.com/edunext/edunext/pkg/errors"
	"github.com/edunext/edunext/pkg/logger"
	"github.com/edunext/edunext/pkg/metrics"
)

var (
	// ErrEmailTaken indicates a registration against an existing email.
	ErrEmailTaken = errors.New("user: email already registered")
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user: not found")
)

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	Surname   string `json:"surname" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

// UpdateProfileInput carries optional profile changes. Nil fields are left
// untouched.
type UpdateProfileInput struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	Surname   *string `json:"surname" validate:"omitempty,max=100"`
}

// UserServiceOption customises the UserService.
type UserServiceOption func(*UserService)

// WithUserClock injects a custom time source.
func WithUserClock(clock func() time.Time) UserServiceOption {
	return func(s *UserService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// UserService owns the account lifecycle: registration with hashed
// credentials, login issuing capped session tokens, and email verification.
type UserService struct {
	db           *gorm.DB
	sessions     *auth.SessionService
	verification *VerificationService
	now          func() time.Time
}

// NewUserService wires the account lifecycle over its collaborators.
func NewUserService(db *gorm.DB, sessions *auth.SessionService, verification *VerificationService, opts ...UserServiceOption) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if sessions == nil {
		return nil, errors.New("user service: session service is required")
	}
	if verification == nil {
		return nil, errors.New("user service: verification service is required")
	}

	service := &UserService{
		db:           db,
		sessions:     sessions,
		verification: verification,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Register creates an account with a bcrypt-hashed password and issues the
// first verification code. Registering an email that is already taken is a
// conflict, not a silent success: a second sign-up with a different password
// must never look like it worked.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := normaliseEmail(input.Email)
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		FirstName: strings.TrimSpace(input.FirstName),
		Surname:   strings.TrimSpace(input.Surname),
		Email:     email,
		Password:  hash,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	if _, err := s.verification.Issue(ctx, user.ID, user.Email); err != nil {
		// The account exists; the user can request another code.
		logger.WithModule("users").Warn("failed to issue verification code",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	return user, nil
}

// Login verifies the credentials and issues a session token. The same
// InvalidCredentials error covers unknown emails and wrong passwords so the
// response does not leak which accounts exist.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = normaliseEmail(email)

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, "", apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("user service: find user: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, "", apperrors.ErrInvalidCredentials
	}

	token, _, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("user service: issue session: %w", err)
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("last_login_at", now).Error; err != nil {
		return nil, "", fmt.Errorf("user service: record login time: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()

	return &user, token, nil
}

// Logout revokes the presented session token.
func (s *UserService) Logout(ctx context.Context, rawToken string) error {
	return s.sessions.Revoke(ctx, rawToken)
}

// RequestVerification reissues the verification code for an unverified user.
func (s *UserService) RequestVerification(ctx context.Context, userID string) error {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return apperrors.NewBadRequest("email is already verified")
	}

	if _, err := s.verification.Issue(ctx, user.ID, user.Email); err != nil {
		return fmt.Errorf("user service: reissue code: %w", err)
	}
	return nil
}

// VerifyEmail consumes the submitted code and marks the account verified.
func (s *UserService) VerifyEmail(ctx context.Context, userID, code string) error {
	if err := s.verification.Consume(ctx, userID, code); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("email_verified", true).Error
	if err != nil {
		return fmt.Errorf("user service: mark verified: %w", err)
	}
	return nil
}

// GetByID loads a single user.
func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserNotFound
	}

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// List returns all users ordered by creation time. Admin surface only.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("user service: list users: %w", err)
	}
	return users, nil
}

// UpdateProfile applies the non-nil fields to the user's profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.Surname != nil {
		updates["surname"] = strings.TrimSpace(*input.Surname)
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: update profile: %w", err)
	}
	return user, nil
}

// ChangePassword rotates the password after checking the current one. All
// existing sessions are revoked so a stolen token dies with the old password.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !crypto.VerifyPassword(user.Password, current) {
		return apperrors.ErrInvalidCredentials
	}

	hash, err := crypto.HashPassword(next)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("password", hash).Error; err != nil {
			return fmt.Errorf("store password: %w", err)
		}
		return tx.Where("user_id = ?", userID).Delete(&models.AccessToken{}).Error
	})
	if err != nil {
		return fmt.Errorf("user service: change password: %w", err)
	}
	return nil
}

// SetAdminStatus toggles the admin flag. Admin surface only.
func (s *UserService) SetAdminStatus(ctx context.Context, userID string, isAdmin bool) (*models.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Update("is_admin", isAdmin).Error; err != nil {
		return nil, fmt.Errorf("user service: set admin status: %w", err)
	}
	return user, nil
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
