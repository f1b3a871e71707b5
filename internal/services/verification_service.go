package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/edunext/edunext/internal/models"
	"github.com/edunext/edunext/pkg/crypto"
	"github.com/edunext/edunext/pkg/logger"
	"github.com/edunext/edunext/pkg/mail"
)

// defaultCodeLength is the number of digits in a generated verification code.
const defaultCodeLength = 6

var (
	// ErrCodeNotFound indicates the user has no active verification code.
	ErrCodeNotFound = errors.New("verification: code not found")
	// ErrCodeMismatch indicates the submitted code does not match the active one.
	ErrCodeMismatch = errors.New("verification: code mismatch")
)

// VerificationOption customises the VerificationService.
type VerificationOption func(*VerificationService)

// WithCodeLength adjusts the number of digits in generated codes.
func WithCodeLength(length int) VerificationOption {
	return func(s *VerificationService) {
		if length > 0 {
			s.codeLength = length
		}
	}
}

// VerificationService manages email verification codes. Each user holds at
// most one active code: reissuing replaces the previous one, and codes never
// expire on their own.
type VerificationService struct {
	db         *gorm.DB
	mailer     mail.Mailer
	codeLength int
}

// NewVerificationService constructs a verification code manager. The mailer
// may be nil, in which case codes are stored but no email is dispatched.
func NewVerificationService(db *gorm.DB, mailer mail.Mailer, opts ...VerificationOption) (*VerificationService, error) {
	if db == nil {
		return nil, errors.New("verification service: db is required")
	}

	service := &VerificationService{
		db:         db,
		mailer:     mailer,
		codeLength: defaultCodeLength,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Issue generates a fresh numeric code for the user, replacing any code that
// is already active. Only the bcrypt hash is persisted; the plain code is
// returned so callers can surface it in tests or alternative channels.
func (s *VerificationService) Issue(ctx context.Context, userID, email string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("verification service: user id is required")
	}

	code, err := crypto.GenerateNumericCode(s.codeLength)
	if err != nil {
		return "", fmt.Errorf("verification service: generate code: %w", err)
	}

	hash, err := crypto.HashPassword(code)
	if err != nil {
		return "", fmt.Errorf("verification service: hash code: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Supersede: the delete-then-insert pair keeps the per-user
		// uniqueness invariant even when a code already exists.
		if err := tx.Where("user_id = ?", userID).Delete(&models.VerificationCode{}).Error; err != nil {
			return fmt.Errorf("supersede code: %w", err)
		}
		return tx.Create(&models.VerificationCode{
			UserID:   userID,
			CodeHash: hash,
		}).Error
	})
	if err != nil {
		return "", fmt.Errorf("verification service: issue code: %w", err)
	}

	s.dispatch(ctx, email, code)

	return code, nil
}

// Consume checks the submitted code against the user's active one. A match
// burns the code; a mismatch leaves it in place for another attempt.
func (s *VerificationService) Consume(ctx context.Context, userID, code string) error {
	userID = strings.TrimSpace(userID)
	code = strings.TrimSpace(code)
	if userID == "" || code == "" {
		return ErrCodeNotFound
	}

	var record models.VerificationCode
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCodeNotFound
	}
	if err != nil {
		return fmt.Errorf("verification service: find code: %w", err)
	}

	if !crypto.VerifyPassword(record.CodeHash, code) {
		return ErrCodeMismatch
	}

	if err := s.db.WithContext(ctx).Delete(&models.VerificationCode{}, "id = ?", record.ID).Error; err != nil {
		return fmt.Errorf("verification service: burn code: %w", err)
	}

	return nil
}

// HasActiveCode reports whether the user currently holds a code.
func (s *VerificationService) HasActiveCode(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.VerificationCode{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("verification service: count codes: %w", err)
	}
	return count > 0, nil
}

// dispatch emails the code. Delivery is best effort: the code is already
// persisted, so a failed send only costs the user a reissue.
func (s *VerificationService) dispatch(ctx context.Context, email, code string) {
	email = strings.TrimSpace(email)
	if s.mailer == nil || email == "" {
		return
	}

	msg := mail.Message{
		To:      []string{email},
		Subject: "Your EduNext verification code",
		Body:    fmt.Sprintf("Your verification code is %s.\n\nEnter it in the app to confirm your email address.", code),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, mail.ErrSMTPDisabled) {
			return
		}
		logger.Warn("failed to send verification code email",
			zap.Error(err),
			zap.String("email", email),
		)
	}
}
