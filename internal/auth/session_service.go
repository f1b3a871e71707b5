package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/edunext/edunext/internal/models"
	"github.com/edunext/edunext/pkg/crypto"
	"github.com/edunext/edunext/pkg/metrics"
)

// Defaults applied when SessionConfig leaves a field unset.
const (
	// DefaultMaxSessions caps the number of live tokens per user.
	DefaultMaxSessions = 3
	// DefaultTokenTTL is the fallback access token lifetime (1440 minutes).
	DefaultTokenTTL = 24 * time.Hour
	// DefaultTokenLength is the number of random bytes in a generated token.
	DefaultTokenLength = 48
)

var (
	// ErrTokenNotFound indicates that no token matches the provided value.
	ErrTokenNotFound = errors.New("session: token not found")
	// ErrTokenExpired signals that the token existed but its expiry has passed.
	// The row is removed as a side effect, so a retry yields ErrTokenNotFound.
	ErrTokenExpired = errors.New("session: token expired")
)

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	MaxSessions int
	TokenTTL    time.Duration
	TokenLength int
	Clock       func() time.Time
}

// SessionService owns the access token lifecycle: issuance with a per-user
// cap, lazy expiry on validation, and explicit revocation. Tokens are stored
// only as SHA-256 digests; the raw value leaves Issue exactly once.
type SessionService struct {
	db          *gorm.DB
	maxSessions int
	ttl         time.Duration
	tokenLen    int
	now         func() time.Time
}

// NewSessionService constructs a session manager backed by the provided database.
func NewSessionService(db *gorm.DB, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}

	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	length := cfg.TokenLength
	if length <= 0 {
		length = DefaultTokenLength
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &SessionService{
		db:          db,
		maxSessions: maxSessions,
		ttl:         ttl,
		tokenLen:    length,
		now:         clock,
	}, nil
}

// Issue generates a fresh token for the user and returns the raw value.
// The count-evict-insert sequence runs inside one transaction so concurrent
// logins cannot push a user past the session cap.
func (s *SessionService) Issue(ctx context.Context, userID string) (string, *models.AccessToken, error) {
	if strings.TrimSpace(userID) == "" {
		return "", nil, errors.New("session service: user id is required")
	}

	raw, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return "", nil, fmt.Errorf("session service: generate token: %w", err)
	}

	now := s.now()
	token := &models.AccessToken{
		UserID:    userID,
		TokenHash: crypto.HashToken(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.AccessToken{}).
			Where("user_id = ?", userID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("count tokens: %w", err)
		}

		if count >= int64(s.maxSessions) {
			// FIFO eviction: strictly oldest by creation time, ties broken
			// by the lowest sequence id.
			var oldest models.AccessToken
			err := tx.Where("user_id = ?", userID).
				Order("created_at ASC, id ASC").
				Take(&oldest).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("find oldest token: %w", err)
			}
			if err == nil {
				if err := tx.Delete(&models.AccessToken{}, oldest.ID).Error; err != nil {
					return fmt.Errorf("evict oldest token: %w", err)
				}
				metrics.SessionEvictions.Inc()
				metrics.ActiveSessions.Dec()
			}
		}

		return tx.Create(token).Error
	})
	if err != nil {
		return "", nil, fmt.Errorf("session service: issue token: %w", err)
	}

	metrics.ActiveSessions.Inc()

	return raw, token, nil
}

// Validate resolves a raw token to the owning user id. Expiry is enforced
// lazily here: an expired row is deleted on detection and reported as
// ErrTokenExpired; a later lookup of the same token yields ErrTokenNotFound.
func (s *SessionService) Validate(ctx context.Context, rawToken string) (string, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return "", ErrTokenNotFound
	}

	var token models.AccessToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ?", crypto.HashToken(rawToken)).
		Take(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("session service: find token: %w", err)
	}

	if token.ExpiresAt.Before(s.now()) {
		// A concurrent validation may already have deleted the row; zero
		// rows affected still counts as a successful expiry.
		result := s.db.WithContext(ctx).Delete(&models.AccessToken{}, token.ID)
		if result.Error != nil {
			return "", fmt.Errorf("session service: delete expired token: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			metrics.ActiveSessions.Sub(float64(result.RowsAffected))
		}
		return "", ErrTokenExpired
	}

	return token.UserID, nil
}

// Revoke deletes the token row by digest. Revoking an unknown or already
// lapsed token is an error so client bugs surface instead of being absorbed.
func (s *SessionService) Revoke(ctx context.Context, rawToken string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return ErrTokenNotFound
	}

	result := s.db.WithContext(ctx).
		Where("token_hash = ?", crypto.HashToken(rawToken)).
		Delete(&models.AccessToken{})
	if result.Error != nil {
		return fmt.Errorf("session service: revoke token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}

	metrics.ActiveSessions.Sub(float64(result.RowsAffected))

	return nil
}

// CleanupExpired bulk-deletes expired rows. Lazy expiry in Validate remains
// the enforcement point; this only trims rows nobody looked up again.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.AccessToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: cleanup expired tokens: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	}

	return result.RowsAffected, nil
}
