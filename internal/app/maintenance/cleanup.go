package maintenance

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	iauth "github.com/edunext/edunext/internal/auth"
	"github.com/edunext/edunext/internal/models"
	"github.com/edunext/edunext/pkg/logger"
)

const (
	defaultTokenSpec = "@hourly"
	defaultCodeSpec  = "@daily"
)

// Cleaner coordinates background maintenance: purging expired access tokens
// and sweeping verification codes that verified accounts no longer need.
// Lazy expiry on validation remains the enforcement point; these jobs only
// trim rows nobody will look up again.
type Cleaner struct {
	db       *gorm.DB
	sessions *iauth.SessionService
	cron     *cron.Cron
	log      *zap.Logger

	tokenSchedule string
	codeSchedule  string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithTokenSchedule overrides the cron specification for token cleanup.
func WithTokenSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.tokenSchedule = spec
		}
	}
}

// WithCodeSchedule overrides the cron specification for verification code cleanup.
func WithCodeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.codeSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil session
// service skips the token job.
func NewCleaner(db *gorm.DB, sessions *iauth.SessionService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:            db,
		sessions:      sessions,
		tokenSchedule: defaultTokenSpec,
		codeSchedule:  defaultCodeSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the cleanup jobs and launches the scheduler.
func (c *Cleaner) Start() error {
	if c.sessions != nil {
		if _, err := c.cron.AddFunc(c.tokenSchedule, func() {
			if _, err := c.sessions.CleanupExpired(context.Background()); err != nil {
				c.log.Warn("token cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.db != nil {
		if _, err := c.cron.AddFunc(c.codeSchedule, func() {
			if _, err := CleanupStaleCodes(context.Background(), c.db); err != nil {
				c.log.Warn("verification code cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.sessions != nil {
		if _, err := c.sessions.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.db != nil {
		if _, err := CleanupStaleCodes(ctx, c.db); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// CleanupStaleCodes removes verification codes whose owner is already
// verified. Codes have no expiry, so this is the only way such rows leave
// the table outside of a successful Consume.
func CleanupStaleCodes(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, nil
	}

	result := db.WithContext(ctx).
		Where("user_id IN (?)", db.Model(&models.User{}).
			Select("id").
			Where("email_verified = ?", true)).
		Delete(&models.VerificationCode{})
	if result.Error != nil {
		return 0, fmt.Errorf("maintenance: cleanup stale codes: %w", result.Error)
	}

	return result.RowsAffected, nil
}
