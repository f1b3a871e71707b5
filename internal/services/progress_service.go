package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/edunext/edunext/internal/models"
	"github.com/edunext/edunext/pkg/logger"
	"github.com/edunext/edunext/pkg/metrics"
)

// ProgressService maintains the per-user achievement ledger: monotonic
// completion counters, the task answer streak, and badge grants derived from
// them. Counter updates and badge evaluation run in one transaction so a
// crash can never record progress without its badges.
type ProgressService struct {
	db *gorm.DB
}

// NewProgressService constructs the ledger over the provided database.
func NewProgressService(db *gorm.DB) (*ProgressService, error) {
	if db == nil {
		return nil, errors.New("progress service: db is required")
	}
	return &ProgressService{db: db}, nil
}

// lessonCompletedMutation bumps the lesson counter.
func lessonCompletedMutation(stats *models.ProgressStats) string {
	stats.LessonsCompleted++
	return models.BadgeKindLessonComplete
}

// courseCompletedMutation bumps the course counter.
func courseCompletedMutation(stats *models.ProgressStats) string {
	stats.CoursesCompleted++
	return models.BadgeKindCourseComplete
}

// taskResultMutation feeds a graded task into the streak. A pass extends the
// streak and may raise the running maximum; a fail resets the streak to zero
// without touching the maximum.
func taskResultMutation(passed bool) func(*models.ProgressStats) string {
	return func(stats *models.ProgressStats) string {
		if !passed {
			stats.TaskStreak = 0
			return ""
		}
		stats.TaskStreak++
		if stats.TaskStreak > stats.MaxStreak {
			stats.MaxStreak = stats.TaskStreak
		}
		return models.BadgeKindTasksStreak
	}
}

// RecordLessonCompleted bumps the lesson counter and evaluates lesson badges.
// Callers are responsible for calling this once per distinct lesson.
func (s *ProgressService) RecordLessonCompleted(ctx context.Context, userID string) (*models.ProgressStats, error) {
	return s.apply(ctx, userID, lessonCompletedMutation)
}

// RecordCourseCompleted bumps the course counter and evaluates course badges.
func (s *ProgressService) RecordCourseCompleted(ctx context.Context, userID string) (*models.ProgressStats, error) {
	return s.apply(ctx, userID, courseCompletedMutation)
}

// RecordTaskResult feeds a graded task into the streak.
func (s *ProgressService) RecordTaskResult(ctx context.Context, userID string, passed bool) (*models.ProgressStats, error) {
	return s.apply(ctx, userID, taskResultMutation(passed))
}

// StatsFor returns the user's ledger row, zero-valued when nothing has been
// recorded yet.
func (s *ProgressService) StatsFor(ctx context.Context, userID string) (*models.ProgressStats, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("progress service: user id is required")
	}

	var stats models.ProgressStats
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.ProgressStats{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("progress service: load stats: %w", err)
	}
	return &stats, nil
}

// BadgesFor lists the badges the user has earned, oldest grant first.
func (s *ProgressService) BadgesFor(ctx context.Context, userID string) ([]models.Badge, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("progress service: user id is required")
	}

	var badges []models.Badge
	err := s.db.WithContext(ctx).
		Joins("JOIN user_badges ON user_badges.badge_id = badges.id").
		Where("user_badges.user_id = ?", userID).
		Order("user_badges.created_at ASC, user_badges.id ASC").
		Find(&badges).Error
	if err != nil {
		return nil, fmt.Errorf("progress service: list badges: %w", err)
	}
	return badges, nil
}

// apply runs a single mutation inside its own transaction.
func (s *ProgressService) apply(ctx context.Context, userID string, mutate func(*models.ProgressStats) string) (*models.ProgressStats, error) {
	var stats *models.ProgressStats
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		stats, err = s.applyTx(tx, userID, mutate)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// applyTx loads-or-creates the stats row, mutates it, and evaluates badges of
// the kind the mutation reports. An empty kind skips badge evaluation. It
// runs against the caller's transaction so lesson completion flags and their
// ledger updates commit together.
func (s *ProgressService) applyTx(tx *gorm.DB, userID string, mutate func(*models.ProgressStats) string) (*models.ProgressStats, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("progress service: user id is required")
	}

	var stats models.ProgressStats
	if err := tx.Where(models.ProgressStats{UserID: userID}).
		FirstOrCreate(&stats).Error; err != nil {
		return nil, fmt.Errorf("progress service: load stats: %w", err)
	}

	kind := mutate(&stats)

	if err := tx.Save(&stats).Error; err != nil {
		return nil, fmt.Errorf("progress service: save stats: %w", err)
	}

	if kind != "" {
		if err := s.grantEarnedBadges(tx, userID, kind, counterFor(&stats, kind)); err != nil {
			return nil, fmt.Errorf("progress service: %w", err)
		}
	}

	return &stats, nil
}

// counterFor maps a badge kind to the ledger value its thresholds compare to.
func counterFor(stats *models.ProgressStats, kind string) int {
	switch kind {
	case models.BadgeKindLessonComplete:
		return stats.LessonsCompleted
	case models.BadgeKindCourseComplete:
		return stats.CoursesCompleted
	case models.BadgeKindTasksStreak:
		return stats.TaskStreak
	default:
		return 0
	}
}

// grantEarnedBadges inserts a grant for every badge of the kind whose
// threshold the counter has reached. Idempotency comes from the
// (user_id, badge_id) unique index: a conflicting insert is a no-op, which
// keeps re-evaluation safe on every event.
func (s *ProgressService) grantEarnedBadges(tx *gorm.DB, userID, kind string, counter int) error {
	var badges []models.Badge
	err := tx.Where("kind = ? AND threshold <= ?", kind, counter).
		Order("threshold ASC").
		Find(&badges).Error
	if err != nil {
		return fmt.Errorf("find earned badges: %w", err)
	}

	for _, badge := range badges {
		grant := models.UserBadge{UserID: userID, BadgeID: badge.ID}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant)
		if result.Error != nil {
			return fmt.Errorf("grant badge %s: %w", badge.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			continue
		}

		metrics.BadgeGrants.WithLabelValues(kind).Inc()
		logger.WithModule("progress").Info("badge granted",
			zap.String("user_id", userID),
			zap.String("badge_id", badge.ID),
		)
	}

	return nil
}
