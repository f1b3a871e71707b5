package models

import "time"

// Badge kinds map one-to-one onto the progress counters they observe.
const (
	BadgeKindLessonComplete = "lesson_complete"
	BadgeKindTasksStreak    = "tasks_streak"
	BadgeKindCourseComplete = "course_complete"
)

// Badge is static reference data: a kind plus the counter threshold at which
// the badge is granted.
type Badge struct {
	BaseModel

	Kind        string `gorm:"not null;index" json:"kind"`
	Threshold   int    `gorm:"not null" json:"threshold"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
}

// UserBadge records a permanent grant. The composite unique index is the
// store-level guarantee that concurrent re-evaluation cannot double-grant.
type UserBadge struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge" json:"user_id"`
	BadgeID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	Badge     *Badge    `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	CreatedAt time.Time `json:"awarded_at"`
}
