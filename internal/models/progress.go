package models

// ProgressStats holds the per-user achievement counters. Rows are created
// lazily on the first recorded event. LessonsCompleted and CoursesCompleted
// only ever grow; TaskStreak resets to zero on a failed task and MaxStreak
// tracks the highest streak reached.
type ProgressStats struct {
	BaseModel

	UserID           string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	LessonsCompleted int    `gorm:"not null;default:0" json:"lessons_completed"`
	CoursesCompleted int    `gorm:"not null;default:0" json:"courses_completed"`
	TaskStreak       int    `gorm:"not null;default:0" json:"task_streak"`
	MaxStreak        int    `gorm:"not null;default:0" json:"max_streak"`
}
