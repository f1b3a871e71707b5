package models

import "time"

// Lesson is a unit of educational content within a course.
type Lesson struct {
	BaseModel

	CourseID         string  `gorm:"type:uuid;not null;index" json:"course_id"`
	Course           *Course `gorm:"foreignKey:CourseID" json:"-"`
	Title            string  `gorm:"not null" json:"title"`
	Description      string  `json:"description"`
	EducationContent string  `json:"education_content,omitempty"`
	DurationMinutes  int     `gorm:"default:0" json:"duration_minutes"`
}

// LessonCompletion marks a lesson as finished by a user. The flag row is
// idempotent; completing an already-completed lesson does not feed the
// progress ledger a second time.
type LessonCompletion struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_lesson" json:"user_id"`
	LessonID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_lesson" json:"lesson_id"`
	CourseID  string    `gorm:"type:uuid;not null;index" json:"course_id"`
	CreatedAt time.Time `json:"completed_at"`
}
