package models

import "time"

// Course groups lessons students enroll into.
type Course struct {
	BaseModel

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	Price       int    `gorm:"default:0" json:"price"`

	Lessons []Lesson `gorm:"foreignKey:CourseID" json:"lessons,omitempty"`
}

// Enrollment links a user to a course. One row per (user, course).
type Enrollment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_course" json:"user_id"`
	CourseID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_course" json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}
