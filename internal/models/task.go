package models

// Task is a per-user programming exercise graded by the AI service. The
// reference solution stays hidden from students until the task is solved.
type Task struct {
	BaseModel

	UserID        string  `gorm:"type:uuid;not null;index" json:"user_id"`
	User          *User   `gorm:"foreignKey:UserID" json:"-"`
	Prompt        string  `gorm:"not null" json:"task"`
	AnswerRight   string  `gorm:"not null" json:"-"`
	AnswerUser    string  `json:"answer_user,omitempty"`
	IsAnswerRight bool    `gorm:"default:false" json:"is_answer_right"`
	Lesson        *Lesson `gorm:"foreignKey:LessonID" json:"-"`
	LessonID      *string `gorm:"type:uuid;index" json:"lesson_id,omitempty"`
}
