package database

import (
	"gorm.io/gorm"

	"github.com/edunext/edunext/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.AccessToken{},
		&models.VerificationCode{},
		&models.Course{},
		&models.Enrollment{},
		&models.Lesson{},
		&models.LessonCompletion{},
		&models.Task{},
		&models.ProgressStats{},
		&models.Badge{},
		&models.UserBadge{},
	)
}

// SeedData populates the badge catalogue. Seeding is idempotent: existing
// rows are left untouched.
func SeedData(db *gorm.DB) error {
	badges := []models.Badge{
		{
			BaseModel:   models.BaseModel{ID: "badge-first-lesson"},
			Kind:        models.BadgeKindLessonComplete,
			Threshold:   1,
			Name:        "First Steps",
			Description: "Complete your first lesson",
		},
		{
			BaseModel:   models.BaseModel{ID: "badge-ten-lessons"},
			Kind:        models.BadgeKindLessonComplete,
			Threshold:   10,
			Name:        "Dedicated Learner",
			Description: "Complete ten lessons",
		},
		{
			BaseModel:   models.BaseModel{ID: "badge-fifty-lessons"},
			Kind:        models.BadgeKindLessonComplete,
			Threshold:   50,
			Name:        "Scholar",
			Description: "Complete fifty lessons",
		},
		{
			BaseModel:   models.BaseModel{ID: "badge-streak-three"},
			Kind:        models.BadgeKindTasksStreak,
			Threshold:   3,
			Name:        "On a Roll",
			Description: "Solve three tasks in a row",
		},
		{
			BaseModel:   models.BaseModel{ID: "badge-streak-ten"},
			Kind:        models.BadgeKindTasksStreak,
			Threshold:   10,
			Name:        "Unstoppable",
			Description: "Solve ten tasks in a row",
		},
		{
			BaseModel:   models.BaseModel{ID: "badge-first-course"},
			Kind:        models.BadgeKindCourseComplete,
			Threshold:   1,
			Name:        "Graduate",
			Description: "Finish your first course",
		},
		{
			BaseModel:   models.BaseModel{ID: "badge-five-courses"},
			Kind:        models.BadgeKindCourseComplete,
			Threshold:   5,
			Name:        "Polymath",
			Description: "Finish five courses",
		},
	}

	for _, badge := range badges {
		if err := db.Where(models.Badge{BaseModel: models.BaseModel{ID: badge.ID}}).
			Attrs(badge).
			FirstOrCreate(&models.Badge{}).Error; err != nil {
			return err
		}
	}

	return nil
}
