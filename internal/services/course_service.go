package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/edunext/edunext/internal/models"
)

var (
	// ErrCourseNotFound indicates the requested course does not exist.
	ErrCourseNotFound = errors.New("course: not found")
	// ErrAlreadyEnrolled indicates the user already holds an enrollment.
	ErrAlreadyEnrolled = errors.New("course: already enrolled")
)

// CourseInput carries the fields for creating a course.
type CourseInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Price       int    `json:"price" validate:"gte=0"`
}

// CourseUpdateInput carries optional course changes. Nil fields are left
// untouched.
type CourseUpdateInput struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Price       *int    `json:"price" validate:"omitempty,gte=0"`
}

// CourseService manages the course catalogue and enrollments.
type CourseService struct {
	db *gorm.DB
}

// NewCourseService constructs the catalogue service.
func NewCourseService(db *gorm.DB) (*CourseService, error) {
	if db == nil {
		return nil, errors.New("course service: db is required")
	}
	return &CourseService{db: db}, nil
}

// Create adds a course to the catalogue. Admin surface only.
func (s *CourseService) Create(ctx context.Context, input CourseInput) (*models.Course, error) {
	course := &models.Course{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
	}
	if course.Title == "" {
		return nil, errors.New("course service: title is required")
	}

	if err := s.db.WithContext(ctx).Create(course).Error; err != nil {
		return nil, fmt.Errorf("course service: create course: %w", err)
	}
	return course, nil
}

// Update applies the non-nil fields to the course. Admin surface only.
func (s *CourseService) Update(ctx context.Context, courseID string, input CourseUpdateInput) (*models.Course, error) {
	course, err := s.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		updates["price"] = *input.Price
	}
	if len(updates) == 0 {
		return course, nil
	}

	if err := s.db.WithContext(ctx).Model(course).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("course service: update course: %w", err)
	}
	return course, nil
}

// Delete removes the course with its lessons, completions and enrollments.
// Admin surface only.
func (s *CourseService) Delete(ctx context.Context, courseID string) error {
	if _, err := s.GetByID(ctx, courseID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", courseID).Delete(&models.LessonCompletion{}).Error; err != nil {
			return fmt.Errorf("delete completions: %w", err)
		}
		if err := tx.Where("course_id = ?", courseID).Delete(&models.Lesson{}).Error; err != nil {
			return fmt.Errorf("delete lessons: %w", err)
		}
		if err := tx.Where("course_id = ?", courseID).Delete(&models.Enrollment{}).Error; err != nil {
			return fmt.Errorf("delete enrollments: %w", err)
		}
		return tx.Delete(&models.Course{}, "id = ?", courseID).Error
	})
	if err != nil {
		return fmt.Errorf("course service: delete course: %w", err)
	}
	return nil
}

// GetByID loads a single course with its lessons.
func (s *CourseService) GetByID(ctx context.Context, courseID string) (*models.Course, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, ErrCourseNotFound
	}

	var course models.Course
	err := s.db.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("lessons.created_at ASC")
		}).
		Take(&course, "id = ?", courseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("course service: load course: %w", err)
	}
	return &course, nil
}

// List returns the whole catalogue ordered by creation time.
func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&courses).Error
	if err != nil {
		return nil, fmt.Errorf("course service: list courses: %w", err)
	}
	return courses, nil
}

// Enroll registers the user into the course. Enrolling twice is reported as
// ErrAlreadyEnrolled via the (user_id, course_id) unique index.
func (s *CourseService) Enroll(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	if _, err := s.GetByID(ctx, courseID); err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{UserID: userID, CourseID: courseID}
	if err := s.db.WithContext(ctx).Create(enrollment).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("course service: enroll: %w", err)
	}
	return enrollment, nil
}

// ListEnrolled returns the courses the user is enrolled in, oldest first.
func (s *CourseService) ListEnrolled(ctx context.Context, userID string) ([]models.Course, error) {
	var courses []models.Course
	err := s.db.WithContext(ctx).
		Joins("JOIN enrollments ON enrollments.course_id = courses.id").
		Where("enrollments.user_id = ?", userID).
		Order("enrollments.created_at ASC, enrollments.id ASC").
		Find(&courses).Error
	if err != nil {
		return nil, fmt.Errorf("course service: list enrolled: %w", err)
	}
	return courses, nil
}
