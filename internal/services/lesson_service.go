package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/edunext/edunext/internal/models"
	"github.com/edunext/edunext/pkg/ai"
)

// ErrLessonNotFound indicates the requested lesson does not exist.
var ErrLessonNotFound = errors.New("lesson: not found")

// LessonInput carries the fields for creating a lesson.
type LessonInput struct {
	Title            string `json:"title" validate:"required,max=200"`
	Description      string `json:"description" validate:"max=2000"`
	EducationContent string `json:"education_content"`
	DurationMinutes  int    `json:"duration_minutes" validate:"gte=0"`
}

// LessonUpdateInput carries optional lesson changes. Nil fields are left
// untouched.
type LessonUpdateInput struct {
	Title            *string `json:"title" validate:"omitempty,max=200"`
	Description      *string `json:"description" validate:"omitempty,max=2000"`
	EducationContent *string `json:"education_content"`
	DurationMinutes  *int    `json:"duration_minutes" validate:"omitempty,gte=0"`
}

// CompletionResult reports the outcome of a lesson completion attempt.
type CompletionResult struct {
	AlreadyCompleted bool                  `json:"already_completed"`
	CourseCompleted  bool                  `json:"course_completed"`
	Stats            *models.ProgressStats `json:"stats,omitempty"`
}

// LessonService manages lesson content, completion flags and the AI tutor.
// Completing a lesson feeds the progress ledger exactly once per (user,
// lesson) pair; finishing the last open lesson of a course records a course
// completion in the same transaction.
type LessonService struct {
	db       *gorm.DB
	progress *ProgressService
	tutor    ai.Client
}

// NewLessonService wires the lesson workflows over their collaborators. The
// tutor client may be nil; AskQuestion then reports the service as disabled.
func NewLessonService(db *gorm.DB, progress *ProgressService, tutor ai.Client) (*LessonService, error) {
	if db == nil {
		return nil, errors.New("lesson service: db is required")
	}
	if progress == nil {
		return nil, errors.New("lesson service: progress service is required")
	}
	return &LessonService{db: db, progress: progress, tutor: tutor}, nil
}

// Create adds a lesson to the course. Admin surface only.
func (s *LessonService) Create(ctx context.Context, courseID string, input LessonInput) (*models.Lesson, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, ErrCourseNotFound
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Course{}).
		Where("id = ?", courseID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("lesson service: check course: %w", err)
	}
	if count == 0 {
		return nil, ErrCourseNotFound
	}

	lesson := &models.Lesson{
		CourseID:         courseID,
		Title:            strings.TrimSpace(input.Title),
		Description:      strings.TrimSpace(input.Description),
		EducationContent: input.EducationContent,
		DurationMinutes:  input.DurationMinutes,
	}
	if lesson.Title == "" {
		return nil, errors.New("lesson service: title is required")
	}

	if err := s.db.WithContext(ctx).Create(lesson).Error; err != nil {
		return nil, fmt.Errorf("lesson service: create lesson: %w", err)
	}
	return lesson, nil
}

// Update applies the non-nil fields to the lesson. Admin surface only.
func (s *LessonService) Update(ctx context.Context, lessonID string, input LessonUpdateInput) (*models.Lesson, error) {
	lesson, err := s.GetByID(ctx, lessonID)
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
	if input.EducationContent != nil {
		updates["education_content"] = *input.EducationContent
	}
	if input.DurationMinutes != nil {
		updates["duration_minutes"] = *input.DurationMinutes
	}
	if len(updates) == 0 {
		return lesson, nil
	}

	if err := s.db.WithContext(ctx).Model(lesson).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("lesson service: update lesson: %w", err)
	}
	return lesson, nil
}

// Delete removes the lesson and its completion flags. Admin surface only.
func (s *LessonService) Delete(ctx context.Context, lessonID string) error {
	if _, err := s.GetByID(ctx, lessonID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", lessonID).Delete(&models.LessonCompletion{}).Error; err != nil {
			return fmt.Errorf("delete completions: %w", err)
		}
		return tx.Delete(&models.Lesson{}, "id = ?", lessonID).Error
	})
	if err != nil {
		return fmt.Errorf("lesson service: delete lesson: %w", err)
	}
	return nil
}

// GetByID loads a single lesson.
func (s *LessonService) GetByID(ctx context.Context, lessonID string) (*models.Lesson, error) {
	lessonID = strings.TrimSpace(lessonID)
	if lessonID == "" {
		return nil, ErrLessonNotFound
	}

	var lesson models.Lesson
	err := s.db.WithContext(ctx).Take(&lesson, "id = ?", lessonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLessonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lesson service: load lesson: %w", err)
	}
	return &lesson, nil
}

// ListByCourse returns the course's lessons in creation order.
func (s *LessonService) ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error) {
	var lessons []models.Lesson
	err := s.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC, id ASC").
		Find(&lessons).Error
	if err != nil {
		return nil, fmt.Errorf("lesson service: list lessons: %w", err)
	}
	return lessons, nil
}

// Complete marks the lesson finished for the user. The first completion
// feeds the ledger; repeats are flagged AlreadyCompleted and change nothing.
// When the completion closes out the course, a course event is recorded in
// the same transaction.
func (s *LessonService) Complete(ctx context.Context, userID, lessonID string) (*CompletionResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("lesson service: user id is required")
	}

	lesson, err := s.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		completion := models.LessonCompletion{
			UserID:   userID,
			LessonID: lesson.ID,
			CourseID: lesson.CourseID,
		}
		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&completion)
		if insert.Error != nil {
			return fmt.Errorf("record completion: %w", insert.Error)
		}
		if insert.RowsAffected == 0 {
			result.AlreadyCompleted = true
			return nil
		}

		stats, err := s.progress.applyTx(tx, userID, lessonCompletedMutation)
		if err != nil {
			return err
		}
		result.Stats = stats

		done, err := courseFinished(tx, userID, lesson.CourseID)
		if err != nil {
			return err
		}
		if !done {
			return nil
		}

		result.CourseCompleted = true
		stats, err = s.progress.applyTx(tx, userID, courseCompletedMutation)
		if err != nil {
			return err
		}
		result.Stats = stats
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lesson service: complete lesson: %w", err)
	}

	if result.AlreadyCompleted {
		stats, err := s.progress.StatsFor(ctx, userID)
		if err != nil {
			return nil, err
		}
		result.Stats = stats
	}

	return result, nil
}

// courseFinished reports whether the user has completed every lesson the
// course currently has.
func courseFinished(tx *gorm.DB, userID, courseID string) (bool, error) {
	var total int64
	if err := tx.Model(&models.Lesson{}).
		Where("course_id = ?", courseID).
		Count(&total).Error; err != nil {
		return false, fmt.Errorf("count lessons: %w", err)
	}
	if total == 0 {
		return false, nil
	}

	var completed int64
	if err := tx.Model(&models.LessonCompletion{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&completed).Error; err != nil {
		return false, fmt.Errorf("count completions: %w", err)
	}

	return completed >= total, nil
}

// AskQuestion forwards a student question about the lesson to the AI tutor,
// grounding the prompt in the lesson content.
func (s *LessonService) AskQuestion(ctx context.Context, lessonID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("lesson service: question is required")
	}
	if s.tutor == nil {
		return "", ai.ErrDisabled
	}

	lesson, err := s.GetByID(ctx, lessonID)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(
		"You are a tutor helping a student with the lesson %q.\n\nLesson material:\n%s\n\nStudent question: %s\n\nAnswer briefly and stay on the lesson topic.",
		lesson.Title, lesson.EducationContent, question,
	)

	answer, err := s.tutor.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("lesson service: ask tutor: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
