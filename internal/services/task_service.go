package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/edunext/edunext/internal/models"
	"github.com/edunext/edunext/pkg/ai"
)

var (
	// ErrTaskNotFound indicates the requested task does not exist.
	ErrTaskNotFound = errors.New("task: not found")
	// ErrTaskAlreadySolved forbids re-grading a task that has already passed.
	ErrTaskAlreadySolved = errors.New("task: already solved")
	// ErrVerdictUnparsable signals the grader returned neither true nor false.
	ErrVerdictUnparsable = errors.New("task: grader verdict unparsable")
)

// TaskInput carries the fields for assigning a task to a user.
type TaskInput struct {
	UserID      string  `json:"user_id" validate:"required"`
	Prompt      string  `json:"task" validate:"required"`
	AnswerRight string  `json:"answer_right" validate:"required"`
	LessonID    *string `json:"lesson_id"`
}

// GradeResult reports the grading outcome together with the updated ledger.
type GradeResult struct {
	Passed bool                  `json:"passed"`
	Stats  *models.ProgressStats `json:"stats,omitempty"`
}

// TaskService manages per-user exercises and their AI grading. The reference
// solution never leaves the server; the grader sees it, students do not.
type TaskService struct {
	db       *gorm.DB
	grader   ai.Client
	progress *ProgressService
}

// NewTaskService wires task assignment and grading over their collaborators.
func NewTaskService(db *gorm.DB, grader ai.Client, progress *ProgressService) (*TaskService, error) {
	if db == nil {
		return nil, errors.New("task service: db is required")
	}
	if progress == nil {
		return nil, errors.New("task service: progress service is required")
	}
	return &TaskService{db: db, grader: grader, progress: progress}, nil
}

// Create assigns a task to a user. Admin surface only.
func (s *TaskService) Create(ctx context.Context, input TaskInput) (*models.Task, error) {
	task := &models.Task{
		UserID:      strings.TrimSpace(input.UserID),
		Prompt:      strings.TrimSpace(input.Prompt),
		AnswerRight: strings.TrimSpace(input.AnswerRight),
		LessonID:    input.LessonID,
	}
	if task.UserID == "" || task.Prompt == "" || task.AnswerRight == "" {
		return nil, errors.New("task service: user id, prompt and reference answer are required")
	}

	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, fmt.Errorf("task service: create task: %w", err)
	}
	return task, nil
}

// GetByID loads a single task.
func (s *TaskService) GetByID(ctx context.Context, taskID string) (*models.Task, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, ErrTaskNotFound
	}

	var task models.Task
	err := s.db.WithContext(ctx).Take(&task, "id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task service: load task: %w", err)
	}
	return &task, nil
}

// ListForUser returns the user's tasks in creation order. Reference answers
// are excluded from serialisation at the model level.
func (s *TaskService) ListForUser(ctx context.Context, userID string) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("task service: list tasks: %w", err)
	}
	return tasks, nil
}

// Grade submits the student's answer to the AI grader and records the verdict
// in the ledger. A task that already passed stays passed; re-grading it is an
// error so a solved streak entry can never be farmed.
func (s *TaskService) Grade(ctx context.Context, userID, taskID, answer string) (*GradeResult, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, errors.New("task service: answer is required")
	}
	if s.grader == nil {
		return nil, ai.ErrDisabled
	}

	task, err := s.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, ErrTaskNotFound
	}
	if task.IsAnswerRight {
		return nil, ErrTaskAlreadySolved
	}

	passed, err := s.gradeAnswer(ctx, task, answer)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(task).Updates(map[string]any{
		"answer_user":     answer,
		"is_answer_right": passed,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("task service: store verdict: %w", err)
	}

	stats, err := s.progress.RecordTaskResult(ctx, userID, passed)
	if err != nil {
		return nil, err
	}

	return &GradeResult{Passed: passed, Stats: stats}, nil
}

// gradeAnswer asks the AI service for a strict true/false verdict.
func (s *TaskService) gradeAnswer(ctx context.Context, task *models.Task, answer string) (bool, error) {
	prompt := fmt.Sprintf(
		"You are grading a student's answer to a programming task.\n\nTask:\n%s\n\nReference solution:\n%s\n\nStudent answer:\n%s\n\nDoes the student answer solve the task? Reply with exactly one word: true or false.",
		task.Prompt, task.AnswerRight, answer,
	)

	verdict, err := s.grader.Complete(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("task service: grade answer: %w", err)
	}

	switch strings.Trim(strings.ToLower(verdict), " \t\n\r.\"'") {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, ErrVerdictUnparsable
	}
}
