package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/edunext/edunext/internal/database/testutil"
	"github.com/edunext/edunext/internal/models"
	"github.com/edunext/edunext/pkg/ai"
)

func newTaskFixture(t *testing.T, db *gorm.DB, grader ai.Client) (*TaskService, *ProgressService) {
	t.Helper()

	progress, err := NewProgressService(db)
	require.NoError(t, err)
	tasks, err := NewTaskService(db, grader, progress)
	require.NoError(t, err)

	return tasks, progress
}

func assignTestTask(t *testing.T, tasks *TaskService, userID string) *models.Task {
	t.Helper()

	task, err := tasks.Create(context.Background(), TaskInput{
		UserID:      userID,
		Prompt:      "Write a function that reverses a slice.",
		AnswerRight: "for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 { s[i], s[j] = s[j], s[i] }",
	})
	require.NoError(t, err)
	return task
}

func TestCreateTask(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	tasks, _ := newTaskFixture(t, db, nil)
	user := createServiceTestUser(t, db, "assignee@example.com")

	task := assignTestTask(t, tasks, user.ID)
	require.NotEmpty(t, task.ID)
	require.False(t, task.IsAnswerRight)
}

func TestListForUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	tasks, _ := newTaskFixture(t, db, nil)
	user := createServiceTestUser(t, db, "tasklist@example.com")
	other := createServiceTestUser(t, db, "othertasks@example.com")

	assignTestTask(t, tasks, user.ID)
	assignTestTask(t, tasks, other.ID)

	listed, err := tasks.ListForUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, user.ID, listed[0].UserID)
}

func TestGradePass(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate(), testutil.WithSeedData())
	grader := &stubAI{reply: "true"}
	tasks, _ := newTaskFixture(t, db, grader)
	user := createServiceTestUser(t, db, "passes@example.com")
	task := assignTestTask(t, tasks, user.ID)

	result, err := tasks.Grade(context.Background(), user.ID, task.ID, "my solution")
	require.NoError(t, err)
	require.True(t, result.Passed)
	require.Equal(t, 1, result.Stats.TaskStreak)
	require.Equal(t, 1, result.Stats.MaxStreak)

	stored, err := tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	require.True(t, stored.IsAnswerRight)
	require.Equal(t, "my solution", stored.AnswerUser)

	// The grader saw the reference solution and the student answer.
	require.Len(t, grader.prompts, 1)
	require.Contains(t, grader.prompts[0], task.Prompt)
	require.Contains(t, grader.prompts[0], "my solution")
}

func TestGradeFailResetsStreak(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate(), testutil.WithSeedData())
	grader := &stubAI{reply: "true"}
	tasks, progress := newTaskFixture(t, db, grader)
	user := createServiceTestUser(t, db, "fails@example.com")

	first := assignTestTask(t, tasks, user.ID)
	second := assignTestTask(t, tasks, user.ID)

	_, err := tasks.Grade(context.Background(), user.ID, first.ID, "good answer")
	require.NoError(t, err)

	// Verdicts are parsed leniently around casing and punctuation.
	grader.reply = "False."
	result, err := tasks.Grade(context.Background(), user.ID, second.ID, "bad answer")
	require.NoError(t, err)
	require.False(t, result.Passed)
	require.Equal(t, 0, result.Stats.TaskStreak)
	require.Equal(t, 1, result.Stats.MaxStreak)

	stats, err := progress.StatsFor(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 0, stats.TaskStreak)
}

func TestGradeSolvedTaskForbidden(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate(), testutil.WithSeedData())
	grader := &stubAI{reply: "true"}
	tasks, _ := newTaskFixture(t, db, grader)
	user := createServiceTestUser(t, db, "solved@example.com")
	task := assignTestTask(t, tasks, user.ID)

	_, err := tasks.Grade(context.Background(), user.ID, task.ID, "solution")
	require.NoError(t, err)

	_, err = tasks.Grade(context.Background(), user.ID, task.ID, "solution again")
	require.ErrorIs(t, err, ErrTaskAlreadySolved)
}

func TestGradeFailedTaskCanRetry(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate(), testutil.WithSeedData())
	grader := &stubAI{reply: "false"}
	tasks, _ := newTaskFixture(t, db, grader)
	user := createServiceTestUser(t, db, "retry@example.com")
	task := assignTestTask(t, tasks, user.ID)

	_, err := tasks.Grade(context.Background(), user.ID, task.ID, "wrong")
	require.NoError(t, err)

	grader.reply = "true"
	result, err := tasks.Grade(context.Background(), user.ID, task.ID, "right this time")
	require.NoError(t, err)
	require.True(t, result.Passed)
}

func TestGradeUnparsableVerdict(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate(), testutil.WithSeedData())
	grader := &stubAI{reply: "probably fine"}
	tasks, progress := newTaskFixture(t, db, grader)
	user := createServiceTestUser(t, db, "garbled@example.com")
	task := assignTestTask(t, tasks, user.ID)

	_, err := tasks.Grade(context.Background(), user.ID, task.ID, "solution")
	require.ErrorIs(t, err, ErrVerdictUnparsable)

	// An unparsable verdict must not touch the task or the ledger.
	stored, err := tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	require.False(t, stored.IsAnswerRight)
	require.Empty(t, stored.AnswerUser)

	stats, err := progress.StatsFor(context.Background(), user.ID)
	require.NoError(t, err)
	require.Zero(t, stats.TaskStreak)
}

func TestGradeForeignTask(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate(), testutil.WithSeedData())
	grader := &stubAI{reply: "true"}
	tasks, _ := newTaskFixture(t, db, grader)
	owner := createServiceTestUser(t, db, "owner@example.com")
	intruder := createServiceTestUser(t, db, "intruder@example.com")
	task := assignTestTask(t, tasks, owner.ID)

	_, err := tasks.Grade(context.Background(), intruder.ID, task.ID, "stolen answer")
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestGradeWithoutGrader(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	tasks, _ := newTaskFixture(t, db, nil)
	user := createServiceTestUser(t, db, "nograder@example.com")
	task := assignTestTask(t, tasks, user.ID)

	_, err := tasks.Grade(context.Background(), user.ID, task.ID, "solution")
	require.ErrorIs(t, err, ai.ErrDisabled)
}

func TestGraderFailurePropagates(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	grader := &stubAI{err: errors.New("upstream timeout")}
	tasks, _ := newTaskFixture(t, db, grader)
	user := createServiceTestUser(t, db, "timeout@example.com")
	task := assignTestTask(t, tasks, user.ID)

	_, err := tasks.Grade(context.Background(), user.ID, task.ID, "solution")
	require.Error(t, err)
	require.Contains(t, err.Error(), "upstream timeout")
}
