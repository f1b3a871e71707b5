package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edunext/edunext/internal/database/testutil"
	"github.com/edunext/edunext/internal/models"
)

func createTestCourse(t *testing.T, svc *CourseService, title string) *models.Course {
	t.Helper()

	course, err := svc.Create(context.Background(), CourseInput{
		Title:       title,
		Description: "intro course",
		Price:       100,
	})
	require.NoError(t, err)
	return course
}

func TestCreateCourse(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewCourseService(db)
	require.NoError(t, err)

	course := createTestCourse(t, svc, "Go from Scratch")
	require.NotEmpty(t, course.ID)
	require.Equal(t, "Go from Scratch", course.Title)
	require.Equal(t, 100, course.Price)
}

func TestCreateCourseRequiresTitle(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewCourseService(db)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CourseInput{Title: "   "})
	require.Error(t, err)
}

func TestUpdateCourse(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewCourseService(db)
	require.NoError(t, err)

	course := createTestCourse(t, svc, "Draft Title")

	title := "Final Title"
	price := 250
	updated, err := svc.Update(context.Background(), course.ID, CourseUpdateInput{
		Title: &title,
		Price: &price,
	})
	require.NoError(t, err)
	require.Equal(t, "Final Title", updated.Title)
	require.Equal(t, 250, updated.Price)
	require.Equal(t, "intro course", updated.Description, "untouched fields keep their value")
}

func TestUpdateCourseNotFound(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewCourseService(db)
	require.NoError(t, err)

	title := "anything"
	_, err = svc.Update(context.Background(), "missing", CourseUpdateInput{Title: &title})
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestDeleteCourseCascades(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewCourseService(db)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "cascade@example.com")
	course := createTestCourse(t, svc, "Doomed Course")

	lesson := &models.Lesson{CourseID: course.ID, Title: "Only Lesson"}
	require.NoError(t, db.Create(lesson).Error)
	_, err = svc.Enroll(context.Background(), user.ID, course.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), course.ID))

	_, err = svc.GetByID(context.Background(), course.ID)
	require.ErrorIs(t, err, ErrCourseNotFound)

	var lessons int64
	require.NoError(t, db.Model(&models.Lesson{}).Where("course_id = ?", course.ID).Count(&lessons).Error)
	require.Zero(t, lessons)

	var enrollments int64
	require.NoError(t, db.Model(&models.Enrollment{}).Where("course_id = ?", course.ID).Count(&enrollments).Error)
	require.Zero(t, enrollments)
}

func TestGetCourseWithLessons(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewCourseService(db)
	require.NoError(t, err)

	course := createTestCourse(t, svc, "Structured Course")
	require.NoError(t, db.Create(&models.Lesson{CourseID: course.ID, Title: "Lesson One"}).Error)
	require.NoError(t, db.Create(&models.Lesson{CourseID: course.ID, Title: "Lesson Two"}).Error)

	loaded, err := svc.GetByID(context.Background(), course.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Lessons, 2)
}

func TestListCourses(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewCourseService(db)
	require.NoError(t, err)

	createTestCourse(t, svc, "First")
	createTestCourse(t, svc, "Second")

	courses, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 2)
}

func TestEnroll(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewCourseService(db)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "enroll@example.com")
	course := createTestCourse(t, svc, "Popular Course")

	enrollment, err := svc.Enroll(context.Background(), user.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, enrollment.UserID)

	// The (user, course) pair is unique.
	_, err = svc.Enroll(context.Background(), user.ID, course.ID)
	require.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestEnrollUnknownCourse(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewCourseService(db)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "lost@example.com")

	_, err = svc.Enroll(context.Background(), user.ID, "missing-course")
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestListEnrolled(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewCourseService(db)
	require.NoError(t, err)

	user := createServiceTestUser(t, db, "mylist@example.com")
	first := createTestCourse(t, svc, "Enrolled One")
	createTestCourse(t, svc, "Not Enrolled")

	_, err = svc.Enroll(context.Background(), user.ID, first.ID)
	require.NoError(t, err)

	courses, err := svc.ListEnrolled(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, first.ID, courses[0].ID)
}
