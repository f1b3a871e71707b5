package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/edunext/edunext/internal/database/testutil"
	"github.com/edunext/edunext/internal/models"
	"github.com/edunext/edunext/pkg/mail"
)

type recordingMailer struct {
	messages []mail.Message
	err      error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func createServiceTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{
		FirstName: "Test",
		Surname:   "User",
		Email:     email,
		Password:  "hash",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestIssueVerificationCode(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createServiceTestUser(t, db, "codes@example.com")
	mailer := &recordingMailer{}

	svc, err := NewVerificationService(db, mailer)
	require.NoError(t, err)

	code, err := svc.Issue(context.Background(), user.ID, user.Email)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, r := range code {
		require.True(t, r >= '0' && r <= '9')
	}

	var record models.VerificationCode
	require.NoError(t, db.Where("user_id = ?", user.ID).Take(&record).Error)
	require.NotEqual(t, code, record.CodeHash, "plain code must never be stored")

	require.Len(t, mailer.messages, 1)
	require.Equal(t, []string{user.Email}, mailer.messages[0].To)
	require.Contains(t, mailer.messages[0].Body, code)
}

func TestReissueSupersedesActiveCode(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createServiceTestUser(t, db, "reissue@example.com")

	svc, err := NewVerificationService(db, nil)
	require.NoError(t, err)

	first, err := svc.Issue(context.Background(), user.ID, user.Email)
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), user.ID, user.Email)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.VerificationCode{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	if first != second {
		require.ErrorIs(t, svc.Consume(context.Background(), user.ID, first), ErrCodeMismatch)
	}
	require.NoError(t, svc.Consume(context.Background(), user.ID, second))
}

func TestConsumeWithoutActiveCode(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createServiceTestUser(t, db, "nocode@example.com")

	svc, err := NewVerificationService(db, nil)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Consume(context.Background(), user.ID, "123456"), ErrCodeNotFound)
}

func TestConsumeMismatchKeepsCodeActive(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createServiceTestUser(t, db, "mismatch@example.com")

	svc, err := NewVerificationService(db, nil)
	require.NoError(t, err)

	code, err := svc.Issue(context.Background(), user.ID, user.Email)
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	require.ErrorIs(t, svc.Consume(context.Background(), user.ID, wrong), ErrCodeMismatch)

	// The mismatch must not burn the code.
	require.NoError(t, svc.Consume(context.Background(), user.ID, code))
}

func TestConsumeBurnsCode(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createServiceTestUser(t, db, "burn@example.com")

	svc, err := NewVerificationService(db, nil)
	require.NoError(t, err)

	code, err := svc.Issue(context.Background(), user.ID, user.Email)
	require.NoError(t, err)

	require.NoError(t, svc.Consume(context.Background(), user.ID, code))
	require.ErrorIs(t, svc.Consume(context.Background(), user.ID, code), ErrCodeNotFound)

	active, err := svc.HasActiveCode(context.Background(), user.ID)
	require.NoError(t, err)
	require.False(t, active)
}

func TestIssueSurvivesMailerFailure(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createServiceTestUser(t, db, "mailfail@example.com")
	mailer := &recordingMailer{err: errors.New("smtp unreachable")}

	svc, err := NewVerificationService(db, mailer)
	require.NoError(t, err)

	code, err := svc.Issue(context.Background(), user.ID, user.Email)
	require.NoError(t, err)

	// The code is usable even though delivery failed.
	require.NoError(t, svc.Consume(context.Background(), user.ID, code))
}

func TestCodeLengthOption(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createServiceTestUser(t, db, "longcode@example.com")

	svc, err := NewVerificationService(db, nil, WithCodeLength(8))
	require.NoError(t, err)

	code, err := svc.Issue(context.Background(), user.ID, user.Email)
	require.NoError(t, err)
	require.Len(t, code, 8)
}
