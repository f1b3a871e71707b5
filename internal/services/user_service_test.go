package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/edunext/edunext/internal/auth"
	"github.com/edunext/edunext/internal/database/testutil"
	"github.com/edunext/edunext/internal/models"
	apperrors "github.com/edunext/edunext/pkg/errors"
)

func newUserService(t *testing.T, db *gorm.DB) (*UserService, *auth.SessionService, *VerificationService) {
	t.Helper()

	sessions, err := auth.NewSessionService(db, auth.SessionConfig{})
	require.NoError(t, err)
	verification, err := NewVerificationService(db, nil)
	require.NoError(t, err)
	users, err := NewUserService(db, sessions, verification)
	require.NoError(t, err)

	return users, sessions, verification
}

func registerTestAccount(t *testing.T, users *UserService, email, password string) *models.User {
	t.Helper()

	user, err := users.Register(context.Background(), RegisterInput{
		FirstName: "Ada",
		Surname:   "Lovelace",
		Email:     email,
		Password:  password,
	})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	users, _, verification := newUserService(t, db)

	user := registerTestAccount(t, users, "Ada@Example.com", "correct horse battery")

	require.NotEmpty(t, user.ID)
	require.Equal(t, "ada@example.com", user.Email, "emails are normalised to lower case")
	require.NotEqual(t, "correct horse battery", user.Password, "password must be stored hashed")
	require.False(t, user.EmailVerified)

	// Registration leaves a verification code waiting for the user.
	active, err := verification.HasActiveCode(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, active)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	users, _, _ := newUserService(t, db)

	registerTestAccount(t, users, "dup@example.com", "first password")

	_, err := users.Register(context.Background(), RegisterInput{
		FirstName: "Eve",
		Surname:   "Intruder",
		Email:     "dup@example.com",
		Password:  "other password",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	users, sessions, _ := newUserService(t, db)

	registered := registerTestAccount(t, users, "login@example.com", "correct horse battery")

	user, token, err := users.Login(context.Background(), "login@example.com", "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, registered.ID, user.ID)
	require.NotEmpty(t, token)

	userID, err := sessions.Validate(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, registered.ID, userID)

	stored, err := users.GetByID(context.Background(), registered.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)
}

func TestLoginWrongPassword(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	users, _, _ := newUserService(t, db)

	registerTestAccount(t, users, "wrongpw@example.com", "correct horse battery")

	_, _, err := users.Login(context.Background(), "wrongpw@example.com", "incorrect")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	users, _, _ := newUserService(t, db)

	_, _, err := users.Login(context.Background(), "nobody@example.com", "whatever")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLogout(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	users, sessions, _ := newUserService(t, db)

	registerTestAccount(t, users, "logout@example.com", "correct horse battery")
	_, token, err := users.Login(context.Background(), "logout@example.com", "correct horse battery")
	require.NoError(t, err)

	require.NoError(t, users.Logout(context.Background(), token))

	_, err = sessions.Validate(context.Background(), token)
	require.ErrorIs(t, err, auth.ErrTokenNotFound)
}

func TestVerifyEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	users, _, verification := newUserService(t, db)

	user := registerTestAccount(t, users, "verify@example.com", "correct horse battery")

	// Reissue to learn the code; registration already sent one.
	code, err := verification.Issue(context.Background(), user.ID, user.Email)
	require.NoError(t, err)

	require.ErrorIs(t, users.VerifyEmail(context.Background(), user.ID, "999999"), ErrCodeMismatch)

	require.NoError(t, users.VerifyEmail(context.Background(), user.ID, code))

	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, stored.EmailVerified)

	// A verified account cannot request another code.
	require.Error(t, users.RequestVerification(context.Background(), user.ID))
}

func TestChangePassword(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	users, sessions, _ := newUserService(t, db)

	user := registerTestAccount(t, users, "rotate@example.com", "old password 123")
	_, token, err := users.Login(context.Background(), "rotate@example.com", "old password 123")
	require.NoError(t, err)

	err = users.ChangePassword(context.Background(), user.ID, "not the password", "new password 456")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	require.NoError(t, users.ChangePassword(context.Background(), user.ID, "old password 123", "new password 456"))

	// Rotation revokes every live session.
	_, err = sessions.Validate(context.Background(), token)
	require.ErrorIs(t, err, auth.ErrTokenNotFound)

	_, _, err = users.Login(context.Background(), "rotate@example.com", "old password 123")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, _, err = users.Login(context.Background(), "rotate@example.com", "new password 456")
	require.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	users, _, _ := newUserService(t, db)

	user := registerTestAccount(t, users, "profile@example.com", "correct horse battery")

	surname := "Byron"
	updated, err := users.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{Surname: &surname})
	require.NoError(t, err)
	require.Equal(t, "Ada", updated.FirstName)
	require.Equal(t, "Byron", updated.Surname)
}

func TestSetAdminStatus(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	users, _, _ := newUserService(t, db)

	user := registerTestAccount(t, users, "promote@example.com", "correct horse battery")
	require.False(t, user.IsAdmin)

	promoted, err := users.SetAdminStatus(context.Background(), user.ID, true)
	require.NoError(t, err)
	require.True(t, promoted.IsAdmin)

	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, stored.IsAdmin)
}

func TestGetByIDUnknown(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	users, _, _ := newUserService(t, db)

	_, err := users.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}
