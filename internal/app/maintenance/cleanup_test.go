package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/edunext/edunext/internal/auth"
	"github.com/edunext/edunext/internal/database/testutil"
	"github.com/edunext/edunext/internal/models"
)

func createMaintenanceUser(t *testing.T, db *gorm.DB, email string, verified bool) *models.User {
	t.Helper()

	user := &models.User{
		FirstName:     "Test",
		Surname:       "User",
		Email:         email,
		Password:      "hash",
		EmailVerified: verified,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRunOncePurgesExpiredTokens(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := createMaintenanceUser(t, db, "sweep@example.com", false)

	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sessions, err := iauth.NewSessionService(db, iauth.SessionConfig{
		TokenTTL: time.Hour,
		Clock:    func() time.Time { return current },
	})
	require.NoError(t, err)

	expired, _, err := sessions.Issue(context.Background(), user.ID)
	require.NoError(t, err)

	current = current.Add(30 * time.Minute)
	live, _, err := sessions.Issue(context.Background(), user.ID)
	require.NoError(t, err)

	current = current.Add(45 * time.Minute)

	cleaner := NewCleaner(db, sessions)
	require.NoError(t, cleaner.RunOnce(context.Background()))

	_, err = sessions.Validate(context.Background(), expired)
	require.ErrorIs(t, err, iauth.ErrTokenNotFound)

	// Unexpired tokens survive the sweep.
	userID, err := sessions.Validate(context.Background(), live)
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)
}

func TestCleanupStaleCodes(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	verified := createMaintenanceUser(t, db, "done@example.com", true)
	pending := createMaintenanceUser(t, db, "waiting@example.com", false)

	require.NoError(t, db.Create(&models.VerificationCode{UserID: verified.ID, CodeHash: "hash-a"}).Error)
	require.NoError(t, db.Create(&models.VerificationCode{UserID: pending.ID, CodeHash: "hash-b"}).Error)

	removed, err := CleanupStaleCodes(context.Background(), db)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var count int64
	require.NoError(t, db.Model(&models.VerificationCode{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var remaining models.VerificationCode
	require.NoError(t, db.Take(&remaining).Error)
	require.Equal(t, pending.ID, remaining.UserID)
}

func TestCleanerStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	sessions, err := iauth.NewSessionService(db, iauth.SessionConfig{})
	require.NoError(t, err)

	cleaner := NewCleaner(db, sessions)
	require.NoError(t, cleaner.Start())

	ctx := cleaner.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}
