package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/edunext/edunext/internal/auth"
	"github.com/edunext/edunext/internal/database/testutil"
	"github.com/edunext/edunext/internal/models"
	"github.com/edunext/edunext/pkg/response"
)

func newAuthFixture(t *testing.T) (*gorm.DB, *iauth.Policy, *iauth.SessionService, func() time.Time) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	sessions, err := iauth.NewSessionService(db, iauth.SessionConfig{
		TokenTTL: time.Hour,
		Clock:    clock,
	})
	require.NoError(t, err)

	policy, err := iauth.NewPolicy(db, sessions)
	require.NoError(t, err)

	return db, policy, sessions, clock
}

func createMiddlewareUser(t *testing.T, db *gorm.DB, email string, admin bool) *models.User {
	t.Helper()

	user := &models.User{
		FirstName: "Test",
		Surname:   "User",
		Email:     email,
		Password:  "hash",
		IsAdmin:   admin,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func authRouter(policy *iauth.Policy, adminOnly bool) *gin.Engine {
	router := gin.New()
	group := router.Group("/", Auth(policy))
	if adminOnly {
		group.Use(RequireAdmin())
	}
	group.GET("/whoami", func(c *gin.Context) {
		user := CurrentUser(c)
		response.Success(c, http.StatusOK, gin.H{"id": user.ID, "is_admin": user.IsAdmin})
	})
	return router
}

func doRequest(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func TestAuthMissingHeader(t *testing.T) {
	_, policy, _, _ := newAuthFixture(t)
	rec := doRequest(authRouter(policy, false), "")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
}

func TestAuthUnknownToken(t *testing.T) {
	_, policy, _, _ := newAuthFixture(t)
	rec := doRequest(authRouter(policy, false), "not-a-token")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestAuthValidToken(t *testing.T) {
	db, policy, sessions, _ := newAuthFixture(t)
	user := createMiddlewareUser(t, db, "mw@example.com", false)

	token, _, err := sessions.Issue(context.Background(), user.ID)
	require.NoError(t, err)

	rec := doRequest(authRouter(policy, false), token)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			ID      string `json:"id"`
			IsAdmin bool   `json:"is_admin"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, user.ID, body.Data.ID)
	require.False(t, body.Data.IsAdmin)
}

func TestAuthExpiredToken(t *testing.T) {
	db, _, _, _ := newAuthFixture(t)
	user := createMiddlewareUser(t, db, "stale@example.com", false)

	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sessions, err := iauth.NewSessionService(db, iauth.SessionConfig{
		TokenTTL: time.Hour,
		Clock:    func() time.Time { return current },
	})
	require.NoError(t, err)
	policy, err := iauth.NewPolicy(db, sessions)
	require.NoError(t, err)

	token, _, err := sessions.Issue(context.Background(), user.ID)
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)

	rec := doRequest(authRouter(policy, false), token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "SESSION_EXPIRED", errorCode(t, rec))
}

func TestRequireAdminForbidsStudents(t *testing.T) {
	db, policy, sessions, _ := newAuthFixture(t)
	student := createMiddlewareUser(t, db, "plain@example.com", false)
	admin := createMiddlewareUser(t, db, "boss@example.com", true)

	studentToken, _, err := sessions.Issue(context.Background(), student.ID)
	require.NoError(t, err)
	adminToken, _, err := sessions.Issue(context.Background(), admin.ID)
	require.NoError(t, err)

	router := authRouter(policy, true)

	rec := doRequest(router, studentToken)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "FORBIDDEN", errorCode(t, rec))

	rec = doRequest(router, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
}
