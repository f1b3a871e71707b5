package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edunext/edunext/internal/middleware"
	"github.com/edunext/edunext/internal/models"
	"github.com/edunext/edunext/internal/services"
	apperrors "github.com/edunext/edunext/pkg/errors"
	"github.com/edunext/edunext/pkg/response"
)

// AuthHandler manages the account flows: register, login, logout, profile
// and email verification.
type AuthHandler struct {
	users *services.UserService
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type verifyEmailRequest struct {
	Code string `json:"code" validate:"required,numeric"`
}

func userPayload(user *models.User) gin.H {
	return gin.H{
		"id":             user.ID,
		"first_name":     user.FirstName,
		"surname":        user.Surname,
		"email":          user.Email,
		"is_admin":       user.IsAdmin,
		"email_verified": user.EmailVerified,
		"last_login_at":  user.LastLoginAt,
	}
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterInput
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Register(requestContext(c), req)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusCreated, userPayload(user))
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, token, err := h.users.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"access_token": token,
		"user":         userPayload(user),
	})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.users.Logout(requestContext(c), token); err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, userPayload(user))
}

// POST /api/auth/verify
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var req verifyEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.users.VerifyEmail(requestContext(c), user.ID, req.Code); err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"email_verified": true})
}

// POST /api/auth/verify/resend
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.users.RequestVerification(requestContext(c), user.ID); err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sent": true})
}
