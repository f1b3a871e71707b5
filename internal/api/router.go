package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/edunext/edunext/internal/app"
	iauth "github.com/edunext/edunext/internal/auth"
	"github.com/edunext/edunext/internal/handlers"
	"github.com/edunext/edunext/internal/middleware"
	"github.com/edunext/edunext/internal/services"
	"github.com/edunext/edunext/pkg/ai"
	"github.com/edunext/edunext/pkg/mail"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	sessions, err := iauth.NewSessionService(db, iauth.SessionConfig{
		MaxSessions: cfg.Auth.Session.MaxSessions,
		TokenTTL:    cfg.Auth.Session.TokenTTL,
		TokenLength: cfg.Auth.Session.TokenLength,
	})
	if err != nil {
		return nil, err
	}

	policy, err := iauth.NewPolicy(db, sessions)
	if err != nil {
		return nil, err
	}

	mailer, err := mail.NewSMTPMailer(mail.SMTPSettings{
		Enabled:  cfg.Email.SMTP.Enabled,
		Host:     cfg.Email.SMTP.Host,
		Port:     cfg.Email.SMTP.Port,
		Username: cfg.Email.SMTP.Username,
		Password: cfg.Email.SMTP.Password,
		From:     cfg.Email.SMTP.From,
		UseTLS:   cfg.Email.SMTP.UseTLS,
		Timeout:  cfg.Email.SMTP.Timeout,
	})
	if err != nil {
		return nil, err
	}

	tutor, err := ai.NewHTTPClient(ai.Settings{
		Enabled: cfg.AI.Enabled,
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	})
	if err != nil {
		return nil, err
	}

	verification, err := services.NewVerificationService(db, mailer,
		services.WithCodeLength(cfg.Auth.Verification.CodeLength))
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db, sessions, verification)
	if err != nil {
		return nil, err
	}
	progress, err := services.NewProgressService(db)
	if err != nil {
		return nil, err
	}
	courses, err := services.NewCourseService(db)
	if err != nil {
		return nil, err
	}
	lessons, err := services.NewLessonService(db, progress, tutor)
	if err != nil {
		return nil, err
	}
	tasks, err := services.NewTaskService(db, tutor, progress)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	r.NoRoute(middleware.NotFoundHandler)

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(users)
	userHandler := handlers.NewUserHandler(users)
	courseHandler := handlers.NewCourseHandler(courses, policy)
	lessonHandler := handlers.NewLessonHandler(lessons, policy)
	taskHandler := handlers.NewTaskHandler(tasks)
	progressHandler := handlers.NewProgressHandler(progress)

	// Public routes
	public := r.Group("/api")
	{
		public.POST("/auth/register", authHandler.Register)
		public.POST("/auth/login", authHandler.Login)
		public.GET("/courses", courseHandler.List)
	}

	// Authenticated routes
	api := r.Group("/api")
	api.Use(middleware.Auth(policy))

	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/verify", authHandler.VerifyEmail)
	api.POST("/auth/verify/resend", authHandler.ResendVerification)

	api.PATCH("/users/me", userHandler.UpdateProfile)
	api.POST("/users/me/password", userHandler.ChangePassword)

	api.GET("/courses/enrolled", courseHandler.ListEnrolled)
	api.GET("/courses/:id", courseHandler.Get)

	api.GET("/lessons/:id", lessonHandler.Get)
	api.POST("/lessons/:id/complete", lessonHandler.Complete)
	api.POST("/lessons/:id/ask", lessonHandler.Ask)

	api.GET("/tasks", taskHandler.List)
	api.POST("/tasks/:id/grade", taskHandler.Grade)

	api.GET("/progress", progressHandler.Stats)
	api.GET("/progress/badges", progressHandler.Badges)

	// Admin routes
	admin := api.Group("")
	admin.Use(middleware.RequireAdmin())

	admin.GET("/users", userHandler.List)
	admin.GET("/users/:id", userHandler.Get)
	admin.PATCH("/users/:id/admin", userHandler.SetAdmin)

	admin.POST("/courses", courseHandler.Create)
	admin.PATCH("/courses/:id", courseHandler.Update)
	admin.DELETE("/courses/:id", courseHandler.Delete)
	admin.POST("/courses/:id/enroll", courseHandler.Enroll)
	admin.POST("/courses/:id/lessons", lessonHandler.Create)

	admin.PATCH("/lessons/:id", lessonHandler.Update)
	admin.DELETE("/lessons/:id", lessonHandler.Delete)

	admin.POST("/tasks", taskHandler.Create)

	return r, nil
}
