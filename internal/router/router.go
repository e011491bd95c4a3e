package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/classtrack-dev/classtrack/internal/handlers"
	"github.com/classtrack-dev/classtrack/internal/middleware"
	"github.com/classtrack-dev/classtrack/internal/types"
)

func NewRouter(database *gorm.DB) *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authHandler := &handlers.AuthHandler{DB: database}
	assignmentHandler := &handlers.AssignmentHandler{DB: database}
	messageHandler := &handlers.MessageHandler{DB: database}
	registrationHandler := &handlers.RegistrationHandler{DB: database}

	authRequired := middleware.AuthMiddleware(database)

	r.GET("/", handlers.Root)

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)

		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", authRequired, authHandler.Me)
			auth.GET("/users", authRequired, authHandler.ListUsers)
			auth.POST("/register-request", authHandler.CreateRegisterRequest)
			auth.GET("/register-requests", authRequired, authHandler.ListRegisterRequests)
			auth.PUT("/register-requests/:request_id", authRequired, authHandler.ReviewRegisterRequest)
		}

		assignments := api.Group("/assignments", authRequired)
		{
			assignments.POST("", assignmentHandler.Create)
			assignments.GET("", assignmentHandler.List)
			assignments.GET("/:assignment_id", assignmentHandler.Get)
			assignments.PUT("/:assignment_id", assignmentHandler.Update)
			assignments.DELETE("/:assignment_id", assignmentHandler.Delete)
			assignments.POST("/:assignment_id/submissions", assignmentHandler.Submit)
			assignments.GET("/:assignment_id/submissions", assignmentHandler.ListSubmissions)
		}

		students := api.Group("/students", authRequired)
		{
			students.GET("/assignments", assignmentHandler.List)
			students.POST("/assignments/:assignment_id/submit", assignmentHandler.Submit)
			students.GET("/submissions", assignmentHandler.ListOwnSubmissions)
		}

		teachers := api.Group("/teachers", authRequired)
		{
			teachers.POST("/assignments", assignmentHandler.Create)
			teachers.GET("/assignments", assignmentHandler.List)
			teachers.GET("/assignments/:assignment_id/submissions", assignmentHandler.ListSubmissions)
			teachers.PUT("/submissions/:submission_id/grade", assignmentHandler.Grade)
		}

		attendance := api.Group("/attendance", authRequired)
		{
			attendance.GET("", handlers.AttendanceNotImplemented)
			attendance.POST("", handlers.AttendanceNotImplemented)
		}

		messages := api.Group("/messages", authRequired)
		{
			messages.POST("", messageHandler.Send)
			messages.GET("", messageHandler.Inbox)
			messages.GET("/sent", messageHandler.Sent)
			messages.GET("/teachers", messageHandler.ListTeachers)
			messages.POST("/send-to-teacher", messageHandler.SendToTeacher)
			messages.GET("/unread/count", messageHandler.UnreadCount)
			messages.GET("/:message_id", messageHandler.Get)
			messages.PUT("/:message_id/read", messageHandler.MarkRead)
		}

		registrations := api.Group("/registration-requests")
		{
			registrations.POST("", registrationHandler.Create)
			registrations.GET("", authRequired, registrationHandler.List)
			registrations.GET("/:request_id", authRequired, registrationHandler.Get)
			registrations.PUT("/:request_id/approve", authRequired, registrationHandler.Approve)
			registrations.PUT("/:request_id/reject", authRequired, registrationHandler.Reject)
			registrations.DELETE("/:request_id", authRequired, registrationHandler.Delete)
		}
	}

	return r
}
