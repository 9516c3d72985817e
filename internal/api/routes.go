package api

import (
	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/service"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Auth       service.AuthService
	Users      service.UserService
	Access     service.AccessService
	Courses    service.CourseService
	Assessment service.AssessmentService
	Media      service.MediaService
	Dashboard  service.DashboardService
}

func SetupRoutes(router *gin.Engine, allowedOrigins []string, svc Services) {
	authHandler := NewAuthHandler(svc.Auth)
	userHandler := NewUserHandler(svc.Users)
	accessHandler := NewAccessHandler(svc.Access)
	courseHandler := NewCourseHandler(svc.Courses)
	assessmentHandler := NewAssessmentHandler(svc.Assessment)
	mediaHandler := NewMediaHandler(svc.Media)
	dashboardHandler := NewDashboardHandler(svc.Dashboard)

	authMiddleware := AuthMiddleware(svc.Auth)

	if len(allowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     allowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/password-reset", authHandler.RequestPasswordReset)
			authGroup.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)

		// --- Admin Routes ---
		adminGroup := protected.Group("/admin")
		{
			adminOnly := RoleMiddleware(domain.RoleAdmin)
			adminGroup.GET("/users", adminOnly, userHandler.ListUsers)
			adminGroup.POST("/users", adminOnly, userHandler.CreateUser)
			adminGroup.PATCH("/users/:userId/role", adminOnly, userHandler.SetRole)
			adminGroup.PATCH("/users/:userId/suspension", adminOnly, userHandler.SetSuspension)
			// Course editors may ban from their own courses; the service checks ownership.
			adminGroup.POST("/users/:userId/bans", RoleMiddleware(domain.RoleAdmin, domain.RoleInstructor), userHandler.BanFromCourse)
		}

		// --- Mentor Access Routes ---
		accessGroup := protected.Group("/access/mentors/:mentorId")
		accessGroup.Use(RoleMiddleware(domain.RoleAdmin, domain.RoleMentor))
		{
			accessGroup.GET("/courses", accessHandler.ListCourses)
			accessGroup.POST("/courses/:courseId", accessHandler.AssignCourse)
			accessGroup.DELETE("/courses/:courseId", accessHandler.UnassignCourse)

			accessGroup.GET("/students", accessHandler.ListStudents)
			accessGroup.POST("/students/:studentId", accessHandler.AssignStudent)
			accessGroup.DELETE("/students/:studentId", accessHandler.UnassignStudent)

			accessGroup.POST("/assessments", accessHandler.AssignAssessments)
			accessGroup.DELETE("/assessments/:assessmentId", accessHandler.UnassignAssessment)

			accessGroup.POST("/enrollments", accessHandler.EnrollStudent)
		}

		// --- Course Routes ---
		staff := RoleMiddleware(domain.RoleAdmin, domain.RoleInstructor)
		courseGroup := protected.Group("/courses")
		{
			courseGroup.GET("", courseHandler.ListCourses)
			courseGroup.POST("", staff, courseHandler.CreateCourse)
			courseGroup.POST("/enroll", RoleMiddleware(domain.RoleStudent), courseHandler.SelfEnroll)

			courseGroup.GET("/:courseId", courseHandler.GetCourse)
			courseGroup.PUT("/:courseId", staff, courseHandler.UpdateCourse)
			courseGroup.DELETE("/:courseId", staff, courseHandler.DeleteCourse)

			courseGroup.POST("/:courseId/co-instructors/:userId", staff, courseHandler.AddCoInstructor)
			courseGroup.DELETE("/:courseId/co-instructors/:userId", staff, courseHandler.RemoveCoInstructor)

			sections := courseGroup.Group("/:courseId/sections", staff)
			{
				sections.POST("", courseHandler.AddSection)
				sections.PUT("/:sectionId", courseHandler.UpdateSection)
				sections.DELETE("/:sectionId", courseHandler.DeleteSection)
				sections.POST("/:sectionId/restore", courseHandler.RestoreSection)

				sections.POST("/:sectionId/sub-sections", courseHandler.AddSubSection)
				sections.DELETE("/:sectionId/sub-sections/:subSectionId", courseHandler.RemoveSubSection)

				sections.POST("/:sectionId/modules", courseHandler.AddModule)
				sections.PATCH("/:sectionId/modules/:moduleId", courseHandler.UpdateModule)
				sections.DELETE("/:sectionId/modules/:moduleId", courseHandler.RemoveModule)
			}

			courseGroup.POST("/:courseId/modules/:moduleId/complete", RoleMiddleware(domain.RoleStudent), courseHandler.CompleteModule)

			courseGroup.GET("/:courseId/announcements", courseHandler.ListAnnouncements)
			courseGroup.POST("/:courseId/announcements", staff, courseHandler.PostAnnouncement)
			courseGroup.DELETE("/:courseId/announcements/:announcementId", staff, courseHandler.DeleteAnnouncement)
		}

		// --- Assessment Routes ---
		authors := RoleMiddleware(domain.RoleAdmin, domain.RoleInstructor, domain.RoleMentor)
		assessmentGroup := protected.Group("/assessments")
		{
			assessmentGroup.GET("", assessmentHandler.ListAssessments)
			assessmentGroup.POST("", authors, assessmentHandler.CreateAssessment)
			assessmentGroup.POST("/redeem", RoleMiddleware(domain.RoleStudent), assessmentHandler.RedeemAccessCode)

			assessmentGroup.GET("/:assessmentId", assessmentHandler.GetAssessment)
			assessmentGroup.PUT("/:assessmentId", authors, assessmentHandler.UpdateAssessment)
			assessmentGroup.DELETE("/:assessmentId", authors, assessmentHandler.DeleteAssessment)

			assessmentGroup.POST("/:assessmentId/submissions", RoleMiddleware(domain.RoleStudent), assessmentHandler.Submit)
			assessmentGroup.GET("/:assessmentId/submissions", authors, assessmentHandler.ListSubmissions)
			assessmentGroup.GET("/:assessmentId/results/:studentId", assessmentHandler.GetResult)
		}

		// --- Media Routes ---
		mediaGroup := protected.Group("/media")
		{
			mediaGroup.POST("/upload-url", mediaHandler.RequestUploadURL)
			mediaGroup.POST("", mediaHandler.ConfirmUpload)
			mediaGroup.GET("/:uploadId/download-url", mediaHandler.GetDownloadURL)
			mediaGroup.DELETE("/:uploadId", mediaHandler.DeleteUpload)
		}

		// --- Dashboards ---
		dashboardGroup := protected.Group("/dashboard")
		{
			dashboardGroup.GET("/admin", RoleMiddleware(domain.RoleAdmin), dashboardHandler.Admin)
			dashboardGroup.GET("/instructor", staff, dashboardHandler.Instructor)
			dashboardGroup.GET("/mentor", RoleMiddleware(domain.RoleMentor), dashboardHandler.Mentor)
			dashboardGroup.GET("/student", RoleMiddleware(domain.RoleStudent), dashboardHandler.Student)
		}
	}
}
