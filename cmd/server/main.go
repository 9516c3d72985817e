package main

import (
	"alcyxob/learning-platform/internal/api"
	"alcyxob/learning-platform/internal/config"
	"alcyxob/learning-platform/internal/repository"
	"alcyxob/learning-platform/internal/repository/memory"
	"alcyxob/learning-platform/internal/repository/mongo"
	"alcyxob/learning-platform/internal/service"
	"alcyxob/learning-platform/internal/storage"
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// @title Learning Platform API
// @version 1.0
// @description API for courses, assessments, mentors and student progress.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	configPath := flag.String("config", ".", "directory holding config.yaml and .env")
	flag.Parse()
	defer glog.Flush()

	glog.Info("Starting Learning Platform Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		glog.Fatalf("FATAL: Could not load config: %v", err)
	}
	glog.Infof("Configuration loaded (database driver %q).", cfg.Database.Driver)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Repositories ---
	var store *repository.Store
	var onSectionChange func(mongo.SectionChangeFunc)
	switch cfg.Database.Driver {
	case config.DriverMemory:
		glog.Warning("Using in-memory store; data is lost on restart.")
		store = memory.NewStore()
	default:
		dbClient, err := mongo.ConnectDB(cfg.Database.URI)
		if err != nil {
			glog.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
		}
		defer func() {
			glog.Info("Disconnecting MongoDB...")
			if err := mongo.DisconnectDB(dbClient); err != nil {
				glog.Errorf("Failed to disconnect MongoDB: %v", err)
			}
		}()
		appDB := dbClient.Database(cfg.Database.Name)
		glog.Info("Database connection established.")

		go func() {
			ctx, cancel := context.WithTimeout(rootCtx, 1*time.Minute)
			defer cancel()
			mongo.EnsureIndexes(ctx, appDB)
			glog.Info("Index creation process completed.")
		}()

		store = mongo.NewStore(dbClient, appDB, cfg.Database.Transactions)
		if cfg.Database.WatchSections {
			onSectionChange = func(fn mongo.SectionChangeFunc) {
				if err := mongo.WatchSections(rootCtx, appDB, fn); err != nil && !errors.Is(err, context.Canceled) {
					glog.Errorf("Section watcher stopped: %v", err)
				}
			}
		}
	}

	// --- Storage ---
	var fileStorage storage.FileStorage
	if cfg.S3.BucketName != "" {
		fileStorage, err = storage.NewS3Storage(rootCtx, cfg.S3)
		if err != nil {
			glog.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
		}
	} else {
		glog.Warning("s3.bucket_name is empty; media endpoints will return 503.")
	}

	// --- Services ---
	authService := service.NewAuthService(store.Users, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.ResetExpiration)
	userService := service.NewUserService(store.Users, store.Courses, store.Enrollments)
	accessService := service.NewAccessService(
		store.Users, store.Courses, store.Assessments,
		store.MentorStudents, store.MentorCourses, store.Enrollments, store.AssessmentAccess,
		store.Tx,
		service.AccessOptions{CascadeOnCourseUnassign: cfg.Access.CascadeOnCourseUnassign},
	)
	courseService := service.NewCourseService(
		store.Users, store.Courses, store.Sections,
		store.MentorCourses, store.Enrollments, store.Progress, store.Announcements,
	)
	assessmentService := service.NewAssessmentService(
		store.Assessments, store.Submissions, store.Courses,
		store.MentorStudents, store.MentorCourses, store.Enrollments, store.AssessmentAccess,
	)
	mediaService := service.NewMediaService(store.Uploads, fileStorage)
	dashboardService := service.NewDashboardService(store)

	if onSectionChange != nil {
		go onSectionChange(func(ctx context.Context, courseID primitive.ObjectID) error {
			_, err := courseService.RecomputeTotalModules(ctx, courseID)
			return err
		})
		glog.Info("Section change watcher started.")
	}

	// --- Gin Engine ---
	router := gin.Default()
	api.SetupRoutes(router, cfg.Server.AllowedOrigins, api.Services{
		Auth:       authService,
		Users:      userService,
		Access:     accessService,
		Courses:    courseService,
		Assessment: assessmentService,
		Media:      mediaService,
		Dashboard:  dashboardService,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	glog.Infof("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			glog.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("Shutting down server...")
	stop()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		glog.Errorf("Server forced to shutdown: %v", err)
	}

	glog.Info("Server exiting.")
}
