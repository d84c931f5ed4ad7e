package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/courtside/academy-api/api/swagger"
	"github.com/courtside/academy-api/internal/handler"
	"github.com/courtside/academy-api/internal/middleware"
	"github.com/courtside/academy-api/internal/repository"
	"github.com/courtside/academy-api/internal/service"
	"github.com/courtside/academy-api/pkg/cache"
	"github.com/courtside/academy-api/pkg/config"
	"github.com/courtside/academy-api/pkg/database"
	"github.com/courtside/academy-api/pkg/jobs"
	"github.com/courtside/academy-api/pkg/logger"
	corsmiddleware "github.com/courtside/academy-api/pkg/middleware/cors"
	reqidmiddleware "github.com/courtside/academy-api/pkg/middleware/requestid"
)

// @title Courtside Academy API
// @version 1.0.0
// @description Scheduling and attendance lifecycle service for court academies
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, cfg.Database); err != nil {
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
	}

	cacheRepo := repository.NewCacheRepository(nil)
	if cfg.Cache.Enabled {
		redisClient, redisErr := cache.NewRedis(cfg.Redis)
		if redisErr != nil {
			logr.Warn("redis unavailable, court cache disabled", zap.Error(redisErr))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient)
		}
	}

	validate := validator.New()

	attendanceRepo := repository.NewAttendanceRepository(db)
	teachingRepo := repository.NewTeachingScheduleRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	courseStudentRepo := repository.NewCourseStudentRepository(db)
	courseStaffRepo := repository.NewCourseStaffRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	courtRepo := repository.NewCourtRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)

	metricsSvc := service.NewMetricsService()
	courtLocation := service.NewCourtLocationService(courtRepo, cacheRepo, cfg.Cache.TTL, logr)
	authSvc := service.NewAuthService(userRepo, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, validate, logr)

	var attendanceSvc *service.AttendanceService
	queue := jobs.NewQueue("attendance-generation", func(ctx context.Context, job jobs.Job) error {
		return attendanceSvc.HandleGenerateJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.BufferSize,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	attendanceSvc = service.NewAttendanceService(attendanceRepo, subscriptionRepo, courseStudentRepo,
		courseRepo, studentRepo, queue, validate, logr)

	teachingSvc := service.NewTeachingScheduleService(teachingRepo, courseRepo, courseStaffRepo,
		courtLocation, cfg.Geofence.MaxDistanceMeters, validate, logr)
	staffSvc := service.NewCourseStaffService(courseStaffRepo, courseRepo, validate, logr)
	sweepSvc := service.NewSweepService(attendanceSvc, teachingSvc, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(rootCtx)
	defer queue.Stop()

	scheduler := jobs.NewScheduler(logr)
	if cfg.Cron.Enabled {
		if err := scheduler.Daily("absence-sweep", cfg.Cron.SweepTime, func(ctx context.Context) error {
			result, sweepErr := sweepSvc.Run(ctx, time.Now())
			if sweepErr != nil {
				return sweepErr
			}
			metricsSvc.RecordSweep(result.AttendanceUpdated, result.TeachingScheduleUpdated)
			return nil
		}); err != nil {
			logr.Sugar().Fatalw("failed to register sweep schedule", "error", err)
		}
		if err := scheduler.Weekly("weekly-reconcile", cfg.Cron.ReconcileWeekday, cfg.Cron.ReconcileTime, func(ctx context.Context) error {
			result, recErr := teachingSvc.ReconcileWeek(ctx, time.Now(), nil)
			if recErr != nil {
				return recErr
			}
			metricsSvc.RecordReconcile(result.Created, result.Deleted)
			return nil
		}); err != nil {
			logr.Sugar().Fatalw("failed to register reconcile schedule", "error", err)
		}
		scheduler.Start(rootCtx)
		defer scheduler.Stop()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	teachingHandler := handler.NewTeachingScheduleHandler(teachingSvc, metricsSvc)
	staffHandler := handler.NewCourseStaffHandler(staffSvc)
	sweepHandler := handler.NewSweepHandler(sweepSvc, metricsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.GET("/auth/me", authHandler.Me)

		protected.GET("/attendances", attendanceHandler.List)
		protected.GET("/attendances/:id", attendanceHandler.Get)
		protected.POST("/attendances", attendanceHandler.Create)
		protected.PUT("/attendances/:id/status", attendanceHandler.UpdateStatus)
		protected.DELETE("/attendances/:id", attendanceHandler.Delete)
		protected.GET("/attendances/status/:studentId", attendanceHandler.StudentStatus)
		protected.POST("/attendances/generate/:studentId", attendanceHandler.Generate)

		protected.GET("/teaching-schedules", teachingHandler.List)
		protected.GET("/teaching-schedules/:id", teachingHandler.Get)
		protected.POST("/teaching-schedules/:id/checkin", teachingHandler.CheckIn)
		protected.POST("/teaching-schedules/:id/checkout", teachingHandler.CheckOut)
		protected.GET("/teaching-schedules/export/:userId", teachingHandler.ExportWeek)

		protected.GET("/course-staff", staffHandler.List)
		protected.GET("/course-staff/check-conflict", staffHandler.CheckConflict)
		protected.GET("/course-staff/:id", staffHandler.Get)

		admin := protected.Group("")
		admin.Use(middleware.RequireRole("ADMIN", "MANAGER"))
		{
			admin.POST("/attendances/generate", attendanceHandler.GenerateAll)
			admin.POST("/teaching-schedules/reconcile", teachingHandler.Reconcile)
			admin.PUT("/teaching-schedules/:id/status", teachingHandler.UpdateStatus)
			admin.POST("/course-staff", staffHandler.Assign)
			admin.PUT("/course-staff/:id", staffHandler.Reassign)
			admin.DELETE("/course-staff/:id", staffHandler.Remove)
			admin.POST("/sweep", sweepHandler.Run)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
