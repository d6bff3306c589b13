package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/testcenter-api/internal/config"
	"github.com/yourusername/testcenter-api/internal/handler"
	"github.com/yourusername/testcenter-api/internal/middleware"
	pgRepo "github.com/yourusername/testcenter-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/testcenter-api/internal/repository/redis"
	"github.com/yourusername/testcenter-api/internal/scheduler"
	"github.com/yourusername/testcenter-api/internal/service"
	"github.com/yourusername/testcenter-api/pkg/auth"
	"github.com/yourusername/testcenter-api/pkg/database"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// PostgreSQL и миграции
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := database.NewRedisClient(database.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Репозитории
	userRepo := pgRepo.NewUserRepo(db)
	profileRepo := pgRepo.NewProfileRepo(db)
	testRepo := pgRepo.NewTestRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)
	sessionRepo := pgRepo.NewQuizSessionRepo(db)
	participantRepo := pgRepo.NewParticipantRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// JWT
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// Почта
	var emailService service.EmailService
	if cfg.Email.Enabled {
		emailService, err = service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.From)
		if err != nil {
			log.Printf("Failed to initialize ResendEmailService: %v", err)
			os.Exit(1)
		}
		log.Println("Email notifications enabled (Resend)")
	} else {
		emailService = &service.NoopEmailService{}
		log.Println("Email notifications disabled (noop)")
	}

	// Сервисы
	authService, err := service.NewAuthService(userRepo, profileRepo, jwtService)
	if err != nil {
		log.Printf("Failed to initialize AuthService: %v", err)
		os.Exit(1)
	}
	profileService := service.NewProfileService(userRepo, profileRepo)
	attemptService := service.NewAttemptService(attemptRepo, testRepo, questionRepo, participantRepo)
	testService := service.NewTestService(testRepo, questionRepo)
	quizService := service.NewQuizSessionService(
		sessionRepo, participantRepo, questionRepo, userRepo,
		attemptService, profileService, emailService,
	)
	statsService := service.NewStatsService(attemptRepo, testRepo, profileService, cacheRepo)

	// Обработчики
	authHandler := handler.NewAuthHandler(authService)
	profileHandler := handler.NewProfileHandler(profileService)
	testHandler := handler.NewTestHandler(testService)
	attemptHandler := handler.NewAttemptHandler(attemptService, statsService)
	quizHandler := handler.NewQuizHandler(quizService)
	statsHandler := handler.NewStatsHandler(statsService)

	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	isProduction := os.Getenv("GIN_MODE") == "release"

	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	corsOrigins := cfg.CORS.AllowedOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		// Аутентификация
		authGroup := api.Group("/auth")
		{
			strictLimit := rateLimiter.Limit(middleware.StrictAuthRateLimitConfig())
			authGroup.POST("/register", strictLimit, authHandler.Register)
			authGroup.POST("/login", strictLimit, authHandler.Login)

			authedAuth := authGroup.Group("/")
			authedAuth.Use(authMiddleware.RequireAuth())
			{
				authedAuth.GET("/me", authHandler.Me)
			}
		}

		// Профиль и зона видимости
		profileGroup := api.Group("/profile")
		profileGroup.Use(authMiddleware.RequireAuth())
		{
			profileGroup.GET("", profileHandler.GetMyProfile)
			profileGroup.PUT("", profileHandler.UpdateMyProfile)
			profileGroup.GET("/visible-users", profileHandler.VisibleUsers)
		}

		// Тесты
		testGroup := api.Group("/tests")
		testGroup.Use(authMiddleware.RequireAuth())
		{
			testGroup.GET("", testHandler.List)
			testGroup.GET("/:id", middleware.ExtractUintParam("id", "test_id"), testHandler.Get)

			// Управление банком тестов — только для администраторов
			testGroup.POST("", authMiddleware.AdminOnly(), testHandler.Create)
			testGroup.PUT("/:id", authMiddleware.AdminOnly(),
				middleware.ExtractUintParam("id", "test_id"), testHandler.Update)
			testGroup.DELETE("/:id", authMiddleware.AdminOnly(),
				middleware.ExtractUintParam("id", "test_id"), testHandler.Delete)
			testGroup.POST("/:id/import", authMiddleware.AdminOnly(),
				middleware.ExtractUintParam("id", "test_id"),
				rateLimiter.Limit(middleware.ImportRateLimitConfig()),
				testHandler.ImportQuestions)
			testGroup.GET("/:id/export", authMiddleware.AdminOnly(),
				middleware.ExtractUintParam("id", "test_id"), testHandler.ExportQuestions)
			testGroup.GET("/:id/export-answers", authMiddleware.AdminOnly(),
				middleware.ExtractUintParam("id", "test_id"), testHandler.ExportAnswerKey)
		}

		// Прохождение тестов
		attemptGroup := api.Group("/attempts")
		attemptGroup.Use(authMiddleware.RequireAuth())
		{
			attemptGroup.POST("/normal", attemptHandler.StartNormal)
			attemptGroup.POST("/express", attemptHandler.StartExpress)
			attemptGroup.GET("", attemptHandler.List)
			attemptGroup.GET("/:attempt_id", attemptHandler.GetState)
			attemptGroup.POST("/:attempt_id/answer", attemptHandler.Answer)
			attemptGroup.POST("/:attempt_id/reset", attemptHandler.Reset)
			attemptGroup.GET("/:attempt_id/results", attemptHandler.Results)
		}

		// Зачёты
		quizGroup := api.Group("/quiz-sessions")
		quizGroup.Use(authMiddleware.RequireAuth())
		{
			quizGroup.POST("", quizHandler.Create)
			quizGroup.GET("", quizHandler.ListMine)
			quizGroup.GET("/created", quizHandler.ListCreated)

			sessionRoutes := quizGroup.Group("/:id")
			sessionRoutes.Use(middleware.ExtractUintParam("id", "session_id"))
			{
				sessionRoutes.GET("", quizHandler.Get)
				sessionRoutes.POST("/activate", quizHandler.Activate)
				sessionRoutes.POST("/start", quizHandler.Start)
				sessionRoutes.POST("/sync", quizHandler.Sync)
				sessionRoutes.GET("/results", quizHandler.Results)
				sessionRoutes.GET("/results/export", quizHandler.ExportResults)
				sessionRoutes.DELETE("", quizHandler.Delete)
			}
		}

		// Статистика
		statsGroup := api.Group("/stats")
		statsGroup.Use(authMiddleware.RequireAuth())
		{
			statsGroup.GET("/me", statsHandler.MyStats)
			statsGroup.GET("/users/:id", middleware.ExtractUintParam("id", "target_user_id"), statsHandler.UserStats)
		}
	}

	// Фоновые задачи
	cronScheduler := scheduler.New(quizService, statsService)
	cronScheduler.Start()

	// HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cronScheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
