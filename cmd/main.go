package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vulca/torneos/config"
	"github.com/vulca/torneos/db"
	"github.com/vulca/torneos/handlers"
	"github.com/vulca/torneos/metrics"
	"github.com/vulca/torneos/realtime"
	"github.com/vulca/torneos/repositories"
	api "github.com/vulca/torneos/routes"
	"github.com/vulca/torneos/services"
	"github.com/vulca/torneos/storage"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(ctx, dbConn); err != nil {
		logger.Error("failed to apply database schema", slog.Any("error", err))
		os.Exit(1)
	}

	// Загрузчик изображений (S3 / R2 / MinIO); без бакета загрузка отключена
	var uploader storage.FileUploader
	if cfg.StorageEnabled() {
		uploader, err = storage.NewS3Uploader(ctx, storage.S3UploaderConfig{
			Endpoint:        cfg.StorageEndpoint,
			Region:          cfg.StorageRegion,
			AccessKeyID:     cfg.StorageAccessKeyID,
			SecretAccessKey: cfg.StorageSecretAccessKey,
			BucketName:      cfg.StorageBucketName,
			PublicBaseURL:   cfg.StoragePublicBaseURL,
			UsePathStyle:    cfg.StorageUsePathStyle,
		})
		if err != nil {
			logger.Error("failed to initialize object storage uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("object storage uploader initialized", slog.String("bucket", cfg.StorageBucketName))
	} else {
		logger.Warn("object storage is not configured, image uploads are disabled")
	}

	metrics.Register(prometheus.DefaultRegisterer)

	// Инициализация WebSocket Hub
	wsHub := realtime.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	gameRepo := repositories.NewPostgresGameRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	transactor := repositories.NewPostgresTransactor(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo)
	gameService := services.NewGameService(gameRepo, uploader, logger)
	tournamentService := services.NewTournamentService(tournamentRepo, gameRepo, registrationRepo, uploader, logger)
	registrationService := services.NewRegistrationService(
		transactor,
		registrationRepo,
		tournamentRepo,
		userRepo,
		services.NewHostedCheckoutService(cfg.CheckoutBaseURL, cfg.CheckoutReturnURL),
		wsHub,
		logger,
	)
	dashboardService := services.NewDashboardService(gameRepo, tournamentRepo, registrationRepo, userRepo)
	logger.Info("Services initialized")

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		admin, err := authService.EnsureAdmin(ctx, services.RegisterInput{
			Name:     cfg.AdminName,
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
		})
		if err != nil {
			logger.Error("failed to ensure admin account", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("admin account ready", slog.Int("user_id", admin.ID))
	}

	// Запуск планировщика автоматического обновления статусов турниров
	go func() {
		ticker := time.NewTicker(cfg.SchedulerInterval)
		defer ticker.Stop()
		logger.Info("Tournament status update scheduler started", slog.Duration("interval", cfg.SchedulerInterval))

		if err := tournamentService.AutoUpdateTournamentStatusesByDates(ctx); err != nil {
			logger.Error("Scheduler: initial run failed", slog.Any("error", err))
		}

		for {
			select {
			case <-ctx.Done():
				logger.Info("Scheduler: stopped")
				return
			case <-ticker.C:
				if err := tournamentService.AutoUpdateTournamentStatusesByDates(ctx); err != nil {
					logger.Error("Scheduler: periodic run failed", slog.Any("error", err))
				}
			}
		}
	}()

	// Инициализация обработчиков HTTP
	h := api.Handlers{
		Auth:          handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		Games:         handlers.NewGameHandler(gameService),
		Tournaments:   handlers.NewTournamentHandler(tournamentService, registrationService),
		Registrations: handlers.NewRegistrationHandler(registrationService),
		Users:         handlers.NewUserHandler(userService),
		Dashboard:     handlers.NewDashboardHandler(dashboardService),
		WebSocket:     handlers.NewWebSocketHandler(wsHub, tournamentService, cfg.CORSAllowedOrigins, logger),
	}
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, h, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			stop()
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			stop()
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	stop()
	logger.Info("application exited")
}
