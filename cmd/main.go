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

	_ "github.com/lib/pq"

	"github.com/cybermouflons/CTFNote/chat"
	"github.com/cybermouflons/CTFNote/config"
	"github.com/cybermouflons/CTFNote/db"
	"github.com/cybermouflons/CTFNote/events"
	"github.com/cybermouflons/CTFNote/feed"
	"github.com/cybermouflons/CTFNote/handlers"
	"github.com/cybermouflons/CTFNote/hooks"
	"github.com/cybermouflons/CTFNote/middleware"
	"github.com/cybermouflons/CTFNote/repositories"
	api "github.com/cybermouflons/CTFNote/routes"
	"github.com/cybermouflons/CTFNote/services"
	"github.com/cybermouflons/CTFNote/storage"
	"github.com/cybermouflons/CTFNote/syncer"
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

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	// Инициализация загрузчика файлов (Cloudflare R2), если настроен
	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	}

	// Подключение к Discord, если синхронизация настроена
	var chatClient chat.Client
	if cfg.DiscordEnabled() {
		chatClient, err = chat.NewDiscordClient(cfg.DiscordBotToken, cfg.DiscordServerID)
		if err != nil {
			logger.Error("failed to connect to discord", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("discord client connected", slog.String("guild", cfg.DiscordServerID))
	} else {
		logger.Info("discord synchronization disabled")
	}

	// WebSocket-фид активности
	wsHub := feed.NewHub(logger)
	go wsHub.Run()

	// Инициализация репозиториев
	ctfRepo := repositories.NewPostgresCTFRepository(dbConn)
	taskRepo := repositories.NewPostgresTaskRepository(dbConn)
	tagRepo := repositories.NewPostgresTagRepository(dbConn)
	profileRepo := repositories.NewPostgresProfileRepository(dbConn)
	invitationRepo := repositories.NewPostgresInvitationRepository(dbConn)
	mappingRepo := repositories.NewPostgresMappingRepository(dbConn)
	logger.Info("repositories initialized")

	// Движок синхронизации и диспетчер событий
	sync := syncer.New(chatClient, ctfRepo, taskRepo, profileRepo, mappingRepo, syncer.Config{
		VoiceChannels: cfg.DiscordVoiceChannels,
		PadBaseURL:    cfg.PadBaseURL,
	}, logger)

	dispatcher := events.NewDispatcher(logger)
	hooks.New(sync, ctfRepo, taskRepo, profileRepo, mappingRepo, wsHub, logger).Register(dispatcher)
	logger.Info("event dispatcher initialized")

	// Инициализация сервисов
	ctfService := services.NewCTFService(ctfRepo, sync, dispatcher, uploader, logger)
	taskService := services.NewTaskService(dbConn, taskRepo, ctfRepo, tagRepo, dispatcher, cfg.PadBaseURL, logger)
	invitationService := services.NewInvitationService(invitationRepo, profileRepo, dispatcher)
	profileService := services.NewProfileService(profileRepo, dispatcher)
	logger.Info("services initialized")

	// Инициализация обработчиков HTTP
	auth := middleware.NewAuthenticator(cfg.JWTSecretKey)
	router := api.InitRoutes(api.Handlers{
		Auth:       handlers.NewAuthHandler(profileService, auth),
		CTF:        handlers.NewCTFHandler(ctfService),
		Task:       handlers.NewTaskHandler(taskService),
		Invitation: handlers.NewInvitationHandler(invitationService),
		Profile:    handlers.NewProfileHandler(profileService),
	}, auth, wsHub)
	logger.Info("routes configured")

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		}

		// Даем after-обработчикам дорезолвить запущенную синхронизацию.
		dispatcher.Wait()
		logger.Info("server stopped")
	}
}
