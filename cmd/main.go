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

	"github.com/Dosada05/debate-system/config"
	"github.com/Dosada05/debate-system/db"
	"github.com/Dosada05/debate-system/events"
	"github.com/Dosada05/debate-system/handlers"
	"github.com/Dosada05/debate-system/live"
	"github.com/Dosada05/debate-system/middleware"
	"github.com/Dosada05/debate-system/repositories"
	api "github.com/Dosada05/debate-system/routes"
	"github.com/Dosada05/debate-system/services"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
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
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Инициализация WebSocket Hub
	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Шина post-commit событий завершения матчей
	dispatcher := events.NewDispatcher(logger)

	// Инициализация репозиториев
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	roomRepo := repositories.NewPostgresRoomRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	assignmentRepo := repositories.NewPostgresAssignmentRepository(dbConn)
	scoreRepo := repositories.NewPostgresScoreRepository(dbConn)
	adjustmentRepo := repositories.NewPostgresAdjustmentRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	byeService := services.NewByeService(
		eventRepo,
		teamRepo,
		userRepo,
		matchRepo,
		scoreRepo,
		adjustmentRepo,
		wsHub,
		logger,
	)
	matchService := services.NewMatchService(
		eventRepo,
		teamRepo,
		userRepo,
		roomRepo,
		matchRepo,
		assignmentRepo,
		scoreRepo,
		byeService,
		dispatcher,
		wsHub,
		logger,
	)
	scoreService := services.NewScoreService(
		dbConn,
		eventRepo,
		userRepo,
		matchRepo,
		assignmentRepo,
		scoreRepo,
		dispatcher,
		wsHub,
		logger,
	)
	assignmentService := services.NewAssignmentService(
		dbConn,
		userRepo,
		matchRepo,
		assignmentRepo,
		scoreRepo,
		logger,
	)
	adjustmentService := services.NewAdjustmentService(
		eventRepo,
		teamRepo,
		userRepo,
		matchRepo,
		scoreRepo,
		adjustmentRepo,
		logger,
	)
	logger.Info("Services initialized")

	// Завершение матча тянет за собой пересчёт bye-компенсации уже после
	// коммита; сбой пересчёта не влияет на завершивший матч запрос.
	dispatcher.Subscribe(func(ctx context.Context, event events.MatchCompleted) error {
		return byeService.RecalculateAll(ctx, event.EventID)
	})
	// Когда закрывается последний матч текущего раунда, ивент переходит к
	// следующему раунду.
	dispatcher.Subscribe(func(ctx context.Context, event events.MatchCompleted) error {
		return matchService.AdvanceCurrentRound(ctx, event.EventID)
	})
	go dispatcher.Run()
	defer dispatcher.Close()
	logger.Info("Match completion dispatcher started")

	// Инициализация обработчиков HTTP
	matchHandler := handlers.NewMatchHandler(matchService)
	scoreHandler := handlers.NewScoreHandler(scoreService)
	assignmentHandler := handlers.NewAssignmentHandler(assignmentService)
	byeHandler := handlers.NewByeHandler(byeService)
	adjustmentHandler := handlers.NewAdjustmentHandler(adjustmentService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	authenticator := middleware.NewAuthenticator(cfg.JWTSecretKey)
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		authenticator,
		cfg.CORSOrigins,
		matchHandler,
		scoreHandler,
		assignmentHandler,
		byeHandler,
		adjustmentHandler,
		webSocketHandler,
	)
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
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
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
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
