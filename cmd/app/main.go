package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"coinforge/internal/api"
	"coinforge/internal/repository"
	"coinforge/internal/service"
	"coinforge/pkg/auth"
	"coinforge/pkg/logger"
	"coinforge/pkg/notify"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	hub := notify.NewHub()
	var dispatcher notify.Dispatcher = hub
	if cfg.Notify.TelegramBotToken != "" {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			BotToken: cfg.Notify.TelegramBotToken,
			Debug:    cfg.Notify.TelegramDebug,
		})
		if err != nil {
			zapLogger.Fatal("Failed to initialize telegram notifier", zap.Error(err))
		}
		dispatcher = notify.Multi{hub, tg}
	}

	ledgerService := service.NewLedgerService(repo)
	badgeService := service.NewBadgeService(repo)
	streakTracker := service.NewStreakTracker(repo, cfg.Economy.Milestones, badgeService, dispatcher)
	questEngine := service.NewQuestEngine(repo, badgeService, dispatcher)
	activityRecorder := service.NewActivityRecorder(streakTracker, questEngine)
	rewardShop, err := service.NewRewardShop(repo, badgeService, dispatcher, activityRecorder)
	if err != nil {
		zapLogger.Fatal("Failed to initialize reward shop", zap.Error(err))
	}
	gameArena := service.NewGameArena(repo, cfg.Economy.Games, cfg.Economy.DailyPlayCap, dispatcher, activityRecorder)

	telegramAuth := auth.NewTelegramAuth(cfg.TelegramAuth.TelegramBotToken, cfg.TelegramAuth.DebugMode)

	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	a := router.Group("/api/v1")
	api.NewLedgerRoutes(a, ledgerService, telegramAuth)
	api.NewStreakRoutes(a, streakTracker, telegramAuth)
	api.NewQuestRoutes(a, questEngine, telegramAuth)
	api.NewShopRoutes(a, rewardShop, telegramAuth)
	api.NewGameRoutes(a, gameArena, telegramAuth)
	api.NewNotificationRoutes(a, hub, telegramAuth)

	go func() {
		ticker := time.NewTicker(cfg.Economy.CleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if _, err := questEngine.CleanupExpired(ctx); err != nil {
				zapLogger.Error("Failed to clean up expired quests", zap.Error(err))
			}
			cancel()
		}
	}()

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
