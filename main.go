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

	"github.com/PalmTamino/Xboard/config"
	"github.com/PalmTamino/Xboard/internal/api"
	"github.com/PalmTamino/Xboard/internal/database"
	"github.com/PalmTamino/Xboard/internal/models"
	"github.com/PalmTamino/Xboard/internal/services"
	"github.com/PalmTamino/Xboard/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.InitLogger(&logger.Config{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFilename,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	}); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	router, err := api.NewRouter()
	if err != nil {
		logger.Log.Fatal("failed to create router", zap.Error(err))
	}

	// Migrate the schema
	err = database.DB.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.Payment{},
		&models.Transaction{},
		&models.PaymentCallbackLog{},
	)
	if err != nil {
		logger.Log.Fatal("failed to migrate database", zap.Error(err))
	}

	initAdminUser(cfg)

	// 运营通知走后台 worker,未配置 Telegram 时静默丢弃
	var notifier services.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifier = services.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
	} else {
		logger.Log.Warn("telegram notifier not configured, operator notifications are disabled")
	}
	services.NotifyDisp = services.NewNotifyDispatcher(notifier, 256)
	services.NotifyDisp.Start()

	srv := &http.Server{Addr: ":8080", Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("failed to run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// 先停外部请求,再让通知 worker 清空队列,重启时不丢收款消息
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Warn("server shutdown", zap.Error(err))
	}
	services.NotifyDisp.Stop()
}

// initAdminUser 首次启动时种一个管理员账号
func initAdminUser(cfg *config.Config) {
	var count int64
	if err := database.DB.Model(&models.User{}).Where("role = ?", "admin").Count(&count).Error; err != nil {
		logger.Log.Fatal("failed to check for admin user", zap.Error(err))
	}
	if count > 0 {
		return
	}

	if _, err := services.CreateUser(cfg.AdminUsername, cfg.AdminPassword, "admin"); err != nil {
		logger.Log.Fatal("failed to create admin user", zap.Error(err))
	}
	logger.Log.Info("admin user created", zap.String("username", cfg.AdminUsername))
}
