package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	hdlbot "github.com/homelab-dl/homelab-dl/internal/bot"
	hdlconfig "github.com/homelab-dl/homelab-dl/internal/config"
	hdldownloader "github.com/homelab-dl/homelab-dl/internal/downloader"
	ytdlp "github.com/homelab-dl/homelab-dl/internal/downloader/video"
	"github.com/homelab-dl/homelab-dl/internal/handlers"
	"github.com/homelab-dl/homelab-dl/internal/logutils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	config, err := hdlconfig.NewConfig()
	if err != nil {
		logutils.Log.WithError(err).Fatal("Failed to initialize configuration")
	}

	logutils.InitLogger(config.LogLevel)
	logutils.Log.WithFields(map[string]any{
		"version":    Version,
		"build_time": BuildTime,
	}).Info("Starting homelab-dl")

	if dirErr := config.EnsureDirs(); dirErr != nil {
		logutils.Log.WithError(dirErr).Fatal("Failed to create download directories")
	}

	botInstance, err := hdlbot.InitBot(config)
	if err != nil {
		logutils.Log.WithError(err).Fatal("Bot initialization failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.VideoSettings.YtdlpUpdateOnStart {
		go ytdlp.RunUpdate(ctx, config.VideoSettings.YtdlpPath)
	}
	if config.VideoSettings.YtdlpUpdateInterval > 0 {
		go hdldownloader.StartPeriodicUpdater(
			ctx,
			config.VideoSettings.YtdlpUpdateInterval,
			ytdlp.NewUpdater(config.VideoSettings.YtdlpPath),
		)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go processUpdates(ctx, botInstance, config)

	logutils.Log.Info("homelab-dl started successfully")

	<-sigChan
	logutils.Log.Info("Received shutdown signal, starting graceful shutdown...")

	cancel()

	logutils.Log.Info("homelab-dl shutdown complete")
}

func processUpdates(ctx context.Context, botInstance *hdlbot.Bot, config *hdlconfig.Config) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botInstance.Api.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			handlers.Router(ctx, botInstance, config, update)
		case <-ctx.Done():
			logutils.Log.Info("Stopping update processing")
			return
		}
	}
}
