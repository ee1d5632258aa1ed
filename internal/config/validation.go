package config

import (
	"errors"
	"fmt"
)

func (c *Config) validate() error {
	if err := c.validateRequiredFields(); err != nil {
		return err
	}
	return c.validateDownloadSettings()
}

func (c *Config) validateRequiredFields() error {
	if c.BotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if c.AllowedChatID == 0 {
		return errors.New("TELEGRAM_CHAT_ID is required and must be non-zero")
	}
	if c.DownloadDir == "" {
		return errors.New("DOWNLOAD_DIR must not be empty")
	}
	return nil
}

func (c *Config) validateDownloadSettings() error {
	if c.DownloadSettings.ProgressUpdateInterval <= 0 {
		return fmt.Errorf("PROGRESS_UPDATE_INTERVAL must be positive, got %v",
			c.DownloadSettings.ProgressUpdateInterval)
	}
	if c.DownloadSettings.HTTPTimeout < 0 {
		return fmt.Errorf("HTTP_TIMEOUT must not be negative, got %v",
			c.DownloadSettings.HTTPTimeout)
	}
	if c.VideoSettings.YtdlpUpdateInterval < 0 {
		return fmt.Errorf("YTDLP_UPDATE_INTERVAL must not be negative, got %v",
			c.VideoSettings.YtdlpUpdateInterval)
	}
	return nil
}
