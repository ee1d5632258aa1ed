package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/homelab-dl/homelab-dl/internal/logutils"
	"github.com/homelab-dl/homelab-dl/internal/utils"
)

const dirMode = 0o755

// Config is built once at startup and passed by reference; it is never
// mutated afterwards.
type Config struct {
	BotToken      string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	AllowedChatID int64  `envconfig:"TELEGRAM_CHAT_ID" required:"true"`
	DownloadDir   string `envconfig:"DOWNLOAD_DIR" default:"downloads"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`

	DownloadSettings DownloadConfig
	VideoSettings    VideoConfig
}

type DownloadConfig struct {
	ProgressUpdateInterval time.Duration `envconfig:"PROGRESS_UPDATE_INTERVAL" default:"3s"`
	HTTPTimeout            time.Duration `envconfig:"HTTP_TIMEOUT" default:"0"`
}

type VideoConfig struct {
	YtdlpPath           string        `envconfig:"YTDLP_PATH" default:"yt-dlp"`
	QualitySelector     string        `envconfig:"VIDEO_QUALITY_SELECTOR" default:"bestvideo+bestaudio/best"`
	Proxy               string        `envconfig:"PROXY" default:""`
	YtdlpUpdateOnStart  bool          `envconfig:"YTDLP_UPDATE_ON_START" default:"false"`
	YtdlpUpdateInterval time.Duration `envconfig:"YTDLP_UPDATE_INTERVAL" default:"0"`
}

func NewConfig() (*Config, error) {
	// Optional .env next to the binary, same as the deployed bot.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logutils.Log.WithError(err).Warn("Failed to load .env file")
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, utils.WrapError(err, "configuration processing failed", nil)
	}

	if err := config.validate(); err != nil {
		return nil, utils.WrapError(err, "configuration validation failed", nil)
	}

	return &config, nil
}

// CompletedDir is where finished downloads are placed for pickup.
func (c *Config) CompletedDir() string {
	return filepath.Join(c.DownloadDir, "completed")
}

// TempDir is the scratch area for in-progress downloads.
func (c *Config) TempDir() string {
	return filepath.Join(c.DownloadDir, "temp")
}

// EnsureDirs creates the completed and temp directories if missing.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.CompletedDir(), c.TempDir()} {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return utils.WrapError(err, "failed to create directory", map[string]any{
				"dir": dir,
			})
		}
	}
	return nil
}
