package ytdlp

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/homelab-dl/homelab-dl/internal/downloader"
	"github.com/homelab-dl/homelab-dl/internal/logutils"
)

const updateTimeout = 3 * time.Minute

// RunUpdate runs `yt-dlp -U`; extractor sites break often enough that the
// binary is kept current without restarting the bot.
func RunUpdate(ctx context.Context, binaryPath string) {
	if binaryPath == "" {
		binaryPath = defaultYtdlpBinary
	}
	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	cmd := exec.CommandContext(updateCtx, binaryPath, "-U")
	output, err := cmd.CombinedOutput()
	out := strings.TrimSpace(string(output))

	if err != nil {
		if updateCtx.Err() != nil {
			logutils.Log.WithError(err).Warn("yt-dlp update timed out or was canceled")
			return
		}
		logutils.Log.WithError(err).WithFields(map[string]any{
			"output": out,
			"binary": binaryPath,
		}).Warn("yt-dlp update failed")
		return
	}

	logutils.Log.WithFields(map[string]any{
		"binary": binaryPath,
		"output": out,
	}).Info("yt-dlp update check completed successfully")
}

type ytdlpUpdater struct{ binaryPath string }

func (u *ytdlpUpdater) RunUpdate(ctx context.Context) { RunUpdate(ctx, u.binaryPath) }

func NewUpdater(binaryPath string) downloader.Updater {
	if binaryPath == "" {
		binaryPath = defaultYtdlpBinary
	}
	return &ytdlpUpdater{binaryPath: binaryPath}
}
