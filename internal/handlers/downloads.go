package handlers

import (
	"context"
	"errors"
	"fmt"

	hdlbot "github.com/homelab-dl/homelab-dl/internal/bot"
	hdlconfig "github.com/homelab-dl/homelab-dl/internal/config"
	hdldownloader "github.com/homelab-dl/homelab-dl/internal/downloader"
	hdlfactory "github.com/homelab-dl/homelab-dl/internal/downloader/factory"
	"github.com/homelab-dl/homelab-dl/internal/filemanager"
	"github.com/homelab-dl/homelab-dl/internal/logutils"
	"github.com/homelab-dl/homelab-dl/internal/progress"
	hdlutils "github.com/homelab-dl/homelab-dl/internal/utils"
)

// HandleDownloadLink classifies the URL, posts the status message and runs
// the download in its own goroutine. One goroutine per request; concurrent
// links each get their own status message. Cancelling ctx aborts in-flight
// transfers: yt-dlp children are killed and the direct adapter stops
// between chunks.
func HandleDownloadLink(ctx context.Context, svc hdlbot.Service, cfg *hdlconfig.Config, chatID int64, link string) {
	logutils.Log.WithField("link", link).Info("Starting download for a valid link")

	downloaderInstance, err := hdlfactory.NewDownloaderFromURL(link, cfg)
	if err != nil {
		logutils.Log.WithError(err).Error("Failed to create downloader")
		svc.SendMessage(chatID, hdlutils.DownloadErrorMessage(err))
		return
	}

	title, err := downloaderInstance.GetTitle()
	if err != nil {
		logutils.Log.WithError(err).Error("Failed to resolve title")
		svc.SendMessage(chatID, hdlutils.DownloadErrorMessage(err))
		return
	}

	messageID, err := svc.SendMessageReturningID(chatID, fmt.Sprintf("⏳ Downloading: %s", title))
	if err != nil {
		logutils.Log.WithError(err).Error("Failed to send status message")
		return
	}

	tracker := progress.NewTracker(svc, chatID, messageID, title, cfg.DownloadSettings.ProgressUpdateInterval)

	go runDownload(ctx, cfg, downloaderInstance, tracker)
}

func runDownload(
	ctx context.Context,
	cfg *hdlconfig.Config,
	downloaderInstance hdldownloader.Downloader,
	tracker *progress.Tracker,
) {
	progressChan, errChan, err := downloaderInstance.StartDownload(ctx)
	if err != nil {
		failDownload(downloaderInstance, tracker, err)
		return
	}

	for p := range progressChan {
		tracker.Update(p)
	}

	if downloadErr := <-errChan; downloadErr != nil {
		failDownload(downloaderInstance, tracker, downloadErr)
		return
	}

	fileName, err := downloaderInstance.OutputFileName()
	if err != nil {
		failDownload(downloaderInstance, tracker, err)
		return
	}

	finalPath, err := filemanager.Finalize(downloaderInstance.TempPath(), cfg.CompletedDir(), fileName)
	if err != nil {
		failDownload(downloaderInstance, tracker, err)
		return
	}

	if cleanupErr := downloaderInstance.Cleanup(); cleanupErr != nil {
		logutils.Log.WithError(cleanupErr).Warn("Failed to clean up temp files")
	}

	logutils.Log.WithField("path", finalPath).Info("Download completed")
	tracker.Complete(fileName)
}

func failDownload(downloaderInstance hdldownloader.Downloader, tracker *progress.Tracker, err error) {
	if errors.Is(err, hdlutils.ErrFilesystemFailure) {
		logutils.Log.WithError(err).Error("Failed to store the completed file")
	} else {
		logutils.Log.WithError(err).Error("Download failed")
	}

	if cleanupErr := downloaderInstance.Cleanup(); cleanupErr != nil {
		logutils.Log.WithError(cleanupErr).Warn("Failed to clean up after a failed download")
	}

	tracker.Fail(hdlutils.DownloadErrorMessage(err))
}
