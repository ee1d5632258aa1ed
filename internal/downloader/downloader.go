package downloader

import (
	"context"
)

// Progress is one progress callback from an active download.
// Percent is 0 when only byte counts are known; Total is 0 when the
// remote side did not report a size.
type Progress struct {
	Downloaded int64
	Total      int64
	Percent    float64
}

// Downloader is one download request in flight. Exactly two implementations
// exist: the yt-dlp video adapter and the direct HTTP adapter; the factory
// picks one per URL.
type Downloader interface {
	// GetTitle returns the display name for progress messages.
	GetTitle() (string, error)

	// StartDownload begins the transfer into the request's temp area.
	// Progress values arrive on progressChan until it is closed; errChan
	// then delivers nil on success or the typed failure.
	StartDownload(ctx context.Context) (progressChan <-chan Progress, errChan <-chan error, err error)

	// OutputFileName is the sanitized file name for the completed area.
	// For the direct adapter it is only final once the response headers
	// have been read, so call it after errChan delivered nil.
	OutputFileName() (string, error)

	// TempPath is the temp artifact produced on success.
	TempPath() string

	// Cleanup removes the request's temp artifacts. Safe to call whether
	// or not the download ran or failed part-way.
	Cleanup() error
}

type Updater interface {
	RunUpdate(ctx context.Context)
}
