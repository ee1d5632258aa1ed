package direct

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	hdlconfig "github.com/homelab-dl/homelab-dl/internal/config"
	"github.com/homelab-dl/homelab-dl/internal/downloader"
	"github.com/homelab-dl/homelab-dl/internal/logutils"
	hdlutils "github.com/homelab-dl/homelab-dl/internal/utils"
)

const (
	chunkSize   = 1024 * 1024
	workDirMode = 0o755
	fileMode    = 0o644
)

// Downloader streams a generic HTTP resource to the temp area.
type Downloader struct {
	url      string
	workDir  string
	fileName string
	client   *http.Client
}

func NewDirectDownloader(fileURL, tempDir string, cfg *hdlconfig.Config) downloader.Downloader {
	return &Downloader{
		url:      fileURL,
		workDir:  filepath.Join(tempDir, uuid.New().String()[:8]),
		fileName: fileNameFromURL(fileURL),
		client:   &http.Client{Timeout: cfg.DownloadSettings.HTTPTimeout},
	}
}

func (d *Downloader) GetTitle() (string, error) {
	return d.fileName, nil
}

// OutputFileName is refined from the Content-Disposition header once the
// response arrives; before that it is the URL-derived fallback.
func (d *Downloader) OutputFileName() (string, error) {
	return d.fileName, nil
}

func (d *Downloader) TempPath() string {
	return filepath.Join(d.workDir, d.fileName)
}

func (d *Downloader) Cleanup() error {
	if d.workDir == "" {
		return nil
	}
	if err := os.RemoveAll(d.workDir); err != nil {
		return hdlutils.WrapError(err, "failed to remove temp directory", map[string]any{
			"dir": d.workDir,
		})
	}
	return nil
}

func (d *Downloader) StartDownload(
	ctx context.Context,
) (<-chan downloader.Progress, <-chan error, error) {
	if err := os.MkdirAll(d.workDir, workDirMode); err != nil {
		return nil, nil, hdlutils.WrapError(hdlutils.ErrFilesystemFailure,
			"failed to create temp directory: "+err.Error(), nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, http.NoBody)
	if err != nil {
		return nil, nil, hdlutils.WrapError(hdlutils.ErrInvalidURL, err.Error(), nil)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, nil, hdlutils.WrapError(hdlutils.ErrNetworkFailure, err.Error(), map[string]any{
			"url": d.url,
		})
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close()
		return nil, nil, hdlutils.WrapError(hdlutils.ErrNetworkFailure,
			fmt.Sprintf("HTTP status %d", resp.StatusCode), map[string]any{"url": d.url})
	}

	if name := fileNameFromHeader(resp.Header.Get("Content-Disposition")); name != "" {
		d.fileName = name
	}

	progressChan := make(chan downloader.Progress)
	errChan := make(chan error, 1)

	go d.streamToFile(ctx, resp, progressChan, errChan)

	return progressChan, errChan, nil
}

func (d *Downloader) streamToFile(
	ctx context.Context,
	resp *http.Response,
	progressChan chan downloader.Progress,
	errChan chan error,
) {
	defer close(progressChan)
	defer resp.Body.Close()

	fail := func(err error) {
		if removeErr := os.Remove(d.TempPath()); removeErr != nil && !os.IsNotExist(removeErr) {
			logutils.Log.WithError(removeErr).Warn("Failed to remove partial download")
		}
		errChan <- err
		close(errChan)
	}

	out, err := os.OpenFile(d.TempPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		fail(hdlutils.WrapError(hdlutils.ErrFilesystemFailure, err.Error(), nil))
		return
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	var downloaded int64
	buf := make([]byte, chunkSize)
	for {
		if ctx.Err() != nil {
			out.Close()
			fail(ctx.Err())
			return
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				out.Close()
				fail(hdlutils.WrapError(hdlutils.ErrFilesystemFailure, writeErr.Error(), nil))
				return
			}
			downloaded += int64(n)
			progressChan <- makeProgress(downloaded, total)
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			out.Close()
			fail(hdlutils.WrapError(hdlutils.ErrNetworkFailure, readErr.Error(), map[string]any{
				"url": d.url,
			}))
			return
		}
	}

	if err := out.Close(); err != nil {
		fail(hdlutils.WrapError(hdlutils.ErrFilesystemFailure, err.Error(), nil))
		return
	}

	errChan <- nil
	close(errChan)
}

func makeProgress(downloaded, total int64) downloader.Progress {
	p := downloader.Progress{Downloaded: downloaded, Total: total}
	if total > 0 {
		p.Percent = float64(downloaded) / float64(total) * 100
	}
	return p
}

// fileNameFromHeader extracts the filename parameter from a
// Content-Disposition header, sanitized; empty when absent or unusable.
func fileNameFromHeader(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := params["filename"]
	if name == "" {
		return ""
	}
	return hdlutils.SanitizeFileName(name)
}

// fileNameFromURL falls back to the last URL path element, then a
// timestamped generic name.
func fileNameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err == nil {
		if base := path.Base(parsed.Path); base != "" && base != "." && base != "/" {
			return hdlutils.SanitizeFileName(base)
		}
	}
	return fmt.Sprintf("file_%d.bin", time.Now().Unix())
}
