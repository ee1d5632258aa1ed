package ytdlp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	hdlconfig "github.com/homelab-dl/homelab-dl/internal/config"
	"github.com/homelab-dl/homelab-dl/internal/downloader"
	"github.com/homelab-dl/homelab-dl/internal/logutils"
	hdlutils "github.com/homelab-dl/homelab-dl/internal/utils"
)

const (
	defaultYtdlpBinary = "yt-dlp"
	metadataTimeout    = 30 * time.Second
	workDirMode        = 0o755
	// stderrTailLimit caps how much of yt-dlp's stderr is carried into the
	// failure shown to the user.
	stderrTailLimit = 500
)

type YTDLPDownloader struct {
	url            string
	title          string
	outputFileName string
	workDir        string
	settings       hdlconfig.VideoConfig
	cmd            *exec.Cmd
}

// NewYTDLPDownloader resolves the video title up front (it determines the
// output file name) and reserves a per-request temp directory under tempDir.
func NewYTDLPDownloader(videoURL, tempDir string, cfg *hdlconfig.Config) downloader.Downloader {
	settings := cfg.VideoSettings

	videoTitle, err := getVideoTitle(videoURL, settings)
	if err != nil {
		logutils.Log.WithError(err).Error("Failed to retrieve video title, generating fallback title")
		videoTitle = fallbackTitle(videoURL)
	}

	return &YTDLPDownloader{
		url:            videoURL,
		title:          videoTitle,
		outputFileName: hdlutils.GenerateFileName(videoTitle),
		workDir:        filepath.Join(tempDir, uuid.New().String()[:8]),
		settings:       settings,
	}
}

func (d *YTDLPDownloader) GetTitle() (string, error) {
	return d.title, nil
}

func (d *YTDLPDownloader) OutputFileName() (string, error) {
	return d.outputFileName, nil
}

func (d *YTDLPDownloader) TempPath() string {
	return filepath.Join(d.workDir, d.outputFileName)
}

func (d *YTDLPDownloader) Cleanup() error {
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

func (d *YTDLPDownloader) StartDownload(
	ctx context.Context,
) (<-chan downloader.Progress, <-chan error, error) {
	if err := os.MkdirAll(d.workDir, workDirMode); err != nil {
		return nil, nil, hdlutils.WrapError(hdlutils.ErrFilesystemFailure,
			"failed to create temp directory: "+err.Error(), nil)
	}

	cmd := exec.CommandContext(ctx, d.binary(), d.buildArgs(d.TempPath())...)
	d.cmd = cmd

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, hdlutils.WrapError(hdlutils.ErrExtractionFailed,
			"failed to start yt-dlp: "+err.Error(), nil)
	}

	progressChan := make(chan downloader.Progress)
	errChan := make(chan error, 1)

	go d.monitorDownload(ctx, stdout, stderr, progressChan, errChan)

	return progressChan, errChan, nil
}

func (d *YTDLPDownloader) binary() string {
	if d.settings.YtdlpPath != "" {
		return d.settings.YtdlpPath
	}
	return defaultYtdlpBinary
}

func (d *YTDLPDownloader) buildArgs(outputPath string) []string {
	args := []string{
		"--newline",
		"--no-playlist",
		"--no-warnings",
		"-f", d.settings.QualitySelector,
		"--merge-output-format", "mp4",
		"-o", escapeOutputTemplate(outputPath),
	}
	if d.settings.Proxy != "" {
		args = append([]string{"--proxy", d.settings.Proxy}, args...)
	}
	return append(args, d.url)
}

// escapeOutputTemplate doubles percent signs: `-o` is an output template
// where `%` is a formatting metacharacter, and titles like "50% Off" pass
// sanitization unchanged. yt-dlp collapses `%%` back to a literal `%`, so
// the file lands exactly at TempPath.
func escapeOutputTemplate(path string) string {
	return strings.ReplaceAll(path, "%", "%%")
}

func (d *YTDLPDownloader) monitorDownload(
	ctx context.Context,
	stdout, stderr io.ReadCloser,
	progressChan chan downloader.Progress,
	errChan chan error,
) {
	defer close(progressChan)

	errorOutput := make(chan string, 1)
	go func() {
		defer close(errorOutput)
		scanner := bufio.NewScanner(stderr)
		var output strings.Builder
		for scanner.Scan() {
			output.WriteString(scanner.Text() + "\n")
		}
		errorOutput <- output.String()
	}()

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if p, ok := ParseProgressLine(scanner.Text()); ok {
			progressChan <- p
		}
	}

	processErr := d.cmd.Wait()
	stderrOutput := <-errorOutput

	switch {
	case processErr == nil:
		errChan <- nil
	case errors.Is(ctx.Err(), context.Canceled):
		logutils.Log.Info("yt-dlp process canceled")
		errChan <- ctx.Err()
	default:
		logutils.Log.WithError(processErr).Errorf("yt-dlp exited with error: %s", stderrOutput)
		errChan <- hdlutils.WrapError(hdlutils.ErrExtractionFailed,
			stderrTail(stderrOutput, processErr), map[string]any{"url": d.url})
	}
	close(errChan)
}

// ParseProgressLine extracts progress from a yt-dlp --newline status line,
// e.g. "[download]  42.7% of   10.55MiB at  1.20MiB/s ETA 00:05".
func ParseProgressLine(line string) (downloader.Progress, bool) {
	if !strings.HasPrefix(line, "[download]") {
		return downloader.Progress{}, false
	}
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.HasSuffix(fields[1], "%") {
		return downloader.Progress{}, false
	}
	percent, err := strconv.ParseFloat(strings.TrimSuffix(fields[1], "%"), 64)
	if err != nil {
		return downloader.Progress{}, false
	}

	p := downloader.Progress{Percent: percent}
	if len(fields) >= 4 && fields[2] == "of" {
		if total, parseErr := humanize.ParseBytes(strings.TrimPrefix(fields[3], "~")); parseErr == nil {
			p.Total = int64(total)
			p.Downloaded = int64(float64(p.Total) * percent / 100)
		}
	}
	return p, true
}

func stderrTail(output string, processErr error) string {
	out := strings.TrimSpace(output)
	if len(out) > stderrTailLimit {
		cut := len(out) - stderrTailLimit
		// Keep the cut on a rune boundary; yt-dlp stderr often carries
		// non-ASCII titles.
		for cut < len(out) && !utf8.RuneStart(out[cut]) {
			cut++
		}
		out = out[cut:]
	}
	if out == "" {
		return "yt-dlp failed: " + processErr.Error()
	}
	return "yt-dlp failed: " + out
}

func getVideoTitle(videoURL string, settings hdlconfig.VideoConfig) (string, error) {
	args := []string{"--get-title", "--no-playlist"}
	if settings.Proxy != "" {
		args = append(args, "--proxy", settings.Proxy)
	}
	args = append(args, videoURL)

	ctx, cancel := context.WithTimeout(context.Background(), metadataTimeout)
	defer cancel()

	binary := settings.YtdlpPath
	if binary == "" {
		binary = defaultYtdlpBinary
	}
	output, err := exec.CommandContext(ctx, binary, args...).Output()
	if err != nil {
		return "", fmt.Errorf("failed to get video title: %w", err)
	}

	title := strings.TrimSpace(string(output))
	if title == "" {
		return "Unknown Title", nil
	}
	return title, nil
}

var nonIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// fallbackTitle derives a stable name from the URL when the title lookup fails.
func fallbackTitle(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "unknown_video"
	}

	hostname := nonIDChars.ReplaceAllString(parsedURL.Hostname(), "_")
	if v := parsedURL.Query().Get("v"); v != "" {
		return hostname + "_" + v
	}
	if path := strings.Trim(parsedURL.Path, "/"); path != "" {
		return hostname + "_" + nonIDChars.ReplaceAllString(path, "_")
	}
	if hostname == "" {
		return "unknown_video"
	}
	return hostname
}
