package ytdlp

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	hdlconfig "github.com/homelab-dl/homelab-dl/internal/config"
)

func TestParseProgressLine(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantOK      bool
		wantPercent float64
		wantTotal   int64
	}{
		{
			name:        "Percent with total",
			line:        "[download]  42.7% of   10.55MiB at  1.20MiB/s ETA 00:05",
			wantOK:      true,
			wantPercent: 42.7,
			wantTotal:   11062476,
		},
		{
			name:        "Estimated total",
			line:        "[download]   1.2% of ~500.00KiB at  100.00KiB/s ETA 00:04",
			wantOK:      true,
			wantPercent: 1.2,
			wantTotal:   512000,
		},
		{
			name:        "Completed line",
			line:        "[download] 100% of 10.55MiB in 00:08",
			wantOK:      true,
			wantPercent: 100,
			wantTotal:   11062476,
		},
		{
			name:   "Destination line",
			line:   "[download] Destination: downloads/temp/ab12cd34/video.mp4",
			wantOK: false,
		},
		{
			name:   "Merger line",
			line:   "[Merger] Merging formats into video.mp4",
			wantOK: false,
		},
		{
			name:   "Unrelated output",
			line:   "WARNING: unable to extract thumbnail",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := ParseProgressLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ParseProgressLine(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if p.Percent != tt.wantPercent {
				t.Errorf("Percent = %v, want %v", p.Percent, tt.wantPercent)
			}
			if p.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", p.Total, tt.wantTotal)
			}
		})
	}
}

func TestBuildArgs(t *testing.T) {
	d := &YTDLPDownloader{
		url: "https://www.youtube.com/watch?v=abc",
		settings: hdlconfig.VideoConfig{
			QualitySelector: "bestvideo+bestaudio/best",
		},
	}
	args := d.buildArgs("/tmp/work/video.mp4")

	want := []string{
		"--newline", "--no-playlist", "--no-warnings",
		"-f", "bestvideo+bestaudio/best",
		"--merge-output-format", "mp4",
		"-o", "/tmp/work/video.mp4",
		"https://www.youtube.com/watch?v=abc",
	}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestBuildArgsWithProxy(t *testing.T) {
	d := &YTDLPDownloader{
		url: "https://vimeo.com/123",
		settings: hdlconfig.VideoConfig{
			QualitySelector: "best",
			Proxy:           "socks5://127.0.0.1:1080",
		},
	}
	args := d.buildArgs("/tmp/out.mp4")

	if args[0] != "--proxy" || args[1] != "socks5://127.0.0.1:1080" {
		t.Errorf("proxy args missing, got %v", args[:2])
	}
	if args[len(args)-1] != "https://vimeo.com/123" {
		t.Errorf("URL must be the last argument, got %v", args)
	}
}

func TestBuildArgsEscapesPercentInOutputPath(t *testing.T) {
	d := &YTDLPDownloader{
		url: "https://www.youtube.com/watch?v=abc",
		settings: hdlconfig.VideoConfig{
			QualitySelector: "best",
		},
	}
	args := d.buildArgs("/tmp/work/50% Off.mp4")

	for i, arg := range args {
		if arg == "-o" {
			if got := args[i+1]; got != "/tmp/work/50%% Off.mp4" {
				t.Errorf("-o argument = %q, want %q", got, "/tmp/work/50%% Off.mp4")
			}
			return
		}
	}
	t.Fatalf("no -o argument in %v", args)
}

func TestStderrTailCutsOnRuneBoundary(t *testing.T) {
	// Three-byte runes: 900 bytes total, so the 500-byte cut lands one
	// byte into a rune without the boundary adjustment.
	long := strings.Repeat("€", 300)
	got := stderrTail(long, errors.New("exit status 1"))

	if !utf8.ValidString(got) {
		t.Errorf("stderrTail produced invalid UTF-8: %q", got[:16])
	}
	if !strings.HasPrefix(got, "yt-dlp failed: ") {
		t.Errorf("unexpected prefix: %q", got[:20])
	}
	if len(got) > len("yt-dlp failed: ")+501 {
		t.Errorf("tail not truncated, len = %d", len(got))
	}
}

func TestStderrTailEmptyOutputUsesProcessError(t *testing.T) {
	got := stderrTail("  \n", errors.New("exit status 2"))
	if got != "yt-dlp failed: exit status 2" {
		t.Errorf("stderrTail = %q", got)
	}
}

func TestFallbackTitle(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"YouTube watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "www_youtube_com_dQw4w9WgXcQ"},
		{"Path-based URL", "https://vimeo.com/76979871", "vimeo_com_76979871"},
		{"Bare host", "https://example.com", "example_com"},
		{"Unparseable", "://broken", "unknown_video"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fallbackTitle(tt.url); got != tt.expected {
				t.Errorf("fallbackTitle(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}

func TestCleanupRemovesWorkDir(t *testing.T) {
	tempDir := t.TempDir()
	d := &YTDLPDownloader{
		outputFileName: "video.mp4",
		workDir:        filepath.Join(tempDir, "ab12cd34"),
	}

	if err := os.MkdirAll(d.workDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(d.TempPath()+".part", []byte("partial"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := d.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(d.workDir); !os.IsNotExist(err) {
		t.Errorf("work dir should be removed, stat err = %v", err)
	}
}
