package direct

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	hdlconfig "github.com/homelab-dl/homelab-dl/internal/config"
	"github.com/homelab-dl/homelab-dl/internal/downloader"
	hdlutils "github.com/homelab-dl/homelab-dl/internal/utils"
)

func testConfig() *hdlconfig.Config {
	return &hdlconfig.Config{}
}

func runDownload(t *testing.T, dl downloader.Downloader) ([]downloader.Progress, error) {
	t.Helper()
	progressChan, errChan, err := dl.StartDownload(context.Background())
	if err != nil {
		return nil, err
	}
	var updates []downloader.Progress
	for p := range progressChan {
		updates = append(updates, p)
	}
	return updates, <-errChan
}

func TestDownloadWithContentDisposition(t *testing.T) {
	body := make([]byte, 10*1024)
	if _, err := rand.Read(body); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
		w.Write(body)
	}))
	defer server.Close()

	tempDir := t.TempDir()
	dl := NewDirectDownloader(server.URL+"/dl?id=42", tempDir, testConfig())

	updates, err := runDownload(t, dl)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}

	name, _ := dl.OutputFileName()
	if name != "report.pdf" {
		t.Errorf("OutputFileName = %q, want report.pdf", name)
	}

	data, err := os.ReadFile(dl.TempPath())
	if err != nil {
		t.Fatalf("read temp file: %v", err)
	}
	if !bytes.Equal(data, body) {
		t.Errorf("downloaded %d bytes, want %d matching bytes", len(data), len(body))
	}

	if len(updates) == 0 {
		t.Fatal("expected at least one progress update")
	}
	last := updates[len(updates)-1]
	if last.Downloaded != int64(len(body)) {
		t.Errorf("final Downloaded = %d, want %d", last.Downloaded, len(body))
	}
	if last.Total != int64(len(body)) {
		t.Errorf("Total = %d, want %d", last.Total, len(body))
	}
	if last.Percent != 100 {
		t.Errorf("final Percent = %v, want 100", last.Percent)
	}
}

func TestDownloadFilenameFromURLPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	dl := NewDirectDownloader(server.URL+"/files/archive.zip?token=x", t.TempDir(), testConfig())

	if _, err := runDownload(t, dl); err != nil {
		t.Fatalf("download failed: %v", err)
	}
	name, _ := dl.OutputFileName()
	if name != "archive.zip" {
		t.Errorf("OutputFileName = %q, want archive.zip", name)
	}
}

func TestDownloadGeneratedFallbackName(t *testing.T) {
	dl := NewDirectDownloader("https://example.com/", t.TempDir(), testConfig())

	name, _ := dl.OutputFileName()
	if !strings.HasPrefix(name, "file_") || !strings.HasSuffix(name, ".bin") {
		t.Errorf("OutputFileName = %q, want generated file_<ts>.bin", name)
	}
}

func TestDownloadProgressMonotonic(t *testing.T) {
	body := make([]byte, 64*1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(body)
	}))
	defer server.Close()

	dl := NewDirectDownloader(server.URL+"/big.iso", t.TempDir(), testConfig())
	updates, err := runDownload(t, dl)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}

	var prev int64
	for _, p := range updates {
		if p.Downloaded < prev {
			t.Fatalf("progress went backwards: %d after %d", p.Downloaded, prev)
		}
		prev = p.Downloaded
	}
}

func TestDownloadNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	tempDir := t.TempDir()
	dl := NewDirectDownloader(server.URL+"/missing.bin", tempDir, testConfig())

	_, _, err := dl.StartDownload(context.Background())
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !errors.Is(err, hdlutils.ErrNetworkFailure) {
		t.Errorf("error should be a network failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should carry the status code, got %v", err)
	}
}

func TestDownloadConnectionError(t *testing.T) {
	// Reserved TEST-NET address; the connection never succeeds.
	dl := NewDirectDownloader("http://192.0.2.1:1/file.bin", t.TempDir(), &hdlconfig.Config{
		DownloadSettings: hdlconfig.DownloadConfig{HTTPTimeout: 200 * time.Millisecond},
	})

	_, _, err := dl.StartDownload(context.Background())
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !errors.Is(err, hdlutils.ErrNetworkFailure) {
		t.Errorf("error should be a network failure, got %v", err)
	}
}

func TestDownloadPartialBodyCleansTempFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Announce more bytes than are sent; the server closes the
		// connection and the client sees a truncated body.
		w.Header().Set("Content-Length", "1048576")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("truncated"))
	}))
	defer server.Close()

	dl := NewDirectDownloader(server.URL+"/cut.bin", t.TempDir(), testConfig())
	_, err := runDownload(t, dl)
	if err == nil {
		t.Fatal("expected error for truncated body")
	}
	if !errors.Is(err, hdlutils.ErrNetworkFailure) {
		t.Errorf("error should be a network failure, got %v", err)
	}
	if _, statErr := os.Stat(dl.TempPath()); !os.IsNotExist(statErr) {
		t.Errorf("partial temp file should be removed, stat err = %v", statErr)
	}
}

func TestFileNameFromHeader(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{"Quoted filename", `attachment; filename="report.pdf"`, "report.pdf"},
		{"Unquoted filename", `attachment; filename=data.csv`, "data.csv"},
		{"Path stripped", `attachment; filename="../../etc/passwd"`, "_.._etc_passwd"},
		{"No filename param", `inline`, ""},
		{"Empty header", "", ""},
		{"Garbage header", `;;;`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fileNameFromHeader(tt.header); got != tt.expected {
				t.Errorf("fileNameFromHeader(%q) = %q, want %q", tt.header, got, tt.expected)
			}
		})
	}
}
