package factory

import (
	"net/url"
	"strings"

	hdlconfig "github.com/homelab-dl/homelab-dl/internal/config"
	"github.com/homelab-dl/homelab-dl/internal/downloader"
	"github.com/homelab-dl/homelab-dl/internal/downloader/direct"
	ytdlp "github.com/homelab-dl/homelab-dl/internal/downloader/video"
	"github.com/homelab-dl/homelab-dl/internal/logutils"
	hdlutils "github.com/homelab-dl/homelab-dl/internal/utils"
)

// mediaHosts are the site suffixes handed to the extraction adapter.
// Anything else is treated as a generic file and fetched directly.
var mediaHosts = []string{
	"youtube.com",
	"youtu.be",
	"tiktok.com",
	"facebook.com",
	"instagram.com",
	"vimeo.com",
	"twitter.com",
	"x.com",
	"twitch.tv",
	"dailymotion.com",
	"soundcloud.com",
}

// NewDownloaderFromURL classifies a URL and returns the matching adapter:
// media-site URLs go to yt-dlp, everything else to the direct HTTP path.
func NewDownloaderFromURL(rawURL string, cfg *hdlconfig.Config) (downloader.Downloader, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, hdlutils.WrapError(hdlutils.ErrInvalidURL, "empty URL", nil)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, hdlutils.WrapError(hdlutils.ErrInvalidURL, err.Error(), nil)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, hdlutils.WrapError(hdlutils.ErrInvalidURL,
			"unsupported scheme: "+parsed.Scheme, nil)
	}
	if parsed.Hostname() == "" {
		return nil, hdlutils.WrapError(hdlutils.ErrInvalidURL, "missing host", nil)
	}

	if IsMediaSite(parsed.Hostname()) {
		logutils.Log.WithField("url", rawURL).Debug("Classified as media site, using yt-dlp")
		return ytdlp.NewYTDLPDownloader(rawURL, cfg.TempDir(), cfg), nil
	}

	logutils.Log.WithField("url", rawURL).Debug("Classified as direct file link")
	return direct.NewDirectDownloader(rawURL, cfg.TempDir(), cfg), nil
}

// IsMediaSite reports whether the hostname belongs to a site the extraction
// library handles. Matches the domain and its subdomains, not substrings.
func IsMediaSite(hostname string) bool {
	hostname = strings.ToLower(hostname)
	for _, domain := range mediaHosts {
		if hostname == domain || strings.HasSuffix(hostname, "."+domain) {
			return true
		}
	}
	return false
}
