package utils

import (
	"net/url"
	"regexp"
	"strings"
)

// unsafeFileChars matches path separators, control characters and the
// characters most filesystems reject in file names.
var unsafeFileChars = regexp.MustCompile(`[\x00-\x1f/\\:*?"<>|]+`)

// SanitizeFileName makes a name safe to use as a single path element.
// Path separators and unsafe characters collapse to underscores; leading
// and trailing dots are dropped so the result is never hidden or invalid.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	name = unsafeFileChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, ". ")
	if name == "" {
		return "file"
	}
	return name
}

// GenerateFileName builds the output file name for an extracted video title.
func GenerateFileName(title string) string {
	return SanitizeFileName(title) + ".mp4"
}

func IsValidLink(text string) bool {
	parsedURL, err := url.ParseRequestURI(text)
	if err != nil {
		return false
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return false
	}

	re := regexp.MustCompile(`^[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return re.MatchString(parsedURL.Host)
}
