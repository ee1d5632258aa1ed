package utils

import "errors"

var (
	ErrInvalidURL        = errors.New("invalid URL provided")
	ErrExtractionFailed  = errors.New("media extraction failed")
	ErrNetworkFailure    = errors.New("network failure")
	ErrFilesystemFailure = errors.New("filesystem operation failed")
	ErrUnauthorized      = errors.New("unauthorized access")
)

type WrappedError struct {
	Err     error
	Message string
	Context map[string]any
}

func (w *WrappedError) Error() string {
	if w.Message != "" {
		return w.Message + ": " + w.Err.Error()
	}
	return w.Err.Error()
}

func (w *WrappedError) Unwrap() error {
	return w.Err
}

func WrapError(err error, message string, ctx map[string]any) error {
	return &WrappedError{
		Err:     err,
		Message: message,
		Context: ctx,
	}
}

// RootError returns the innermost error in the chain (for user-facing messages without wrapper text).
func RootError(err error) error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		err = e
	}
	return err
}

// DownloadErrorMessage returns a human-readable message for download errors.
// Classification, extraction, network and filesystem failures all funnel
// through here before reaching the status message. Failures are built as
// WrapError(kind, detail, ctx), so the default branch keeps the detail.
func DownloadErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidURL):
		return "Invalid link. Send a URL starting with http/https."
	case errors.Is(err, ErrFilesystemFailure):
		return "Could not store the downloaded file. Check the server logs."
	}
	return err.Error()
}
