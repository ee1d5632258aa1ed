package filemanager

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/homelab-dl/homelab-dl/internal/logutils"
	hdlutils "github.com/homelab-dl/homelab-dl/internal/utils"
)

const copyFileMode = 0o644

// Finalize moves a finished download from its temp location into the
// completed directory under fileName, appending " (1)", " (2)", ... before
// the extension when the name is taken. Returns the final path. On error the
// temp file is left in place for the caller's cleanup; the completed
// directory is never left with a partial artifact under the final name.
func Finalize(tempPath, completedDir, fileName string) (string, error) {
	fileName = hdlutils.SanitizeFileName(fileName)

	finalPath, err := dedupePath(completedDir, fileName)
	if err != nil {
		return "", hdlutils.WrapError(hdlutils.ErrFilesystemFailure, err.Error(), map[string]any{
			"dir": completedDir,
		})
	}

	if err := moveFile(tempPath, finalPath); err != nil {
		return "", hdlutils.WrapError(hdlutils.ErrFilesystemFailure, err.Error(), map[string]any{
			"from": tempPath,
			"to":   finalPath,
		})
	}

	logutils.Log.WithFields(map[string]any{
		"file": finalPath,
	}).Info("Download moved to completed directory")
	return finalPath, nil
}

// dedupePath returns dir/name, or the first "name (N)" variant that does not
// exist yet. Best-effort: the check is not linearized against concurrent
// requests, which is acceptable for a single-operator bot.
func dedupePath(dir, name string) (string, error) {
	candidate := filepath.Join(dir, name)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate, nil
	} else if err != nil {
		return "", err
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
	}
}

// moveFile renames when possible and falls back to copy-and-remove for
// cross-device moves (temp and completed on different mounts). The copy is
// written to a hidden intermediate and renamed into place so a crash never
// leaves a partial file under the final name.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	} else if !isCrossDevice(err) {
		return err
	}

	tmp := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".partial")
	if err := copyFile(src, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, copyFileMode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
