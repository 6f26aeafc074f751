package collectors

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sanitizeFilename makes a page or dataset title safe as a filename on every
// filesystem we care about, including Windows.
func sanitizeFilename(name string, maxLength int) string {
	if strings.TrimSpace(name) == "" {
		return "Untitled"
	}

	replacer := strings.NewReplacer(
		"<", "_", ">", "_", ":", "_", "\"", "_", "/", "_",
		"\\", "_", "|", "_", "?", "_", "*", "_",
		"–", "-", "—", "-",
	)
	sanitized := replacer.Replace(name)
	sanitized = strings.Map(func(r rune) rune {
		if r < 0x20 {
			return '_'
		}
		return r
	}, sanitized)
	sanitized = strings.Trim(sanitized, " .")

	if len(sanitized) > maxLength {
		sanitized = sanitized[:maxLength]
	}
	if sanitized == "" {
		return "Untitled"
	}
	return sanitized
}

// createOutputFolder creates the per-record output folder DRP<id, zero-padded
// to 6>. An existing folder from an earlier attempt is removed first so a
// retry never mixes old and new artifacts.
func createOutputFolder(baseDir string, drpid int64) (string, error) {
	folder := filepath.Join(baseDir, fmt.Sprintf("DRP%06d", drpid))
	if err := os.RemoveAll(folder); err != nil {
		return "", fmt.Errorf("remove stale output folder: %w", err)
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("create output folder: %w", err)
	}
	return folder, nil
}
