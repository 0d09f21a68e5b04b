package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const sessionGlob = "tracklist-*.log"

// PruneSessions deletes session logs in dir last written more than days ago.
// keep names the live session file, which is never removed. days <= 0
// disables pruning. It returns the number of files deleted.
func PruneSessions(logger *slog.Logger, dir string, days int, keep string) int {
	if days <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, sessionGlob))
	if err != nil {
		return 0
	}
	if keep != "" {
		keep = filepath.Clean(keep)
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	var removed int
	for _, path := range matches {
		if filepath.Clean(path) == keep {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "session log not pruned", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions of the log directory"),
				String(FieldImpact, "old session log remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("session log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
