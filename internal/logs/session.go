package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// SessionPattern matches the files written by logging.NewFromConfig.
const SessionPattern = "tracklist-*.log"

// Sessions lists the session logs in dir, oldest first. Names carry a UTC
// timestamp, so name order is start order.
func Sessions(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, SessionPattern))
	if err != nil {
		return nil, fmt.Errorf("list session logs: %w", err)
	}
	out := matches[:0]
	for _, path := range matches {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			out = append(out, path)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Latest returns the newest session log in dir, skipping exclude (the log of
// the calling process). ok is false when there is none.
func Latest(dir string, exclude ...string) (string, bool, error) {
	sessions, err := Sessions(dir)
	if err != nil {
		return "", false, err
	}
	for i := len(sessions) - 1; i >= 0; i-- {
		if !slices.Contains(exclude, sessions[i]) {
			return sessions[i], true, nil
		}
	}
	return "", false, nil
}
