package tracker

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"tracklist/internal/logging"
)

// ProcSource polls a procfs tree for processes whose name matches Pattern
// and reports the first video file any of them holds open.
type ProcSource struct {
	// Root defaults to /proc.
	Root     string
	Pattern  *regexp.Regexp
	Interval time.Duration
	Logger   *slog.Logger
}

func (s *ProcSource) Name() string { return "process" }

func (s *ProcSource) Watch(ctx context.Context) (<-chan Playback, error) {
	root := s.Root
	if root == "" {
		root = "/proc"
	}
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}
	logger := logging.NewComponentLogger(s.Logger, "tracker.proc")
	return poll(ctx, s.Name(), s.Interval, logger, func(context.Context) (Playback, error) {
		return s.scan(root)
	}), nil
}

func (s *ProcSource) scan(root string) (Playback, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return Playback{}, err
	}
	var pids []int
	for _, e := range entries {
		if pid, err := strconv.Atoi(e.Name()); err == nil && e.IsDir() {
			pids = append(pids, pid)
		}
	}
	slices.Sort(pids)
	for _, pid := range pids {
		dir := filepath.Join(root, strconv.Itoa(pid))
		comm, err := os.ReadFile(filepath.Join(dir, "comm"))
		if err != nil {
			continue
		}
		if s.Pattern != nil && !s.Pattern.MatchString(strings.TrimSpace(string(comm))) {
			continue
		}
		if path := openVideo(filepath.Join(dir, "fd")); path != "" {
			return Playback{Path: path, Filename: filepath.Base(path), State: StatePlaying}, nil
		}
	}
	return Playback{State: StateStopped}, nil
}

// openVideo returns the first video file among the fd links in dir.
// Processes of other users are unreadable and simply skipped.
func openVideo(dir string) string {
	fds, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var found []string
	for _, fd := range fds {
		target, err := os.Readlink(filepath.Join(dir, fd.Name()))
		if err != nil || !filepath.IsAbs(target) {
			continue
		}
		if IsVideo(target) {
			found = append(found, target)
		}
	}
	if len(found) == 0 {
		return ""
	}
	slices.Sort(found)
	return found[0]
}
