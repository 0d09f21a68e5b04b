//go:build linux

package tracker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"

	"tracklist/internal/logging"
)

const (
	inotifyMask    = unix.IN_OPEN | unix.IN_CLOSE_WRITE | unix.IN_CLOSE_NOWRITE | unix.IN_CREATE | unix.IN_MOVED_TO
	inotifyPollMS  = 250
	inotifyBufSize = 64 * (unix.SizeofInotifyEvent + unix.NAME_MAX + 1)
)

// InotifySource watches the search directories (recursively) for video
// files being opened and closed. Directories created later are watched as
// they appear.
type InotifySource struct {
	Dirs   []string
	Logger *slog.Logger
}

func (s *InotifySource) Name() string { return "inotify" }

func (s *InotifySource) Watch(ctx context.Context) (<-chan Playback, error) {
	if len(s.Dirs) == 0 {
		return nil, fmt.Errorf("inotify tracker needs at least one search directory")
	}
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("inotify init: %w", err)
	}
	logger := logging.NewComponentLogger(s.Logger, "tracker.inotify")
	watches := map[int]string{}
	// addTree watches root and every directory below it.
	addTree := func(root string) {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			wd, err := unix.InotifyAddWatch(fd, path, inotifyMask)
			if err != nil {
				logger.Debug("directory not watched", logging.String("path", path), logging.Error(err))
				return nil
			}
			watches[wd] = path
			return nil
		})
		if err != nil {
			logger.Debug("search directory walk failed", logging.String("path", root), logging.Error(err))
		}
	}
	for _, root := range s.Dirs {
		addTree(root)
	}
	if len(watches) == 0 {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("no search directory could be watched")
	}

	out := make(chan Playback)
	go func() {
		defer close(out)
		defer unix.Close(fd)
		var (
			buf     [inotifyBufSize]byte
			current string
		)
		emit := func(pb Playback) bool {
			select {
			case out <- pb:
				return true
			case <-ctx.Done():
				return false
			}
		}
		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		for ctx.Err() == nil {
			n, err := unix.Poll(pfd, inotifyPollMS)
			if err != nil && !errors.Is(err, unix.EINTR) {
				logger.Debug("inotify poll failed", logging.Error(err))
				return
			}
			if n <= 0 {
				continue
			}
			read, err := unix.Read(fd, buf[:])
			if err != nil {
				if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
					continue
				}
				logger.Debug("inotify read failed", logging.Error(err))
				return
			}
			for offset := 0; offset+unix.SizeofInotifyEvent <= read; {
				ev := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
				nameStart := offset + unix.SizeofInotifyEvent
				nameEnd := nameStart + int(ev.Len)
				offset = nameEnd
				if ev.Mask&unix.IN_IGNORED != 0 {
					delete(watches, int(ev.Wd))
					continue
				}
				if ev.Len == 0 || nameEnd > read {
					continue
				}
				name := cString(buf[nameStart:nameEnd])
				if ev.Mask&unix.IN_ISDIR != 0 {
					if ev.Mask&(unix.IN_CREATE|unix.IN_MOVED_TO) != 0 {
						if parent, ok := watches[int(ev.Wd)]; ok {
							addTree(filepath.Join(parent, name))
						}
					}
					continue
				}
				if !IsVideo(name) {
					continue
				}
				path := filepath.Join(watches[int(ev.Wd)], name)
				switch {
				case ev.Mask&unix.IN_OPEN != 0 && path != current:
					current = path
					if !emit(Playback{Path: path, Filename: name, State: StatePlaying}) {
						return
					}
				case ev.Mask&(unix.IN_CLOSE_WRITE|unix.IN_CLOSE_NOWRITE) != 0 && path == current:
					current = ""
					if !emit(Playback{State: StateStopped}) {
						return
					}
				}
			}
		}
	}()
	return out, nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
