//go:build !linux

package tracker

import (
	"context"
	"log/slog"

	"tracklist/internal/media"
)

// InotifySource is only available on Linux.
type InotifySource struct {
	Dirs   []string
	Logger *slog.Logger
}

func (s *InotifySource) Name() string { return "inotify" }

func (s *InotifySource) Watch(context.Context) (<-chan Playback, error) {
	return nil, media.Wrap(media.ErrUnsupported, "tracker", "inotify", "inotify is only available on linux", nil)
}
