package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"tracklist/internal/config"
	"tracklist/internal/logging"
	"tracklist/internal/media"
)

// PlayState is what a backend reports about the open file.
type PlayState string

const (
	StatePlaying PlayState = "playing"
	StatePaused  PlayState = "paused"
	StateStopped PlayState = "stopped"
)

// Playback is one snapshot from a backend. A stopped snapshot or an empty
// filename means nothing of interest is open.
type Playback struct {
	Path     string
	Filename string
	State    PlayState
}

// Active reports whether the snapshot describes an open file.
func (p Playback) Active() bool {
	return p.Filename != "" && p.State != StateStopped
}

// Source reports playback changes until ctx is cancelled, then closes the
// channel.
type Source interface {
	Name() string
	Watch(ctx context.Context) (<-chan Playback, error)
}

var videoExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".webm": true, ".m4v": true,
	".mov": true, ".wmv": true, ".ogm": true, ".flv": true, ".ts": true, ".rmvb": true,
}

// IsVideo reports whether name has a known video extension.
func IsVideo(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

// ProcessPattern compiles the tracker_process setting. The expression must
// match a whole process name, so "mpv" does not match "mpvpaper".
func ProcessPattern(expr string) (*regexp.Regexp, error) {
	pattern, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		return nil, fmt.Errorf("tracker process pattern: %w", err)
	}
	return pattern, nil
}

// NewSource builds the backend selected by cfg.TrackerType.
func NewSource(cfg *config.Config, logger *slog.Logger) (Source, error) {
	interval := cfg.PollInterval()
	switch cfg.TrackerType {
	case config.TrackerProcess, "":
		pattern, err := ProcessPattern(cfg.TrackerProcess)
		if err != nil {
			return nil, err
		}
		return &ProcSource{Pattern: pattern, Interval: interval, Logger: logger}, nil
	case config.TrackerInotify:
		return &InotifySource{Dirs: cfg.SearchDir, Logger: logger}, nil
	case config.TrackerJellyfin:
		return &JellyfinSource{
			BaseURL:  cfg.Jellyfin.URL,
			APIKey:   cfg.Jellyfin.APIKey,
			Username: cfg.Jellyfin.Username,
			Interval: interval,
			Logger:   logger,
		}, nil
	case config.TrackerPlex:
		return &PlexSource{
			BaseURL:  cfg.Plex.URL,
			Token:    cfg.Plex.Token,
			Username: cfg.Plex.Username,
			Interval: interval,
			Logger:   logger,
		}, nil
	default:
		return nil, media.Wrap(media.ErrUnsupported, "tracker", "source", fmt.Sprintf("unknown tracker type %q", cfg.TrackerType), nil)
	}
}

// poll calls fetch every interval and forwards snapshots that differ from
// the previous one. A failed fetch counts as stopped so a vanished server
// never keeps a dwell running.
func poll(ctx context.Context, name string, interval time.Duration, logger *slog.Logger, fetch func(context.Context) (Playback, error)) <-chan Playback {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	out := make(chan Playback)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var last Playback
		first := true
		for {
			pb, err := fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Debug("playback poll failed", logging.String("source", name), logging.Error(err))
				pb = Playback{State: StateStopped}
			}
			if first || pb != last {
				first = false
				last = pb
				select {
				case out <- pb:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}
