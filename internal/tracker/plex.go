package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"tracklist/internal/logging"
)

// PlexSource polls a Plex server's /status/sessions endpoint.
type PlexSource struct {
	BaseURL string
	Token   string
	// Username limits tracking to one Plex account; empty accepts any.
	Username string
	Interval time.Duration
	Client   HTTPDoer
	Logger   *slog.Logger
}

type plexSessions struct {
	MediaContainer struct {
		Metadata []struct {
			Title string `json:"title"`
			User  struct {
				Title string `json:"title"`
			} `json:"User"`
			Player struct {
				State string `json:"state"`
			} `json:"Player"`
			Media []struct {
				Part []struct {
					File string `json:"file"`
				} `json:"Part"`
			} `json:"Media"`
		} `json:"Metadata"`
	} `json:"MediaContainer"`
}

func (s *PlexSource) Name() string { return "plex" }

func (s *PlexSource) Watch(ctx context.Context) (<-chan Playback, error) {
	if strings.TrimSpace(s.BaseURL) == "" || strings.TrimSpace(s.Token) == "" {
		return nil, fmt.Errorf("plex url and token are required")
	}
	logger := logging.NewComponentLogger(s.Logger, "tracker.plex")
	return poll(ctx, s.Name(), s.Interval, logger, s.fetch), nil
}

func (s *PlexSource) fetch(ctx context.Context) (Playback, error) {
	url := strings.TrimRight(strings.TrimSpace(s.BaseURL), "/") + "/status/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Playback{}, fmt.Errorf("build plex sessions request: %w", err)
	}
	req.Header.Set("X-Plex-Token", strings.TrimSpace(s.Token))
	req.Header.Set("Accept", "application/json")

	var doc plexSessions
	if err := doJSON(httpClient(s.Client), req, &doc); err != nil {
		return Playback{}, fmt.Errorf("plex sessions: %w", err)
	}
	for _, meta := range doc.MediaContainer.Metadata {
		if s.Username != "" && !strings.EqualFold(meta.User.Title, s.Username) {
			continue
		}
		var file string
		for _, m := range meta.Media {
			for _, p := range m.Part {
				if p.File != "" {
					file = p.File
					break
				}
			}
			if file != "" {
				break
			}
		}
		if file == "" {
			continue
		}
		state := StatePlaying
		switch strings.ToLower(meta.Player.State) {
		case "paused":
			state = StatePaused
		case "stopped":
			state = StateStopped
		}
		return Playback{Path: file, Filename: filepath.Base(file), State: state}, nil
	}
	return Playback{State: StateStopped}, nil
}
