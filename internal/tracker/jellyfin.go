package tracker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"tracklist/internal/logging"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// JellyfinSource polls a Jellyfin server's /Sessions endpoint.
type JellyfinSource struct {
	BaseURL string
	APIKey  string
	// Username limits tracking to one Jellyfin user; empty accepts any.
	Username string
	Interval time.Duration
	Client   HTTPDoer
	Logger   *slog.Logger
}

type jellyfinSession struct {
	UserName       string `json:"UserName"`
	NowPlayingItem *struct {
		Name string `json:"Name"`
		Path string `json:"Path"`
	} `json:"NowPlayingItem"`
	PlayState struct {
		IsPaused bool `json:"IsPaused"`
	} `json:"PlayState"`
}

func (s *JellyfinSource) Name() string { return "jellyfin" }

func (s *JellyfinSource) Watch(ctx context.Context) (<-chan Playback, error) {
	if strings.TrimSpace(s.BaseURL) == "" || strings.TrimSpace(s.APIKey) == "" {
		return nil, fmt.Errorf("jellyfin url and api key are required")
	}
	logger := logging.NewComponentLogger(s.Logger, "tracker.jellyfin")
	return poll(ctx, s.Name(), s.Interval, logger, s.fetch), nil
}

func (s *JellyfinSource) fetch(ctx context.Context) (Playback, error) {
	url := strings.TrimRight(strings.TrimSpace(s.BaseURL), "/") + "/Sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Playback{}, fmt.Errorf("build jellyfin sessions request: %w", err)
	}
	req.Header.Set("X-Emby-Token", strings.TrimSpace(s.APIKey))
	req.Header.Set("Accept", "application/json")

	var sessions []jellyfinSession
	if err := doJSON(httpClient(s.Client), req, &sessions); err != nil {
		return Playback{}, fmt.Errorf("jellyfin sessions: %w", err)
	}
	for _, sess := range sessions {
		if sess.NowPlayingItem == nil {
			continue
		}
		if s.Username != "" && !strings.EqualFold(sess.UserName, s.Username) {
			continue
		}
		path := sess.NowPlayingItem.Path
		name := filepath.Base(path)
		if path == "" {
			name = sess.NowPlayingItem.Name
		}
		state := StatePlaying
		if sess.PlayState.IsPaused {
			state = StatePaused
		}
		return Playback{Path: path, Filename: name, State: state}, nil
	}
	return Playback{State: StateStopped}, nil
}

func httpClient(c HTTPDoer) HTTPDoer {
	if c == nil {
		return http.DefaultClient
	}
	return c
}

func doJSON(client HTTPDoer, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
