package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tracklist/internal/config"
)

const userAgent = "tracklist/1.0"

// Event names a notification type.
type Event string

const (
	EventEpisodeUpdated Event = "episode_updated"
	EventQueueSent      Event = "queue_sent"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries the values an event message is built from.
type Payload map[string]any

// Service defines the notification surface used by the engine.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventEpisodeUpdated: cfg.Notifications.TrackerUpdates,
			EventQueueSent:      cfg.Notifications.TrackerUpdates,
			EventError:          cfg.Notifications.Errors,
			EventTest:           true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventEpisodeUpdated:
		title := payloadString(payload, "title")
		episode := payloadString(payload, "episode")
		body := fmt.Sprintf("▶ %s episode %s watched", title, episode)
		if total := payloadString(payload, "total"); total != "" && total != "0" {
			body = fmt.Sprintf("▶ %s episode %s/%s watched", title, episode, total)
		}
		return message{
			title: "Tracklist - Progress Updated",
			body:  body,
			tags:  []string{"tracklist", "tracker", "updated"},
		}, true
	case EventQueueSent:
		return message{
			title: "Tracklist - Changes Sent",
			body:  fmt.Sprintf("Sent %s queued changes to %s", payloadString(payload, "count"), payloadString(payload, "site")),
			tags:  []string{"tracklist", "queue", "sent"},
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := payloadString(payload, "context"); label != "" {
			b.WriteString(" while ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if msg := payloadString(payload, "error"); msg != "" {
			b.WriteString(msg)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "Tracklist - Error",
			body:     b.String(),
			tags:     []string{"tracklist", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Tracklist - Test",
			body:     "Notification system test",
			tags:     []string{"tracklist", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func payloadString(payload Payload, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
