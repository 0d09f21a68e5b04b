package engine

import (
	"context"
	"fmt"

	"tracklist/internal/data"
	"tracklist/internal/logging"
	"tracklist/internal/media"
	"tracklist/internal/notifications"
	"tracklist/internal/signals"
	"tracklist/internal/tracker"
)

func (e *Engine) newTracker(h *data.Handler) (*tracker.Tracker, error) {
	src := e.opts.Source
	if src == nil {
		var err error
		if src, err = tracker.NewSource(e.cfg, e.opts.Logger); err != nil {
			return nil, err
		}
	}
	return tracker.New(tracker.Options{
		Source: src,
		List:   h,
		Parser: e.opts.Parser,
		Update: e.trackerUpdate,
		Playing: func(item media.Item, playing bool, episode int) {
			if playing {
				h.SetPlaying(item.ID)
			} else {
				h.SetPlaying("")
			}
			item.Playing = playing
			h.Publish(signals.Event{Name: signals.Playing, Item: item, Playing: playing, Episode: episode})
		},
		StateChanged: func(st signals.TrackerStatus) {
			h.Publish(signals.Event{Name: signals.TrackerState, Tracker: st})
		},
		UpdateWait: e.cfg.UpdateWait(),
		Interval:   e.cfg.PollInterval(),
		Logger:     e.opts.Logger,
		Now:        e.now,
	}), nil
}

// trackerUpdate is the tracker's synthetic set-episode. Its signals are
// delivered by the dispatcher without waiting.
func (e *Engine) trackerUpdate(ctx context.Context, id media.ID, episode int) error {
	item, err := e.setEpisode(ctx, id, episode)
	if err != nil {
		return e.report(err, fmt.Sprintf("updating %s to episode %d from playback", id, episode))
	}
	e.messenger.Message(LevelInfo, fmt.Sprintf("%s updated to episode %d.", displayName(item), episode))
	e.logger.Info("tracker progress applied",
		logging.String(logging.FieldItemID, id.String()),
		logging.Int(logging.FieldEpisode, episode),
		logging.String(logging.FieldEventType, "tracker_applied"),
	)
	e.notify(notifications.EventEpisodeUpdated, notifications.Payload{
		"title":   displayName(item),
		"episode": episode,
		"total":   item.Total,
	})
	return nil
}
