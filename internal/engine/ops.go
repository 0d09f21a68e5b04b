package engine

import (
	"context"
	"fmt"

	"tracklist/internal/logging"
	"tracklist/internal/media"
	"tracklist/internal/notifications"
	"tracklist/internal/signals"
	"tracklist/internal/site"
)

// AddShow puts item on the list and queues its creation. Missing status
// defaults to the mediatype's first status.
func (e *Engine) AddShow(ctx context.Context, item media.Item) error {
	what := fmt.Sprintf("adding %s", displayName(item))
	h, mt, err := e.session()
	if err != nil {
		return e.report(err, what)
	}
	if !mt.CanAdd {
		return e.report(unsupported("add", mt), what)
	}
	item = item.Clone()
	if item.ID == "" {
		return e.report(media.Wrap(media.ErrNotFound, "engine", "add", "item has no id", nil), what)
	}
	if item.MyStatus == "" {
		item.MyStatus = mt.DefaultStatus()
	} else if !mt.HasStatus(item.MyStatus) {
		return e.report(invalidStatus(item.MyStatus, mt), what)
	}
	if item.MyProgress < 0 || (item.Total > 0 && item.MyProgress > item.Total) {
		return e.report(media.Wrap(media.ErrOutOfRange, "engine", "add", "progress must be between 0 and the total", nil), what)
	}
	if item.MyScore != 0 {
		if item.MyScore, err = mt.SnapScore(item.MyScore); err != nil {
			return e.report(err, what)
		}
	}
	item.Queued, item.NewEpisodes, item.Playing = false, false, false

	if err := h.QueueAdd(ctx, item); err != nil {
		return e.report(err, what)
	}
	e.messenger.Message(LevelInfo, fmt.Sprintf("Added %s.", displayName(item)))
	e.settle(ctx)
	return nil
}

// SetEpisode sets the progress of id to n and applies the automatic status
// and date rules.
func (e *Engine) SetEpisode(ctx context.Context, id media.ID, n int) (media.Item, error) {
	item, err := e.setEpisode(ctx, id, n)
	if err != nil {
		return item, e.report(err, fmt.Sprintf("setting episode %d of %s", n, id))
	}
	e.settle(ctx)
	return item, nil
}

func (e *Engine) setEpisode(ctx context.Context, id media.ID, n int) (media.Item, error) {
	h, mt, err := e.session()
	if err != nil {
		return media.Item{}, err
	}
	if !mt.CanUpdate || !mt.HasProgress {
		return media.Item{}, unsupported("progress", mt)
	}
	if n < 0 {
		return media.Item{}, media.Wrap(media.ErrOutOfRange, "engine", "episode", "progress cannot be negative", nil)
	}
	return h.Mutate(ctx, id, func(cur media.Item) (media.PendingChange, []signals.Name, error) {
		if cur.Total > 0 && n > cur.Total {
			return media.PendingChange{}, nil, media.Wrap(media.ErrOutOfRange, "engine", "episode",
				fmt.Sprintf("episode %d is past the total of %d", n, cur.Total), nil)
		}
		if n == cur.MyProgress {
			return media.PendingChange{}, nil, media.Wrap(media.ErrNoChange, "engine", "episode", "progress is already at that episode", nil)
		}
		change := media.PendingChange{}.SetProgress(n)
		names := []signals.Name{signals.EpisodeChanged}
		if st, ok := e.autoStatus(mt, cur, n); ok {
			change = e.autoDates(mt, cur, st, change.SetStatus(st))
			names = append(names, signals.StatusChanged)
		}
		return change, names, nil
	})
}

// SetScore sets the score of id, snapped to the mediatype's step. A first
// non-zero score on a finished item applies the finish status when statuses
// follow scoring.
func (e *Engine) SetScore(ctx context.Context, id media.ID, score float64) (media.Item, error) {
	what := fmt.Sprintf("scoring %s", id)
	h, mt, err := e.session()
	if err != nil {
		return media.Item{}, e.report(err, what)
	}
	if !mt.CanScore {
		return media.Item{}, e.report(unsupported("score", mt), what)
	}
	snapped, err := mt.SnapScore(score)
	if err != nil {
		return media.Item{}, e.report(err, what)
	}
	item, err := h.Mutate(ctx, id, func(cur media.Item) (media.PendingChange, []signals.Name, error) {
		if snapped == cur.MyScore {
			return media.PendingChange{}, nil, media.Wrap(media.ErrNoChange, "engine", "score", "score is unchanged", nil)
		}
		change := media.PendingChange{}.SetScore(snapped)
		names := []signals.Name{signals.ScoreChanged}
		if cur.MyScore == 0 && snapped > 0 && e.cfg.AutoStatusChange && e.cfg.AutoStatusChangeIfScored && mt.CanStatus &&
			cur.Total > 0 && cur.MyProgress == cur.Total && len(mt.StatusesFinish) > 0 && !mt.IsFinishStatus(cur.MyStatus) {
			st := mt.StatusesFinish[0]
			change = e.autoDates(mt, cur, st, change.SetStatus(st))
			names = append(names, signals.StatusChanged)
		}
		return change, names, nil
	})
	if err != nil {
		return item, e.report(err, what)
	}
	e.settle(ctx)
	return item, nil
}

// SetStatus changes the status of id. Entering a finish status with
// automatic status changes enabled also completes the progress.
func (e *Engine) SetStatus(ctx context.Context, id media.ID, st media.Status) (media.Item, error) {
	what := fmt.Sprintf("changing the status of %s", id)
	h, mt, err := e.session()
	if err != nil {
		return media.Item{}, e.report(err, what)
	}
	if !mt.CanStatus {
		return media.Item{}, e.report(unsupported("status", mt), what)
	}
	if !mt.HasStatus(st) {
		return media.Item{}, e.report(invalidStatus(st, mt), what)
	}
	item, err := h.Mutate(ctx, id, func(cur media.Item) (media.PendingChange, []signals.Name, error) {
		if st == cur.MyStatus {
			return media.PendingChange{}, nil, media.Wrap(media.ErrNoChange, "engine", "status", "status is unchanged", nil)
		}
		change := e.autoDates(mt, cur, st, media.PendingChange{}.SetStatus(st))
		names := []signals.Name{signals.StatusChanged}
		if e.cfg.AutoStatusChange && mt.HasProgress && mt.IsFinishStatus(st) && cur.Total > 0 && cur.MyProgress != cur.Total {
			change = change.SetProgress(cur.Total)
			names = append(names, signals.EpisodeChanged)
		}
		return change, names, nil
	})
	if err != nil {
		return item, e.report(err, what)
	}
	e.settle(ctx)
	return item, nil
}

// DeleteShow removes id from the list and queues its removal.
func (e *Engine) DeleteShow(ctx context.Context, id media.ID) error {
	what := fmt.Sprintf("deleting %s", id)
	h, mt, err := e.session()
	if err != nil {
		return e.report(err, what)
	}
	if !mt.CanDelete {
		return e.report(unsupported("delete", mt), what)
	}
	if err := h.QueueDelete(ctx, id); err != nil {
		return e.report(err, what)
	}
	e.settle(ctx)
	return nil
}

// Search asks the site for titles matching criteria.
func (e *Engine) Search(ctx context.Context, criteria string, method site.SearchMethod) ([]media.Item, error) {
	what := fmt.Sprintf("searching for %q", criteria)
	h, _, err := e.session()
	if err != nil {
		return nil, e.report(err, what)
	}
	if method == "" {
		method = site.SearchKeyword
	}
	items, err := h.Search(ctx, criteria, method)
	if err != nil {
		return nil, e.report(err, what)
	}
	return items, nil
}

// ListDownload replaces the list with the site's, keeping queued changes.
func (e *Engine) ListDownload(ctx context.Context) error {
	h, _, err := e.session()
	if err != nil {
		return e.report(err, "downloading the list")
	}
	if err := h.Download(ctx); err != nil {
		return e.report(err, "downloading the list")
	}
	e.messenger.Message(LevelInfo, fmt.Sprintf("List downloaded (%d items).", len(h.Get())))
	e.settle(ctx)
	return nil
}

// ListUpload sends the queue. Entries that fail with a transport error stay
// queued and the first such error is returned.
func (e *Engine) ListUpload(ctx context.Context) (int, error) {
	h, _, err := e.session()
	if err != nil {
		return 0, e.report(err, "sending queued changes")
	}
	res, err := h.ProcessQueue(ctx)
	e.settle(ctx)
	if res.Sent > 0 {
		e.messenger.Message(LevelInfo, fmt.Sprintf("Sent %d queued changes.", res.Sent))
		e.notify(notifications.EventQueueSent, notifications.Payload{"count": res.Sent, "site": h.Client().Info().Name})
	}
	if res.Dropped > 0 {
		e.messenger.Message(LevelWarn, fmt.Sprintf("Dropped %d changes the site rejected.", res.Dropped))
	}
	if err != nil {
		return res.Sent, e.report(err, fmt.Sprintf("sending queued changes (%d left)", res.Remaining))
	}
	return res.Sent, nil
}

// UndoAll drops every queued change and, when the site is reachable,
// refetches so the list shows the remote values again.
func (e *Engine) UndoAll(ctx context.Context) (int, error) {
	h, _, err := e.session()
	if err != nil {
		return 0, e.report(err, "clearing the queue")
	}
	dropped, err := h.QueueClear(ctx)
	if err != nil {
		return 0, e.report(err, "clearing the queue")
	}
	if dropped > 0 {
		if err := h.Download(ctx); err != nil {
			e.messenger.Message(LevelWarn, media.UserMessage(err, "restoring remote values; local values stay until the next download"))
		}
	}
	e.messenger.Message(LevelInfo, fmt.Sprintf("Cleared %d queued changes.", dropped))
	e.settle(ctx)
	return dropped, nil
}

// Altname returns the alternate title used to match files of id.
func (e *Engine) Altname(id media.ID) (string, error) {
	h, _, err := e.session()
	if err != nil {
		return "", e.report(err, "reading the alternate title")
	}
	return h.AltnameGet(id), nil
}

// SetAltname stores name as the alternate title of id; an empty name
// clears it.
func (e *Engine) SetAltname(ctx context.Context, id media.ID, name string) error {
	what := fmt.Sprintf("setting the alternate title of %s", id)
	h, _, err := e.session()
	if err != nil {
		return e.report(err, what)
	}
	if _, ok := h.Item(id); !ok {
		return e.report(media.Wrap(media.ErrNotFound, "engine", "altname", fmt.Sprintf("%s is not on the list", id), nil), what)
	}
	if err := h.AltnameSet(id, name); err != nil {
		return e.report(err, what)
	}
	e.logger.Info("alternate title set", logging.String(logging.FieldItemID, id.String()), logging.String("altname", name))
	e.settle(ctx)
	return nil
}

func unsupported(op string, mt media.Mediatype) error {
	return media.Wrap(media.ErrUnsupported, "engine", op, fmt.Sprintf("mediatype %s does not allow it", mt.Name), nil)
}

func invalidStatus(st media.Status, mt media.Mediatype) error {
	return media.Wrap(media.ErrInvalidStatus, "engine", "status", fmt.Sprintf("%q is not a %s status", st, mt.Name), nil)
}

func displayName(item media.Item) string {
	if item.Title != "" {
		return item.Title
	}
	return item.ID.String()
}
