package data

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"tracklist/internal/config"
	"tracklist/internal/logging"
	"tracklist/internal/media"
	"tracklist/internal/signals"
)

// MutateFunc inspects the current item and returns the change to apply and
// the signals announcing it, in emission order. Returning an error leaves
// all state untouched.
type MutateFunc func(current media.Item) (media.PendingChange, []signals.Name, error)

// QueueAdd stores item and queues its creation on the site.
func (h *Handler) QueueAdd(ctx context.Context, item media.Item) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkLocked(); err != nil {
		return err
	}
	if _, exists := h.list[item.ID]; exists {
		return media.Wrap(media.ErrDuplicate, "data", "add", fmt.Sprintf("%s is already on the list", item.ID), nil)
	}

	list := cloneList(h.list)
	list[item.ID] = item.Clone()
	queue := h.enqueueLocked(item.ID, item.Title, media.ActionAdd, media.UserFields(item))
	if err := h.commitLocked(list, queue); err != nil {
		return err
	}
	if h.cache != nil && !item.NeedsInfo() {
		if err := h.cache.Put(ctx, item); err != nil {
			h.logger.Debug("info cache write failed", logging.Error(err))
		}
	}
	h.logger.Info("item added", logging.String(logging.FieldItemID, item.ID.String()), logging.String("title", item.Title))
	h.bus.Publish(signals.ItemEvent(signals.ShowAdded, h.decorateLocked(list[item.ID])), signals.QueueEvent(len(queue)))
	h.kickLocked()
	return nil
}

// Mutate applies the change computed by fn to the item with id and merges it
// into the queue. fn runs under the handler mutex, so it sees the state the
// change will be applied to.
func (h *Handler) Mutate(_ context.Context, id media.ID, fn MutateFunc) (media.Item, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkLocked(); err != nil {
		return media.Item{}, err
	}
	current, ok := h.list[id]
	if !ok {
		return media.Item{}, media.Wrap(media.ErrNotFound, "data", "update", fmt.Sprintf("%s is not on the list", id), nil)
	}
	change, names, err := fn(h.decorateLocked(current))
	if err != nil {
		return media.Item{}, err
	}
	if change.IsEmpty() {
		return media.Item{}, media.Wrap(media.ErrNoChange, "data", "update", "nothing to change", nil)
	}

	updated := current.Clone()
	change.Apply(&updated)
	list := cloneList(h.list)
	list[id] = updated
	queue := h.enqueueLocked(id, updated.Title, media.ActionUpdate, change)
	if err := h.commitLocked(list, queue); err != nil {
		return media.Item{}, err
	}
	if change.Progress != nil {
		delete(h.neweps, id)
	}

	h.logger.Info("item updated",
		logging.String(logging.FieldItemID, id.String()),
		logging.Any("fields", change.Fields()),
		logging.Int(logging.FieldQueueLength, len(queue)),
	)
	decorated := h.decorateLocked(updated)
	events := make([]signals.Event, 0, len(names)+1)
	for _, name := range names {
		ev := signals.ItemEvent(name, decorated)
		ev.Episode = decorated.MyProgress
		events = append(events, ev)
	}
	events = append(events, signals.QueueEvent(len(queue)))
	h.bus.Publish(events...)
	h.kickLocked()
	return decorated, nil
}

// QueueUpdate applies a fixed change, announcing one signal per changed
// field in field order.
func (h *Handler) QueueUpdate(ctx context.Context, id media.ID, change media.PendingChange) (media.Item, error) {
	return h.Mutate(ctx, id, func(media.Item) (media.PendingChange, []signals.Name, error) {
		return change, changeSignals(change), nil
	})
}

// QueueDelete removes the item locally and queues its removal.
func (h *Handler) QueueDelete(_ context.Context, id media.ID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkLocked(); err != nil {
		return err
	}
	item, ok := h.list[id]
	if !ok {
		return media.Wrap(media.ErrNotFound, "data", "delete", fmt.Sprintf("%s is not on the list", id), nil)
	}
	list := cloneList(h.list)
	delete(list, id)
	queue := h.enqueueLocked(id, item.Title, media.ActionDelete, media.PendingChange{})
	if err := h.commitLocked(list, queue); err != nil {
		return err
	}
	delete(h.neweps, id)
	h.logger.Info("item deleted", logging.String(logging.FieldItemID, id.String()), logging.String("title", item.Title))
	h.bus.Publish(signals.ItemEvent(signals.ShowDeleted, item.Clone()), signals.QueueEvent(len(queue)))
	h.kickLocked()
	return nil
}

// QueueClear drops every pending entry without sending it. Local values
// stay as they are until the next fetch.
func (h *Handler) QueueClear(context.Context) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkLocked(); err != nil {
		return 0, err
	}
	dropped := len(h.queue)
	if dropped == 0 {
		return 0, nil
	}
	if err := h.queueFile.Save(nil); err != nil {
		return 0, fmt.Errorf("persist queue: %w", err)
	}
	h.queue = nil
	h.logger.Info("queue cleared", logging.Int("dropped", dropped))
	h.bus.Publish(signals.QueueEvent(0))
	return dropped, nil
}

// enqueueLocked returns the queue with the change merged in. There is at
// most one entry per id:
//   - update after add or update merges fields into that entry;
//   - delete after add removes the entry, unless the add is being sent;
//   - delete after update replaces the update;
//   - add after delete becomes an update carrying the re-added fields.
func (h *Handler) enqueueLocked(id media.ID, title string, action media.Action, change media.PendingChange) []media.QueueEntry {
	queue := slices.Clone(h.queue)
	idx := slices.IndexFunc(queue, func(e media.QueueEntry) bool { return e.ID == id })
	if idx < 0 {
		return append(queue, media.QueueEntry{
			Key:      uuid.NewString(),
			ID:       id,
			Title:    title,
			Action:   action,
			Changes:  change.Clone(),
			QueuedAt: h.now().UTC(),
		})
	}

	existing := queue[idx].Clone()
	existing.Revision++
	if title != "" {
		existing.Title = title
	}
	switch {
	case action == media.ActionDelete && existing.Action == media.ActionAdd && existing.Key != h.inflight:
		return slices.Delete(queue, idx, idx+1)
	case action == media.ActionDelete:
		existing.Action = media.ActionDelete
		existing.Changes = media.PendingChange{}
	case action == media.ActionAdd && existing.Action == media.ActionDelete:
		existing.Action = media.ActionUpdate
		existing.Changes = change.Clone()
	default:
		existing.Changes = existing.Changes.Merge(change)
	}
	queue[idx] = existing
	return queue
}

// commitLocked persists list then queue and installs them. On failure the
// in-memory state is left as it was.
func (h *Handler) commitLocked(list map[media.ID]media.Item, queue []media.QueueEntry) error {
	if err := h.listFile.Save(list); err != nil {
		return fmt.Errorf("persist list: %w", err)
	}
	if err := h.queueFile.Save(queue); err != nil {
		_ = h.listFile.Save(h.list)
		return fmt.Errorf("persist queue: %w", err)
	}
	h.list = list
	h.queue = queue
	return nil
}

// kickLocked wakes the autosend worker when the policy asks for a send
// after this mutation.
func (h *Handler) kickLocked() {
	switch h.cfg.Autosend {
	case config.AutosendAlways:
	case config.AutosendSize:
		if len(h.queue) < h.cfg.AutosendSize {
			return
		}
	default:
		return
	}
	select {
	case h.kick <- struct{}{}:
	default:
	}
}

func changeSignals(change media.PendingChange) []signals.Name {
	var names []signals.Name
	if change.Progress != nil {
		names = append(names, signals.EpisodeChanged)
	}
	if change.Status != nil {
		names = append(names, signals.StatusChanged)
	}
	if change.Score != nil {
		names = append(names, signals.ScoreChanged)
	}
	return names
}

func cloneList(list map[media.ID]media.Item) map[media.ID]media.Item {
	out := make(map[media.ID]media.Item, len(list))
	for id, it := range list {
		out[id] = it
	}
	return out
}
