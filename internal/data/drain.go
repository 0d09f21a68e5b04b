package data

import (
	"context"
	"errors"
	"slices"
	"time"

	"tracklist/internal/config"
	"tracklist/internal/logging"
	"tracklist/internal/media"
	"tracklist/internal/signals"
)

// DrainResult summarizes one pass over the queue.
type DrainResult struct {
	Sent      int
	Dropped   int
	Remaining int
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeKeep
	outcomeDrop
	outcomeAbort
)

// ProcessQueue attempts every queued entry in order. Acknowledged entries
// are removed, transport failures stay queued in place, unsupported or
// missing targets are dropped with a warning, and an authentication failure
// stops the pass. The returned error is the abort cause or the first
// failure that left an entry queued.
func (h *Handler) ProcessQueue(ctx context.Context) (DrainResult, error) {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	h.mu.Lock()
	if err := h.checkLocked(); err != nil {
		h.mu.Unlock()
		return DrainResult{}, err
	}
	snapshot := make([]media.QueueEntry, len(h.queue))
	for i, e := range h.queue {
		snapshot[i] = e.Clone()
	}
	h.mu.Unlock()

	var (
		result   DrainResult
		firstErr error
		changed  bool
	)
	if len(snapshot) > 0 {
		h.logger.Info("sending queued changes",
			logging.Int(logging.FieldQueueLength, len(snapshot)),
			logging.String(logging.FieldEventType, "queue_send_start"),
		)
	}

	for _, entry := range snapshot {
		if err := ctx.Err(); err != nil {
			if firstErr == nil {
				firstErr = media.Wrap(media.ErrTransport, "data", "send", "send interrupted", err)
			}
			break
		}

		h.mu.Lock()
		h.inflight = entry.Key
		h.mu.Unlock()

		err := h.sendEntry(ctx, entry)
		out := classify(entry, err)

		h.mu.Lock()
		h.inflight = ""
		switch out {
		case outcomeAck:
			if h.ackLocked(entry) {
				result.Sent++
				changed = true
			}
		case outcomeDrop:
			logging.WarnWithContext(h.logger, "queued change dropped", "queue_entry_dropped",
				logging.String(logging.FieldItemID, entry.ID.String()),
				logging.String("action", string(entry.Action)),
				logging.String("kind", string(media.KindOf(err))),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the site cannot apply this change; edit the item again if needed"),
				logging.String(logging.FieldImpact, "local value may differ from the site until the next retrieve"),
			)
			if h.removeLocked(entry.Key) {
				result.Dropped++
				changed = true
			}
		case outcomeKeep, outcomeAbort:
			if firstErr == nil {
				firstErr = err
			}
			h.logger.Info("queued change kept",
				logging.String(logging.FieldItemID, entry.ID.String()),
				logging.String("kind", string(media.KindOf(err))),
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_entry_kept"),
			)
		}
		h.mu.Unlock()

		if out == outcomeAbort {
			firstErr = err
			break
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if result.Sent > 0 || len(h.queue) == 0 {
		h.meta.LastSend = h.now().UTC()
		if err := h.metaFile.Save(h.meta); err != nil {
			h.logger.Warn("meta not saved",
				logging.Error(err),
				logging.String(logging.FieldEventType, "meta_save_failed"),
				logging.String(logging.FieldErrorHint, "check permissions on the data directory"),
			)
		}
	}
	result.Remaining = len(h.queue)
	if changed {
		h.bus.Publish(signals.QueueEvent(result.Remaining))
	}
	if len(snapshot) > 0 {
		h.logger.Info("queue send finished",
			logging.Int("sent", result.Sent),
			logging.Int("dropped", result.Dropped),
			logging.Int(logging.FieldQueueLength, result.Remaining),
			logging.String(logging.FieldEventType, "queue_send_finish"),
		)
	}
	return result, firstErr
}

func (h *Handler) sendEntry(ctx context.Context, entry media.QueueEntry) error {
	target := media.Item{ID: entry.ID, Title: entry.Title}
	switch entry.Action {
	case media.ActionAdd:
		err := h.client.Add(ctx, entry.Payload())
		if errors.Is(err, media.ErrDuplicate) {
			// A retried add whose first attempt reached the site.
			return h.client.Update(ctx, target, entry.Changes)
		}
		return err
	case media.ActionUpdate:
		return h.client.Update(ctx, target, entry.Changes)
	case media.ActionDelete:
		return h.client.Delete(ctx, target)
	default:
		return media.Wrap(media.ErrUnsupported, "data", "send", "unknown queue action "+string(entry.Action), nil)
	}
}

func classify(entry media.QueueEntry, err error) outcome {
	switch {
	case err == nil:
		return outcomeAck
	case errors.Is(err, media.ErrAuthFailed):
		return outcomeAbort
	case errors.Is(err, media.ErrNotFound):
		if entry.Action == media.ActionDelete {
			return outcomeAck
		}
		return outcomeDrop
	case errors.Is(err, media.ErrUnsupported),
		errors.Is(err, media.ErrOutOfRange),
		errors.Is(err, media.ErrInvalidStatus):
		return outcomeDrop
	default:
		return outcomeKeep
	}
}

// ackLocked commits a successful send. An entry that gained changes while
// it was being sent stays queued; a sent add becomes an update of the
// merged fields.
func (h *Handler) ackLocked(sent media.QueueEntry) bool {
	idx := slices.IndexFunc(h.queue, func(e media.QueueEntry) bool { return e.Key == sent.Key })
	if idx < 0 {
		return false
	}
	current := h.queue[idx]
	if current.Revision != sent.Revision {
		if sent.Action == media.ActionAdd && current.Action == media.ActionAdd {
			queue := slices.Clone(h.queue)
			queue[idx].Action = media.ActionUpdate
			h.persistQueueLocked(queue)
		}
		return false
	}
	if !h.removeLocked(sent.Key) {
		return false
	}
	synced := media.Item{ID: sent.ID, Title: sent.Title}
	if it, ok := h.list[sent.ID]; ok {
		synced = h.decorateLocked(it)
	}
	h.bus.Publish(signals.ItemEvent(signals.ShowSynced, synced))
	return true
}

func (h *Handler) removeLocked(key string) bool {
	idx := slices.IndexFunc(h.queue, func(e media.QueueEntry) bool { return e.Key == key })
	if idx < 0 {
		return false
	}
	queue := slices.Delete(slices.Clone(h.queue), idx, idx+1)
	return h.persistQueueLocked(queue)
}

func (h *Handler) persistQueueLocked(queue []media.QueueEntry) bool {
	if err := h.queueFile.Save(queue); err != nil {
		logging.ErrorWithContext(h.logger, "queue not saved", "queue_save_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the data directory"),
			logging.String(logging.FieldImpact, "sent changes may be sent again"),
		)
		return false
	}
	h.queue = queue
	return true
}

// RunAutosend drains the queue whenever the autosend policy asks for it
// until ctx is cancelled. Under the hours policy it wakes on every tick and
// sends once lastsend is older than the configured hours; under always and
// size it sends when a mutation kicks it. The policy is read once.
func (h *Handler) RunAutosend(ctx context.Context) error {
	policy := h.cfg.Autosend
	if policy == config.AutosendOff || policy == "" {
		return nil
	}
	var tick <-chan time.Time
	if policy == config.AutosendHours {
		ticker := time.NewTicker(h.autosendTick)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.kick:
			h.autosend(ctx)
		case <-tick:
			h.mu.Lock()
			due := len(h.queue) > 0 && h.now().Sub(h.meta.LastSend) >= time.Duration(h.cfg.AutosendHours)*time.Hour
			h.mu.Unlock()
			if due {
				h.autosend(ctx)
			}
		}
	}
}

func (h *Handler) autosend(ctx context.Context) {
	res, err := h.ProcessQueue(ctx)
	if err != nil && ctx.Err() == nil {
		logging.WarnWithContext(h.logger, "automatic send incomplete", "autosend_failed",
			logging.Int(logging.FieldQueueLength, res.Remaining),
			logging.String("kind", string(media.KindOf(err))),
			logging.String(logging.FieldErrorHint, "changes stay queued and are retried on the next send"),
		)
	}
}
