package data

import (
	"context"
	"fmt"

	"tracklist/internal/infocache"
	"tracklist/internal/logging"
	"tracklist/internal/media"
	"tracklist/internal/signals"
	"tracklist/internal/site"
)

// Download replaces the list with a fresh snapshot from the site. Queued
// changes are applied on top of the snapshot so every queued id keeps its
// local values until the queue is sent.
func (h *Handler) Download(ctx context.Context) error {
	h.mu.Lock()
	if err := h.checkLocked(); err != nil {
		h.mu.Unlock()
		return err
	}
	cache := h.cache
	h.mu.Unlock()

	if err := h.client.CheckCredentials(ctx); err != nil {
		return err
	}
	fetched, err := h.client.FetchList(ctx)
	if err != nil {
		return err
	}
	if h.client.Info().Merge {
		h.enrich(ctx, cache, fetched)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkLocked(); err != nil {
		return err
	}
	list := make(map[media.ID]media.Item, len(fetched))
	for id, it := range fetched {
		if it.ID == "" {
			it.ID = id
		}
		list[id] = it
	}
	for _, entry := range h.queue {
		switch entry.Action {
		case media.ActionDelete:
			delete(list, entry.ID)
		default:
			it, ok := list[entry.ID]
			if !ok {
				// A queued add the site has not seen yet; keep the local row.
				local, had := h.list[entry.ID]
				if !had {
					local = media.Item{ID: entry.ID, Title: entry.Title}
				}
				it = local.Clone()
			}
			entry.Changes.Apply(&it)
			list[entry.ID] = it
		}
	}

	if err := h.listFile.Save(list); err != nil {
		return fmt.Errorf("persist list: %w", err)
	}
	h.list = list
	h.meta.LastGet = h.now().UTC()
	h.meta.Version = h.version
	if err := h.metaFile.Save(h.meta); err != nil {
		return fmt.Errorf("persist meta: %w", err)
	}
	h.logger.Info("list retrieved",
		logging.Int("items", len(list)),
		logging.Int(logging.FieldQueueLength, len(h.queue)),
		logging.String(logging.FieldEventType, "list_retrieved"),
	)
	h.bus.Publish(signals.Event{Name: signals.ListChanged})
	return nil
}

// enrich fills sparse items from the info cache and then from one batched
// RequestInfo call. Failures leave items sparse.
func (h *Handler) enrich(ctx context.Context, cache *infocache.Cache, list map[media.ID]media.Item) {
	var missing []media.ID
	for _, id := range media.SortedIDs(list) {
		if list[id].NeedsInfo() {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return
	}
	if cache != nil {
		cached, err := cache.GetMany(ctx, missing)
		if err != nil {
			h.logger.Debug("info cache read failed", logging.Error(err))
		}
		still := missing[:0]
		for _, id := range missing {
			it := list[id]
			if info, ok := cached[id]; ok {
				it.MergeInfo(info)
				list[id] = it
			}
			if it.NeedsInfo() {
				still = append(still, id)
			}
		}
		missing = still
	}
	if len(missing) == 0 {
		return
	}

	request := make([]media.Item, 0, len(missing))
	for _, id := range missing {
		request = append(request, list[id].Clone())
	}
	infos, err := h.client.RequestInfo(ctx, request)
	if err != nil {
		logging.WarnWithContext(h.logger, "item details unavailable", "info_request_failed",
			logging.Int("items", len(request)),
			logging.String("kind", string(media.KindOf(err))),
			logging.String(logging.FieldErrorHint, "details are requested again on the next retrieve"),
			logging.String(logging.FieldImpact, "some titles or images are missing"),
		)
		return
	}
	for _, info := range infos {
		if it, ok := list[info.ID]; ok {
			it.MergeInfo(info)
			list[info.ID] = it
		}
	}
	if cache != nil {
		if err := cache.Put(ctx, infos...); err != nil {
			h.logger.Debug("info cache write failed", logging.Error(err))
		}
	}
}

// InfoGet returns detailed info for item, from the cache when possible.
func (h *Handler) InfoGet(ctx context.Context, item media.Item) (media.Item, error) {
	h.mu.Lock()
	if err := h.checkLocked(); err != nil {
		h.mu.Unlock()
		return media.Item{}, err
	}
	cache := h.cache
	h.mu.Unlock()

	if cache != nil {
		if info, ok, err := cache.Get(ctx, item.ID); err == nil && ok && !info.NeedsInfo() {
			return info, nil
		}
	}
	if !item.NeedsInfo() && !h.client.Info().Merge {
		return item.Info(), nil
	}
	infos, err := h.client.RequestInfo(ctx, []media.Item{item})
	if err != nil {
		return media.Item{}, err
	}
	for _, info := range infos {
		if info.ID == item.ID {
			if cache != nil {
				_ = cache.Put(ctx, info)
			}
			return info, nil
		}
	}
	return media.Item{}, media.Wrap(media.ErrNotFound, "data", "info", fmt.Sprintf("no details for %s", item.ID), nil)
}

// InfoUpdate requests fresh details for items and merges them into the list.
func (h *Handler) InfoUpdate(ctx context.Context, items []media.Item) error {
	if len(items) == 0 {
		return nil
	}
	infos, err := h.client.RequestInfo(ctx, items)
	if err != nil {
		return err
	}
	return h.ApplyInfo(ctx, infos)
}

// ApplyInfo merges remote-sourced details into the list and the cache and
// announces them with show_info_changed.
func (h *Handler) ApplyInfo(ctx context.Context, infos []media.Item) error {
	if len(infos) == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkLocked(); err != nil {
		return err
	}
	if h.cache != nil {
		if err := h.cache.Put(ctx, infos...); err != nil {
			h.logger.Debug("info cache write failed", logging.Error(err))
		}
	}
	list := cloneList(h.list)
	var changed []media.Item
	for _, info := range infos {
		it, ok := list[info.ID]
		if !ok {
			continue
		}
		it = it.Clone()
		it.MergeInfo(info)
		list[info.ID] = it
		changed = append(changed, h.decorateLocked(it))
	}
	if len(changed) == 0 {
		return nil
	}
	if err := h.listFile.Save(list); err != nil {
		return fmt.Errorf("persist list: %w", err)
	}
	h.list = list
	h.bus.Publish(signals.Event{Name: signals.ShowInfoChanged, Items: changed})
	return nil
}

// Search forwards a remote lookup.
func (h *Handler) Search(ctx context.Context, criteria string, method site.SearchMethod) ([]media.Item, error) {
	h.mu.Lock()
	err := h.checkLocked()
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return h.client.Search(ctx, criteria, method)
}

// AltnameGet returns the alternate title recorded for id.
func (h *Handler) AltnameGet(id media.ID) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.meta.AltNames[id]
}

// AltNames returns a copy of every alternate title.
func (h *Handler) AltNames() map[media.ID]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.meta.Clone().AltNames
}

// AltnameSet records an alternate title used by the tracker and by local
// file searches. An empty name clears it.
func (h *Handler) AltnameSet(id media.ID, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkLocked(); err != nil {
		return err
	}
	meta := h.meta.Clone()
	if meta.AltNames == nil {
		meta.AltNames = map[media.ID]string{}
	}
	if name == "" {
		delete(meta.AltNames, id)
	} else {
		meta.AltNames[id] = name
	}
	if err := h.metaFile.Save(meta); err != nil {
		return fmt.Errorf("persist meta: %w", err)
	}
	h.meta = meta
	return nil
}

// AltnameClear removes the alternate title of id.
func (h *Handler) AltnameClear(id media.ID) error {
	return h.AltnameSet(id, "")
}
