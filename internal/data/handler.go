package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"tracklist/internal/config"
	"tracklist/internal/infocache"
	"tracklist/internal/logging"
	"tracklist/internal/media"
	"tracklist/internal/signals"
	"tracklist/internal/site"
	"tracklist/internal/store"
)

// DefaultVersion is stamped into meta files when no version is supplied.
const DefaultVersion = "1.0.0"

const defaultAutosendTick = time.Hour

// Handler serves typed list operations for one (account, mediatype) pair.
type Handler struct {
	cfg       *config.Config
	account   media.Account
	mediatype media.Mediatype
	client    site.Client
	bus       *signals.Bus
	logger    *slog.Logger
	paths     store.Paths

	now          func() time.Time
	version      string
	autosendTick time.Duration

	listFile  *store.ListFile
	queueFile *store.QueueFile
	metaFile  *store.MetaFile
	lock      *store.Lock
	cache     *infocache.Cache

	mu      sync.Mutex
	list    map[media.ID]media.Item
	queue   []media.QueueEntry
	meta    media.Meta
	neweps  map[media.ID]bool
	playing media.ID
	started bool
	closed  bool
	issues  []StartIssue

	// inflight is the key of the entry a drain is currently sending.
	inflight string

	// sendMu serialises drains so two passes never send the same entry.
	sendMu sync.Mutex
	kick   chan struct{}
}

// Option configures optional Handler behaviour.
type Option func(*Handler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithVersion sets the client version recorded in meta.
func WithVersion(version string) Option {
	return func(h *Handler) { h.version = version }
}

// WithAutosendTick sets how often the hours policy re-checks lastsend.
func WithAutosendTick(d time.Duration) Option {
	return func(h *Handler) { h.autosendTick = d }
}

// New binds a handler to its files. Nothing is read until Start.
func New(cfg *config.Config, account media.Account, mt media.Mediatype, client site.Client, bus *signals.Bus, logger *slog.Logger, opts ...Option) *Handler {
	if bus == nil {
		bus = signals.NewBus()
	}
	paths := store.NewPaths(cfg.DataDir, account, mt.Name)
	h := &Handler{
		cfg:          cfg,
		account:      account,
		mediatype:    mt,
		client:       client,
		bus:          bus,
		logger:       logging.NewComponentLogger(logger, "data").With(logging.String(logging.FieldMediatype, mt.Name)),
		paths:        paths,
		now:          time.Now,
		version:      DefaultVersion,
		autosendTick: defaultAutosendTick,
		listFile:     store.NewListFile(paths.List),
		queueFile:    store.NewQueueFile(paths.Queue),
		lock:         store.NewLock(paths.Lock),
		list:         map[media.ID]media.Item{},
		neweps:       map[media.ID]bool{},
		kick:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.autosendTick <= 0 {
		h.autosendTick = defaultAutosendTick
	}
	h.metaFile = store.NewMetaFile(paths.Meta, h.version)
	return h
}

// Paths returns the files owned by the handler.
func (h *Handler) Paths() store.Paths { return h.paths }

// Mediatype returns the bound mediatype.
func (h *Handler) Mediatype() media.Mediatype { return h.mediatype }

// Client returns the site client.
func (h *Handler) Client() site.Client { return h.client }

// Start acquires the lock, loads persisted state and decides whether the
// stored list is fresh enough to use. When it is not, queued changes are
// sent first, then the list is fetched again.
func (h *Handler) Start(ctx context.Context) (err error) {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	if err := h.lock.Acquire(h.cfg.DebugDisableLock); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			h.mu.Lock()
			h.started = false
			h.mu.Unlock()
			_ = h.releaseResources()
		}
	}()

	meta, _, err := h.metaFile.Load()
	if err != nil {
		return err
	}
	queue, _, err := h.queueFile.Load()
	if err != nil {
		return media.Wrap(media.ErrFatal, "data", "start", "queue file is unreadable", err)
	}
	list, listExists, listErr := h.listFile.Load()
	if listErr != nil {
		h.logger.Warn("stored list unreadable; a fresh copy will be fetched",
			logging.Error(listErr),
			logging.String(logging.FieldEventType, "list_load_failed"),
			logging.String(logging.FieldErrorHint, "the list file will be replaced after the next fetch"),
		)
		listExists = false
	}
	cache, err := infocache.Open(ctx, h.paths.Info)
	if err != nil {
		return media.Wrap(media.ErrFatal, "data", "start", "info cache unavailable", err)
	}

	h.mu.Lock()
	h.meta = meta
	h.queue = queue
	h.cache = cache
	h.issues = nil
	if listExists {
		h.list = list
	}
	h.started = true
	h.mu.Unlock()

	fresh := listExists && h.isFresh(meta)
	h.logger.Info("data handler starting",
		logging.String(logging.FieldAccount, h.account.DirName()),
		logging.Int(logging.FieldQueueLength, len(queue)),
		logging.Int("items", len(list)),
		logging.Bool("list_fresh", fresh),
		logging.String(logging.FieldEventType, "data_start"),
	)
	if fresh {
		return nil
	}

	if len(queue) > 0 {
		if _, err := h.ProcessQueue(ctx); err != nil {
			h.logger.Info("startup send incomplete", logging.Error(err), logging.String(logging.FieldEventType, "startup_send"))
			h.addIssue("sending queued changes; they stay queued", err)
		}
	}
	if err := h.Download(ctx); err != nil {
		if errors.Is(err, media.ErrAuthFailed) {
			return err
		}
		if listExists {
			logging.WarnWithContext(h.logger, "list fetch failed; using stored list", "startup_fetch_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check network access, then retrieve again"),
				logging.String(logging.FieldImpact, "list may be out of date"),
			)
			h.addIssue("retrieving the list; using the stored copy", err)
			return nil
		}
		return media.Wrap(media.ErrFatal, "data", "start", "no stored list and the fetch failed", err)
	}
	return nil
}

// StartIssue is a startup step that failed without stopping Start.
type StartIssue struct {
	Step string
	Err  error
}

func (h *Handler) addIssue(step string, err error) {
	h.mu.Lock()
	h.issues = append(h.issues, StartIssue{Step: step, Err: err})
	h.mu.Unlock()
}

// StartIssues returns the steps of the last Start that fell back instead of
// failing, in the order they happened.
func (h *Handler) StartIssues() []StartIssue {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.issues)
}

func (h *Handler) isFresh(meta media.Meta) bool {
	if meta.Version != h.version {
		return false
	}
	switch h.cfg.Autoretrieve {
	case config.AutoretrieveAlways:
		return false
	case config.AutoretrieveDays:
		days := time.Duration(h.cfg.AutoretrieveDays) * 24 * time.Hour
		return h.now().Sub(meta.LastGet) < days
	default:
		return true
	}
}

// Close runs the exit send when configured, persists meta and releases the
// lock. Further operations fail with ErrUnloaded.
func (h *Handler) Close(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	started := h.started
	pending := len(h.queue)
	h.mu.Unlock()

	var errs []error
	if started && h.cfg.AutosendAtExit && pending > 0 {
		if _, err := h.ProcessQueue(ctx); err != nil {
			errs = append(errs, fmt.Errorf("exit send: %w", err))
		}
	}

	h.mu.Lock()
	h.closed = true
	if started {
		if err := h.metaFile.Save(h.meta); err != nil {
			errs = append(errs, fmt.Errorf("save meta: %w", err))
		}
	}
	h.mu.Unlock()

	if h.client != nil {
		if err := h.client.Logout(ctx); err != nil {
			h.logger.Debug("logout failed", logging.Error(err))
		}
	}
	if err := h.releaseResources(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (h *Handler) releaseResources() error {
	var errs []error
	h.mu.Lock()
	cache := h.cache
	h.cache = nil
	h.mu.Unlock()
	if cache != nil {
		if err := cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close info cache: %w", err))
		}
	}
	if err := h.lock.Release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// checkLocked reports ErrUnloaded once the handler is closed or before it
// started. Callers hold h.mu.
func (h *Handler) checkLocked() error {
	if h.closed || !h.started {
		return media.Wrap(media.ErrUnloaded, "data", "", "list is not loaded", nil)
	}
	return nil
}

// Get returns a copy of the list with transient flags filled in.
func (h *Handler) Get() map[media.ID]media.Item {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[media.ID]media.Item, len(h.list))
	for id, it := range h.list {
		out[id] = h.decorateLocked(it)
	}
	return out
}

// Item returns one item with its transient flags.
func (h *Handler) Item(id media.ID) (media.Item, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	it, ok := h.list[id]
	if !ok {
		return media.Item{}, false
	}
	return h.decorateLocked(it), true
}

func (h *Handler) decorateLocked(it media.Item) media.Item {
	out := it.Clone()
	out.Queued = h.queuedLocked(it.ID)
	out.NewEpisodes = h.neweps[it.ID]
	out.Playing = h.playing != "" && h.playing == it.ID
	return out
}

func (h *Handler) queuedLocked(id media.ID) bool {
	for _, e := range h.queue {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Queue returns a copy of the pending entries in order.
func (h *Handler) Queue() []media.QueueEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]media.QueueEntry, len(h.queue))
	for i, e := range h.queue {
		out[i] = e.Clone()
	}
	return out
}

// Meta returns a copy of the meta record.
func (h *Handler) Meta() media.Meta {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.meta.Clone()
}

// SetNewEpisodes replaces the set of items a local scan found new files for.
func (h *Handler) SetNewEpisodes(ids []media.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.neweps = make(map[media.ID]bool, len(ids))
	for _, id := range ids {
		h.neweps[id] = true
	}
}

// SetPlaying records which item the tracker sees playing; an empty id
// clears it.
func (h *Handler) SetPlaying(id media.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = id
}

// Publish forwards events to the bus in order, for callers that hold no
// state of their own.
func (h *Handler) Publish(events ...signals.Event) {
	h.bus.Publish(events...)
}
