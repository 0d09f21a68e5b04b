package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tracklist/internal/config"
	"tracklist/internal/data"
	"tracklist/internal/logging"
	"tracklist/internal/media"
	"tracklist/internal/notifications"
	"tracklist/internal/signals"
	"tracklist/internal/site"
	"tracklist/internal/tracker"
)

// Options carries the collaborators an Engine may be given instead of the
// defaults built from the configuration.
type Options struct {
	// Client replaces the binding registered for the account's site.
	Client site.Client
	// Source replaces the tracker backend selected by tracker_type.
	Source tracker.Source
	Parser tracker.Parser
	// Launcher starts the player; the default runs the configured player
	// without waiting for it.
	Launcher  Launcher
	Messenger Messenger
	Notifier  notifications.Service
	Logger    *slog.Logger
	Now       func() time.Time
	// DataOptions are passed to every data handler the engine builds.
	DataOptions []data.Option
}

type lifecycle int

const (
	stateNew lifecycle = iota
	stateRunning
	stateUnloaded
)

// Engine is one session for an account and mediatype.
type Engine struct {
	cfg       *config.Config
	account   media.Account
	opts      Options
	logger    *slog.Logger
	bus       *signals.Bus
	messenger Messenger
	notifier  notifications.Service
	launcher  Launcher
	now       func() time.Time

	busCancel context.CancelFunc
	busDone   chan struct{}

	// lifeMu serializes Start, Reload and Unload; mu guards the fields
	// below and is never held across remote calls.
	lifeMu    sync.Mutex
	mu        sync.Mutex
	state     lifecycle
	mtName    string
	client    site.Client
	mediatype media.Mediatype
	data      *data.Handler
	tracker   *tracker.Tracker
	cancel    context.CancelFunc
	tasks     *errgroup.Group
}

// New prepares an engine for account. mediatype may be empty to use the
// site's default. Nothing is loaded until Start.
func New(cfg *config.Config, account media.Account, mediatype string, opts Options) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("engine requires a config")
	}
	if account.Username == "" || account.Site == "" {
		return nil, media.Wrap(media.ErrAuthFailed, "engine", "new", "account needs a username and a site", nil)
	}
	logger := logging.NewComponentLogger(opts.Logger, "engine").With(
		logging.String(logging.FieldAccount, account.DirName()),
	)
	e := &Engine{
		cfg:       cfg,
		account:   account,
		opts:      opts,
		logger:    logger,
		bus:       signals.NewBus(),
		messenger: opts.Messenger,
		notifier:  opts.Notifier,
		launcher:  opts.Launcher,
		now:       opts.Now,
		mtName:    mediatype,
	}
	if e.messenger == nil {
		e.messenger = logMessenger{logger: logger}
	}
	if e.notifier == nil {
		e.notifier = notifications.NewService(cfg)
	}
	if e.launcher == nil {
		e.launcher = startPlayer
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Subscribe registers h for one signal. Subscriptions survive Reload.
func (e *Engine) Subscribe(name signals.Name, h signals.Handler) func() {
	return e.bus.Subscribe(name, h)
}

// SubscribeAll registers h for every signal.
func (e *Engine) SubscribeAll(h signals.Handler) func() {
	return e.bus.SubscribeAll(h)
}

// Start loads the session: it takes the account lock, loads or fetches the
// list and starts the background tasks.
func (e *Engine) Start(ctx context.Context) error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()
	if state != stateNew {
		return media.Wrap(media.ErrUnloaded, "engine", "start", "engine was already started", nil)
	}

	busCtx, busCancel := context.WithCancel(context.WithoutCancel(ctx))
	e.busCancel = busCancel
	e.busDone = make(chan struct{})
	go func() {
		defer close(e.busDone)
		_ = e.bus.Run(busCtx)
	}()

	if err := e.startSession(ctx, e.mtName); err != nil {
		e.stopBus()
		e.setState(stateUnloaded)
		return err
	}
	e.settle(ctx)
	return nil
}

// Unload stops the background tasks, sends the queue once more when
// autosend_at_exit is set, saves meta and releases the lock. Every later
// operation fails with Unloaded.
func (e *Engine) Unload(ctx context.Context) error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if !e.transition(stateRunning, stateUnloaded) {
		return media.Wrap(media.ErrUnloaded, "engine", "unload", "engine is not running", nil)
	}
	err := e.stopSession(ctx)
	e.stopBus()
	e.logger.Info("engine unloaded", logging.String(logging.FieldEventType, "engine_unload"))
	return err
}

// Reload ends the current session and starts one for mediatype on the same
// account. Subscribers stay attached; operations fail with Unloaded while
// the switch is in progress.
func (e *Engine) Reload(ctx context.Context, mediatype string) error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if !e.transition(stateRunning, stateUnloaded) {
		return media.Wrap(media.ErrUnloaded, "engine", "reload", "engine is not running", nil)
	}
	if err := e.stopSession(ctx); err != nil {
		logging.WarnWithContext(e.logger, "previous session did not close cleanly", "engine_reload",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "queued changes are kept on disk and sent by the new session"),
		)
	}
	if err := e.startSession(ctx, mediatype); err != nil {
		e.stopBus()
		return err
	}
	e.settle(ctx)
	return nil
}

func (e *Engine) setState(st lifecycle) {
	e.mu.Lock()
	e.state = st
	e.mu.Unlock()
}

func (e *Engine) transition(from, to lifecycle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != from {
		return false
	}
	e.state = to
	return true
}

func (e *Engine) stopBus() {
	if e.busCancel != nil {
		e.busCancel()
		<-e.busDone
		e.busCancel = nil
	}
}

func (e *Engine) startSession(ctx context.Context, mtName string) error {
	accountDir := e.cfg.AccountDir(e.account.DirName())
	uc, err := config.LoadUserConfig(accountDir)
	if err != nil {
		logging.WarnWithContext(e.logger, "user config unreadable; starting without it", "user_config_invalid",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix or remove user.json in the account directory"),
		)
		uc = config.UserConfig{}
	}

	client := e.opts.Client
	if client == nil {
		client, err = site.New(e.account.Site, site.Params{
			Account:    e.account,
			Mediatype:  mtName,
			AccountDir: accountDir,
			UserValues: uc.Values,
			Logger:     e.opts.Logger,
		})
		if err != nil {
			return e.fatal(err, "loading the site binding")
		}
	}
	guarded := site.Guard(client, site.GuardOptions{
		Timeout:           e.cfg.SiteTimeout(),
		RequestsPerSecond: e.cfg.Site.RequestsPerSecond,
		Burst:             e.cfg.Site.Burst,
		BreakerFailures:   uint32(max(e.cfg.Site.BreakerFailures, 0)),
		BreakerCooldown:   time.Duration(e.cfg.Site.BreakerCooldownSeconds) * time.Second,
		Logger:            e.opts.Logger,
	})
	mt, err := site.ResolveMediatype(guarded, mtName)
	if err != nil {
		return e.fatal(err, "choosing the mediatype")
	}
	logger := e.logger.With(logging.String(logging.FieldMediatype, mt.Name))

	dataOpts := append([]data.Option{data.WithClock(e.now)}, e.opts.DataOptions...)
	handler := data.New(e.cfg, e.account, mt, guarded, e.bus, e.opts.Logger, dataOpts...)
	if err := handler.Start(ctx); err != nil {
		return e.fatal(err, fmt.Sprintf("loading the %s list", mt.Name))
	}
	for _, issue := range handler.StartIssues() {
		e.messenger.Message(LevelWarn, media.UserMessage(issue.Err, issue.Step))
	}

	// Saved before watchSite can rewrite user.json with new values.
	if uc.Mediatype != mt.Name {
		uc.Mediatype = mt.Name
		if err := config.SaveUserConfig(accountDir, uc); err != nil {
			logger.Debug("user config not saved", logging.Error(err))
		}
	}

	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	group, gctx := errgroup.WithContext(taskCtx)

	// Publish the session before any task can call back into the engine.
	e.mu.Lock()
	e.client = guarded
	e.mediatype = mt
	e.mtName = mt.Name
	e.data = handler
	e.cancel = cancel
	e.tasks = group
	e.state = stateRunning
	e.mu.Unlock()

	group.Go(func() error { return handler.RunAutosend(gctx) })
	if events := guarded.Events(); events != nil {
		group.Go(func() error { return e.watchSite(gctx, handler, events, accountDir) })
	}

	var tr *tracker.Tracker
	if e.cfg.TrackerEnabled && mt.CanPlay {
		tr, err = e.newTracker(handler)
		if err != nil {
			logging.WarnWithContext(logger, "tracker disabled", "tracker_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check tracker_type and the backend settings"),
				logging.String(logging.FieldImpact, "progress is not updated from playback"),
			)
		} else {
			e.mu.Lock()
			e.tracker = tr
			e.mu.Unlock()
			group.Go(func() error {
				if err := tr.Run(gctx); err != nil {
					logging.WarnWithContext(logger, "tracker stopped", "tracker_failed",
						logging.Error(err),
						logging.String(logging.FieldErrorHint, "check the tracker backend; restart to retry"),
						logging.String(logging.FieldImpact, "progress is not updated from playback"),
					)
				}
				return nil
			})
		}
	}

	logger.Info("engine started",
		logging.String("site", guarded.Info().Name),
		logging.Int("items", len(handler.Get())),
		logging.Int(logging.FieldQueueLength, len(handler.Queue())),
		logging.Bool("tracker", tr != nil),
		logging.String(logging.FieldEventType, "engine_start"),
	)
	return nil
}

func (e *Engine) stopSession(ctx context.Context) error {
	e.mu.Lock()
	cancel, tasks, handler := e.cancel, e.tasks, e.data
	e.cancel, e.tasks, e.tracker = nil, nil, nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		_ = tasks.Wait()
	}
	if handler == nil {
		return nil
	}
	err := handler.Close(ctx)
	if err != nil {
		e.report(err, "closing the session")
	}
	return err
}

// watchSite applies unsolicited binding notifications until ctx ends.
func (e *Engine) watchSite(ctx context.Context, h *data.Handler, events <-chan site.Event, accountDir string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Kind {
			case site.EventShowInfoChanged:
				if err := h.ApplyInfo(ctx, ev.Items); err != nil && ctx.Err() == nil {
					e.logger.Debug("info notification not applied", logging.Error(err))
				}
			case site.EventUserConfigChanged:
				e.saveUserValues(accountDir, ev.Values)
				h.Publish(signals.Event{Name: signals.UserConfig})
			default:
				e.logger.Debug("ignoring site event", logging.String("kind", string(ev.Kind)))
			}
		}
	}
}

func (e *Engine) saveUserValues(accountDir string, values map[string]string) {
	uc, err := config.LoadUserConfig(accountDir)
	if err != nil {
		uc = config.UserConfig{}
	}
	if uc.Values == nil {
		uc.Values = make(map[string]string, len(values))
	}
	for k, v := range values {
		uc.Values[k] = v
	}
	if err := config.SaveUserConfig(accountDir, uc); err != nil {
		logging.WarnWithContext(e.logger, "user config not saved", "user_config_save_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions of the account directory"),
		)
	}
}

// session returns the current handler and mediatype, or Unloaded.
func (e *Engine) session() (*data.Handler, media.Mediatype, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateRunning || e.data == nil {
		return nil, media.Mediatype{}, media.Wrap(media.ErrUnloaded, "engine", "", "engine is not running", nil)
	}
	return e.data, e.mediatype, nil
}

// Mediatype returns the active mediatype descriptor.
func (e *Engine) Mediatype() (media.Mediatype, error) {
	_, mt, err := e.session()
	return mt, err
}

// Account returns the account the engine was built for.
func (e *Engine) Account() media.Account { return e.account }

// SiteInfo describes the active site binding.
func (e *Engine) SiteInfo() (site.APIInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateRunning || e.client == nil {
		return site.APIInfo{}, media.Wrap(media.ErrUnloaded, "engine", "", "engine is not running", nil)
	}
	return e.client.Info(), nil
}

// Mediatypes lists what the site offers.
func (e *Engine) Mediatypes() (map[string]media.Mediatype, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateRunning || e.client == nil {
		return nil, media.Wrap(media.ErrUnloaded, "engine", "", "engine is not running", nil)
	}
	return e.client.Mediatypes(), nil
}

// TrackerStatus returns the tracker snapshot; ok is false when no tracker
// runs in this session.
func (e *Engine) TrackerStatus() (signals.TrackerStatus, bool) {
	e.mu.Lock()
	tr := e.tracker
	e.mu.Unlock()
	if tr == nil {
		return signals.TrackerStatus{}, false
	}
	return tr.Status(), true
}

// settle waits for the signals of a user-initiated operation to be
// delivered before it returns to the caller.
func (e *Engine) settle(ctx context.Context) {
	if err := e.bus.Barrier(ctx); err != nil {
		e.logger.Debug("signal delivery wait interrupted", logging.Error(err))
	}
}

// report sends err to the messenger as "Kind: context" and returns it.
// Errors above warning level also go to push notifications.
func (e *Engine) report(err error, what string) error {
	if err == nil {
		return nil
	}
	level := levelFor(media.KindOf(err))
	text := media.UserMessage(err, what)
	e.messenger.Message(level, text)
	e.logger.Debug("operation failed", logging.String("context", what), logging.Error(err))
	if level == LevelError || level == LevelFatal {
		e.notify(notifications.EventError, notifications.Payload{"context": what, "error": string(media.KindOf(err))})
	}
	return err
}

func (e *Engine) fatal(err error, what string) error {
	if !media.IsKnown(err) {
		err = media.Wrap(media.ErrFatal, "engine", "start", what, err)
	}
	e.messenger.Message(LevelFatal, media.UserMessage(err, what))
	logging.ErrorWithContext(e.logger, "engine start failed", "engine_start_failed",
		logging.String("context", what),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, startHint(err)),
	)
	e.notify(notifications.EventError, notifications.Payload{"context": what, "error": string(media.KindOf(err))})
	return err
}

func startHint(err error) string {
	switch media.KindOf(err) {
	case media.KindLocked:
		return "another tracklist process uses this account; remove the lock file if none is running"
	case media.KindAuthFailed:
		return "check the account credentials"
	default:
		return "set logging.level to debug and check `tracklist logs`"
	}
}

func (e *Engine) notify(event notifications.Event, payload notifications.Payload) {
	timeout := time.Duration(e.cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := e.notifier.Publish(ctx, event, payload); err != nil {
		e.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}
