package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tracklist/internal/logging"
	"tracklist/internal/media"
	"tracklist/internal/signals"
	"tracklist/internal/textutil"
)

// State is the tracker state machine position.
type State string

const (
	StateNoVideo      State = "novideo"
	StateUnrecognized State = "unrecognized"
	StateRecognized   State = "recognized"
	StateUpdated      State = "updated"
)

// List gives the tracker read access to the current list.
type List interface {
	Get() map[media.ID]media.Item
	AltNames() map[media.ID]string
}

// Parser splits a filename into a title guess and episode numbers.
type Parser func(filename string) (textutil.ParsedName, bool)

// Options wires a Tracker to its collaborators.
type Options struct {
	Source Source
	List   List
	Parser Parser
	// Update advances the item to episode. It is the engine's set-episode.
	Update func(ctx context.Context, id media.ID, episode int) error
	// Playing is told when a recognized file starts or stops playing.
	Playing func(item media.Item, playing bool, episode int)
	// StateChanged receives a snapshot after every transition and tick.
	StateChanged func(signals.TrackerStatus)

	UpdateWait time.Duration
	// Interval is how often dwell is re-evaluated between backend events.
	Interval time.Duration
	Logger   *slog.Logger
	Now      func() time.Time
}

// Tracker turns playback snapshots into progress updates.
type Tracker struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	current  Playback
	parsed   textutil.ParsedName
	item     media.Item
	dwell    time.Duration
	lastTick time.Time
	warned   bool
}

// New builds a tracker; Run starts it.
func New(opts Options) *Tracker {
	if opts.Parser == nil {
		opts.Parser = textutil.ParseFilename
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	return &Tracker{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "tracker"),
		state:  StateNoVideo,
	}
}

// Run consumes the source until ctx is cancelled or the source closes.
func (t *Tracker) Run(ctx context.Context) error {
	events, err := t.opts.Source.Watch(ctx)
	if err != nil {
		return err
	}
	t.logger.Info("tracker started",
		logging.String("source", t.opts.Source.Name()),
		logging.Duration("update_wait", t.opts.UpdateWait),
		logging.String(logging.FieldEventType, "tracker_start"),
	)
	ticker := time.NewTicker(t.opts.Interval)
	defer ticker.Stop()
	defer func() {
		t.handle(context.WithoutCancel(ctx), Playback{State: StateStopped})
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case pb, ok := <-events:
			if !ok {
				return nil
			}
			t.handle(ctx, pb)
		case <-ticker.C:
			t.evaluate(ctx)
		}
	}
}

// Status returns a snapshot of the state machine.
func (t *Tracker) Status() signals.TrackerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusLocked()
}

func (t *Tracker) statusLocked() signals.TrackerStatus {
	st := signals.TrackerStatus{
		State:    string(t.state),
		Filename: t.current.Filename,
		Dwell:    t.dwell,
		Wait:     t.opts.UpdateWait,
	}
	if t.state == StateRecognized || t.state == StateUpdated {
		st.ItemID = t.item.ID
		st.Title = t.item.Title
		st.Episode = t.targetEpisode()
	}
	return st
}

func (t *Tracker) handle(ctx context.Context, pb Playback) {
	now := t.opts.Now()
	t.mu.Lock()
	t.advanceLocked(now)

	var notify []func()
	if !pb.Active() {
		if t.state != StateNoVideo {
			notify = append(notify, t.resetLocked()...)
		}
	} else if pb.Filename != t.current.Filename || pb.Path != t.current.Path {
		if t.state != StateNoVideo {
			notify = append(notify, t.resetLocked()...)
		}
		notify = append(notify, t.openLocked(pb, now)...)
	} else {
		t.current.State = pb.State
	}
	status := t.statusLocked()
	t.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
	t.publish(status)
	t.evaluate(ctx)
}

// advanceLocked adds the time since the last tick to the dwell while a
// recognized file is playing.
func (t *Tracker) advanceLocked(now time.Time) {
	if t.state == StateRecognized && t.current.State == StatePlaying && !t.lastTick.IsZero() {
		if d := now.Sub(t.lastTick); d > 0 {
			t.dwell += d
		}
	}
	t.lastTick = now
}

func (t *Tracker) openLocked(pb Playback, now time.Time) []func() {
	t.current = pb
	t.lastTick = now
	t.dwell = 0
	t.warned = false

	parsed, ok := t.opts.Parser(pb.Filename)
	if !ok || parsed.Title == "" {
		t.state = StateUnrecognized
		t.logger.Info("playing file not understood", logging.String("file", pb.Filename), logging.String(logging.FieldEventType, "tracker_unparsed"))
		return nil
	}
	if parsed.EpisodeStart == 0 {
		parsed.EpisodeStart = 1
	}
	if parsed.EpisodeEnd < parsed.EpisodeStart {
		parsed.EpisodeEnd = parsed.EpisodeStart
	}
	t.parsed = parsed

	match, found := FindMatch(t.opts.List.Get(), t.opts.List.AltNames(), parsed.Title)
	if !found {
		t.state = StateUnrecognized
		t.logger.Info("playing file matches no list entry",
			logging.String("file", pb.Filename),
			logging.String("title_guess", parsed.Title),
			logging.String(logging.FieldEventType, "tracker_unrecognized"),
		)
		return nil
	}
	t.state = StateRecognized
	t.item = match.Item
	t.logger.Info("playing file recognized",
		logging.String(logging.FieldItemID, match.Item.ID.String()),
		logging.String("title", match.Item.Title),
		logging.Int(logging.FieldEpisode, parsed.EpisodeStart),
		logging.Float64("ratio", match.Ratio),
		logging.String(logging.FieldEventType, "tracker_recognized"),
	)
	item, episode := match.Item, parsed.EpisodeStart
	return []func(){func() { t.notifyPlaying(item, true, episode) }}
}

// resetLocked returns to NOVIDEO and reports the end of playback of a
// recognized item.
func (t *Tracker) resetLocked() []func() {
	var notify []func()
	if t.state == StateRecognized || t.state == StateUpdated {
		item, episode := t.item, t.parsed.EpisodeStart
		notify = append(notify, func() { t.notifyPlaying(item, false, episode) })
	}
	t.state = StateNoVideo
	t.current = Playback{}
	t.parsed = textutil.ParsedName{}
	t.item = media.Item{}
	t.dwell = 0
	t.warned = false
	return notify
}

func (t *Tracker) targetEpisode() int {
	if t.parsed.EpisodeEnd > t.parsed.EpisodeStart {
		return t.parsed.EpisodeEnd
	}
	return t.parsed.EpisodeStart
}

// evaluate re-checks the n+1 rule against the current list and fires the
// update once the dwell reaches the wait.
func (t *Tracker) evaluate(ctx context.Context) {
	now := t.opts.Now()
	t.mu.Lock()
	t.advanceLocked(now)
	if t.state != StateRecognized {
		t.mu.Unlock()
		return
	}
	current, ok := t.opts.List.Get()[t.item.ID]
	if !ok {
		t.state = StateUnrecognized
		status := t.statusLocked()
		t.mu.Unlock()
		t.publish(status)
		return
	}
	t.item = current
	if t.parsed.EpisodeStart != current.MyProgress+1 {
		t.dwell = 0
		warn := !t.warned
		t.warned = true
		episode := t.parsed.EpisodeStart
		t.mu.Unlock()
		if warn {
			logging.WarnWithContext(t.logger, "episode is not the next one; progress not updated", "tracker_refused",
				logging.String(logging.FieldItemID, current.ID.String()),
				logging.String("title", current.Title),
				logging.Int(logging.FieldEpisode, episode),
				logging.Int("progress", current.MyProgress),
				logging.String(logging.FieldErrorHint, "set the progress by hand if this episode should count"),
				logging.String(logging.FieldImpact, "this file will not update progress"),
			)
		}
		return
	}
	if t.dwell < t.opts.UpdateWait {
		status := t.statusLocked()
		t.mu.Unlock()
		t.publish(status)
		return
	}

	id, target, title := current.ID, t.targetEpisode(), current.Title
	t.state = StateUpdated
	t.mu.Unlock()

	if err := t.opts.Update(ctx, id, target); err != nil {
		logging.WarnWithContext(t.logger, "tracker update failed", "tracker_update_failed",
			logging.String(logging.FieldItemID, id.String()),
			logging.Int(logging.FieldEpisode, target),
			logging.String("kind", string(media.KindOf(err))),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the update is retried after another full wait"),
		)
		t.mu.Lock()
		if t.state == StateUpdated && t.item.ID == id {
			t.state = StateRecognized
			t.dwell = 0
		}
		t.mu.Unlock()
		return
	}
	t.logger.Info("progress updated from playback",
		logging.String(logging.FieldItemID, id.String()),
		logging.String("title", title),
		logging.Int(logging.FieldEpisode, target),
		logging.String(logging.FieldEventType, "tracker_update"),
	)
	t.publish(t.Status())
}

func (t *Tracker) notifyPlaying(item media.Item, playing bool, episode int) {
	if t.opts.Playing != nil {
		t.opts.Playing(item, playing, episode)
	}
}

func (t *Tracker) publish(status signals.TrackerStatus) {
	if t.opts.StateChanged != nil {
		t.opts.StateChanged(status)
	}
}
