package site

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"tracklist/internal/logging"
	"tracklist/internal/media"
)

// GuardOptions bounds the calls made through Guard.
type GuardOptions struct {
	// Timeout applies to each call; zero means 10 seconds.
	Timeout time.Duration
	// RequestsPerSecond paces calls; zero disables pacing.
	RequestsPerSecond float64
	Burst             int
	// BreakerFailures consecutive transport failures open the circuit for
	// BreakerCooldown. Zero disables the breaker.
	BreakerFailures uint32
	BreakerCooldown time.Duration
	Logger          *slog.Logger
}

const defaultCallTimeout = 10 * time.Second

// Guarded wraps a Client with timeouts, pacing, a circuit breaker and error
// normalization.
type Guarded struct {
	next    Client
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

// Guard decorates c. The result is safe for concurrent use if c is.
func Guard(c Client, opts GuardOptions) *Guarded {
	g := &Guarded{
		next:    c,
		timeout: opts.Timeout,
		logger:  logging.NewComponentLogger(opts.Logger, "site"),
	}
	if g.timeout <= 0 {
		g.timeout = defaultCallTimeout
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	if opts.BreakerFailures > 0 {
		threshold := opts.BreakerFailures
		g.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        c.Info().Name,
			MaxRequests: 1,
			Timeout:     opts.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			// Only availability problems count against the site; a NotFound
			// or Duplicate is a healthy answer.
			IsSuccessful: func(err error) bool {
				return err == nil || (media.IsKnown(err) && !errors.Is(err, media.ErrTransport))
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				if to == gobreaker.StateOpen {
					logging.WarnWithContext(g.logger, "site circuit opened", "site_circuit_open",
						logging.String("site", name),
						logging.String(logging.FieldErrorHint, "the site is failing repeatedly; calls are paused"),
						logging.String(logging.FieldImpact, "changes stay queued until the site recovers"),
					)
					return
				}
				g.logger.Info("site circuit state changed",
					logging.String("site", name),
					logging.String("from", from.String()),
					logging.String("to", to.String()),
					logging.String(logging.FieldEventType, "site_circuit_state"),
				)
			},
		})
	}
	return g
}

// BreakerState reports the circuit state, "disabled" without a breaker.
func (g *Guarded) BreakerState() string {
	if g.breaker == nil {
		return "disabled"
	}
	return g.breaker.State().String()
}

// Unwrap returns the decorated client.
func (g *Guarded) Unwrap() Client { return g.next }

func guardedCall[T any](ctx context.Context, g *Guarded, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return zero, media.Wrap(media.ErrTransport, "site", op, "rate limit wait aborted", err)
		}
	}
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	run := func() (any, error) {
		res, err := fn(callCtx)
		if err != nil && callCtx.Err() != nil && !media.IsKnown(err) {
			err = media.Wrap(media.ErrTransport, "site", op, "request timed out", err)
		}
		return res, err
	}

	var (
		res any
		err error
	)
	if g.breaker != nil {
		res, err = g.breaker.Execute(run)
	} else {
		res, err = run()
	}
	if err != nil {
		return zero, g.normalize(op, err)
	}
	out, _ := res.(T)
	return out, nil
}

func (g *Guarded) normalize(op string, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return media.Wrap(media.ErrTransport, "site", op, "site temporarily unavailable", err)
	case media.IsKnown(err):
		return err
	default:
		g.logger.Debug("normalized site error", logging.String("operation", op), logging.Error(err))
		return media.Wrap(media.ErrTransport, "site", op, "unexpected site failure", err)
	}
}

func (g *Guarded) Info() APIInfo                          { return g.next.Info() }
func (g *Guarded) Mediatypes() map[string]media.Mediatype { return g.next.Mediatypes() }
func (g *Guarded) DefaultMediatype() string               { return g.next.DefaultMediatype() }
func (g *Guarded) Events() <-chan Event                   { return g.next.Events() }

func (g *Guarded) CheckCredentials(ctx context.Context) error {
	_, err := guardedCall(ctx, g, "check_credentials", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.CheckCredentials(ctx)
	})
	return err
}

func (g *Guarded) FetchList(ctx context.Context) (map[media.ID]media.Item, error) {
	return guardedCall(ctx, g, "fetch_list", g.next.FetchList)
}

func (g *Guarded) Add(ctx context.Context, item media.Item) error {
	_, err := guardedCall(ctx, g, "add", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.Add(ctx, item)
	})
	return err
}

func (g *Guarded) Update(ctx context.Context, item media.Item, changes media.PendingChange) error {
	_, err := guardedCall(ctx, g, "update", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.Update(ctx, item, changes)
	})
	return err
}

func (g *Guarded) Delete(ctx context.Context, item media.Item) error {
	_, err := guardedCall(ctx, g, "delete", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.Delete(ctx, item)
	})
	return err
}

func (g *Guarded) Search(ctx context.Context, criteria string, method SearchMethod) ([]media.Item, error) {
	return guardedCall(ctx, g, "search", func(ctx context.Context) ([]media.Item, error) {
		return g.next.Search(ctx, criteria, method)
	})
}

func (g *Guarded) RequestInfo(ctx context.Context, items []media.Item) ([]media.Item, error) {
	return guardedCall(ctx, g, "request_info", func(ctx context.Context) ([]media.Item, error) {
		return g.next.RequestInfo(ctx, items)
	})
}

// Logout is not paced or guarded by the breaker; it only releases local
// resources on most bindings.
func (g *Guarded) Logout(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := g.next.Logout(callCtx); err != nil {
		return g.normalize("logout", err)
	}
	return nil
}
