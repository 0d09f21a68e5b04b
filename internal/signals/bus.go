package signals

import (
	"context"
	"sync"
)

// Handler receives delivered events on the dispatcher goroutine. ctx is
// marked as belonging to the dispatcher: passing it on to Barrier (directly
// or through an Engine operation) does not wait, since the handler itself is
// holding up delivery.
type Handler func(ctx context.Context, ev Event)

type dispatchKey struct{}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus queues published events and delivers them in order from Run.
type Bus struct {
	mu        sync.Mutex
	pending   []Event
	published uint64
	delivered uint64
	closed    bool
	notify    chan struct{}
	progress  *sync.Cond

	subsMu sync.RWMutex
	byName map[Name][]subscription
	all    []subscription
	nextID uint64
}

// NewBus returns an idle bus; call Run to start delivery.
func NewBus() *Bus {
	b := &Bus{
		notify: make(chan struct{}, 1),
		byName: make(map[Name][]subscription),
	}
	b.progress = sync.NewCond(&b.mu)
	return b
}

// Subscribe registers h for one signal name. The returned func removes it.
func (b *Bus) Subscribe(name Name, h Handler) func() {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	b.nextID++
	id := b.nextID
	b.byName[name] = append(b.byName[name], subscription{id: id, handler: h})
	return func() { b.unsubscribe(name, id) }
}

// SubscribeAll registers h for every signal.
func (b *Bus) SubscribeAll(h Handler) func() {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, handler: h})
	return func() { b.unsubscribe("", id) }
}

func (b *Bus) unsubscribe(name Name, id uint64) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	remove := func(subs []subscription) []subscription {
		out := subs[:0]
		for _, s := range subs {
			if s.id != id {
				out = append(out, s)
			}
		}
		return out
	}
	if name == "" {
		b.all = remove(b.all)
		return
	}
	b.byName[name] = remove(b.byName[name])
}

// Publish enqueues events in argument order. It never blocks on delivery,
// so it may be called while holding other locks. Events published after
// the bus stopped are dropped.
func (b *Bus) Publish(events ...Event) {
	if len(events) == 0 {
		return
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.pending = append(b.pending, events...)
	b.published += uint64(len(events))
	b.mu.Unlock()
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Barrier waits until everything published before the call has been
// delivered. With a handler's ctx it returns immediately.
func (b *Bus) Barrier(ctx context.Context) error {
	if owner, _ := ctx.Value(dispatchKey{}).(*Bus); owner == b {
		return nil
	}
	b.mu.Lock()
	target := b.published
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.mu.Lock()
		for b.delivered < target && !b.closed && ctx.Err() == nil {
			b.progress.Wait()
		}
		b.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		b.mu.Lock()
		b.progress.Broadcast()
		b.mu.Unlock()
		<-done
		return ctx.Err()
	}
}

// Run delivers events until ctx is cancelled, then delivers whatever is
// still pending and stops accepting new events.
func (b *Bus) Run(ctx context.Context) error {
	handlerCtx := context.WithValue(ctx, dispatchKey{}, b)
	for {
		b.drain(handlerCtx)
		select {
		case <-b.notify:
		case <-ctx.Done():
			b.drain(handlerCtx)
			b.mu.Lock()
			b.closed = true
			b.pending = nil
			b.progress.Broadcast()
			b.mu.Unlock()
			return nil
		}
	}
}

func (b *Bus) drain(ctx context.Context) {
	for {
		b.mu.Lock()
		if len(b.pending) == 0 {
			b.mu.Unlock()
			return
		}
		ev := b.pending[0]
		b.pending[0] = Event{}
		b.pending = b.pending[1:]
		b.mu.Unlock()

		b.deliver(ctx, ev)

		b.mu.Lock()
		b.delivered++
		b.progress.Broadcast()
		b.mu.Unlock()
	}
}

func (b *Bus) deliver(ctx context.Context, ev Event) {
	b.subsMu.RLock()
	handlers := make([]Handler, 0, len(b.byName[ev.Name])+len(b.all))
	for _, s := range b.byName[ev.Name] {
		handlers = append(handlers, s.handler)
	}
	for _, s := range b.all {
		handlers = append(handlers, s.handler)
	}
	b.subsMu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
}
