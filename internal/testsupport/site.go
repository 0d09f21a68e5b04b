package testsupport

import (
	"context"
	"strings"
	"sync"

	"tracklist/internal/media"
	"tracklist/internal/site"
)

// AnimeMediatype is a fully capable mediatype used across tests: statuses
// watching, completed, on_hold, dropped and plan_to_watch, scores 0-10 in
// steps of 0.5.
func AnimeMediatype() media.Mediatype {
	return media.Mediatype{
		Name:        "anime",
		HasProgress: true,
		CanAdd:      true,
		CanDelete:   true,
		CanScore:    true,
		CanStatus:   true,
		CanUpdate:   true,
		CanPlay:     true,
		CanDate:     true,
		Statuses:    []media.Status{"watching", "completed", "on_hold", "dropped", "plan_to_watch"},
		StatusLabels: map[media.Status]string{
			"watching":      "Watching",
			"completed":     "Completed",
			"on_hold":       "On Hold",
			"dropped":       "Dropped",
			"plan_to_watch": "Plan to Watch",
		},
		StatusesStart:  []media.Status{"watching"},
		StatusesFinish: []media.Status{"completed"},
		ScoreMax:       10,
		ScoreStep:      0.5,
	}
}

// Call records one remote operation made against a FakeSite.
type Call struct {
	Op      string
	ID      media.ID
	Changes media.PendingChange
}

// FakeSite is a programmable in-memory site client. Scripted errors are
// consumed in order per operation; persistent per-id errors apply until
// cleared.
type FakeSite struct {
	mu        sync.Mutex
	info      site.APIInfo
	types     map[string]media.Mediatype
	remote    map[media.ID]media.Item
	catalogue map[media.ID]media.Item
	scripted  map[string][]error
	byID      map[media.ID]error
	calls     []Call
	events    chan site.Event

	// BeforeCall, when set, runs before every operation outside the lock.
	BeforeCall func(op string, id media.ID)
}

// NewFakeSite returns a fake with the anime mediatype and an empty list.
func NewFakeSite() *FakeSite {
	return &FakeSite{
		info:      site.APIInfo{Name: "Fake", Short: "fake", Version: "1"},
		types:     map[string]media.Mediatype{"anime": AnimeMediatype()},
		remote:    map[media.ID]media.Item{},
		catalogue: map[media.ID]media.Item{},
		scripted:  map[string][]error{},
		byID:      map[media.ID]error{},
		events:    make(chan site.Event, 16),
	}
}

// SetMerge toggles the merge flag of the declared API info.
func (f *FakeSite) SetMerge(merge bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.info.Merge = merge
}

// SetMediatype replaces the declared anime mediatype.
func (f *FakeSite) SetMediatype(mt media.Mediatype) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = map[string]media.Mediatype{mt.Name: mt}
}

// SetRemote replaces the remote list.
func (f *FakeSite) SetRemote(items ...media.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remote = map[media.ID]media.Item{}
	for _, it := range items {
		f.remote[it.ID] = it.Clone()
	}
}

// Remote returns a copy of the remote list.
func (f *FakeSite) Remote() map[media.ID]media.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[media.ID]media.Item, len(f.remote))
	for id, it := range f.remote {
		out[id] = it.Clone()
	}
	return out
}

// SetCatalogue declares the details served by RequestInfo and Search.
func (f *FakeSite) SetCatalogue(items ...media.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range items {
		f.catalogue[it.ID] = it.Clone()
	}
}

// FailNext scripts the next errors returned by op ("add", "update",
// "delete", "fetch_list", "request_info", "search", "check_credentials").
func (f *FakeSite) FailNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripted[op] = append(f.scripted[op], errs...)
}

// FailID makes every mutation of id fail with err; nil clears it.
func (f *FakeSite) FailID(id media.ID, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.byID, id)
		return
	}
	f.byID[id] = err
}

// Calls returns the recorded operations in order.
func (f *FakeSite) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns how many times op was called.
func (f *FakeSite) CallCount(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Emit queues an unsolicited event.
func (f *FakeSite) Emit(ev site.Event) {
	f.events <- ev
}

func (f *FakeSite) begin(op string, id media.ID, changes media.PendingChange) error {
	if f.BeforeCall != nil {
		f.BeforeCall(op, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: op, ID: id, Changes: changes.Clone()})
	if errs := f.scripted[op]; len(errs) > 0 {
		f.scripted[op] = errs[1:]
		if errs[0] != nil {
			return errs[0]
		}
	}
	if id != "" && op != "request_info" && op != "search" {
		if err := f.byID[id]; err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeSite) Info() site.APIInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.info
}

func (f *FakeSite) Mediatypes() map[string]media.Mediatype {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.types
}

func (f *FakeSite) DefaultMediatype() string { return "anime" }

func (f *FakeSite) Events() <-chan site.Event { return f.events }

func (f *FakeSite) CheckCredentials(context.Context) error {
	return f.begin("check_credentials", "", media.PendingChange{})
}

func (f *FakeSite) FetchList(context.Context) (map[media.ID]media.Item, error) {
	if err := f.begin("fetch_list", "", media.PendingChange{}); err != nil {
		return nil, err
	}
	return f.Remote(), nil
}

func (f *FakeSite) Add(_ context.Context, item media.Item) error {
	if err := f.begin("add", item.ID, media.UserFields(item)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.remote[item.ID]; exists {
		return media.Wrap(media.ErrDuplicate, "fake", "add", "already on the list", nil)
	}
	f.remote[item.ID] = item.Clone()
	return nil
}

func (f *FakeSite) Update(_ context.Context, item media.Item, changes media.PendingChange) error {
	if err := f.begin("update", item.ID, changes); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.remote[item.ID]
	if !ok {
		return media.Wrap(media.ErrNotFound, "fake", "update", "not on the list", nil)
	}
	changes.Apply(&current)
	f.remote[item.ID] = current
	return nil
}

func (f *FakeSite) Delete(_ context.Context, item media.Item) error {
	if err := f.begin("delete", item.ID, media.PendingChange{}); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.remote[item.ID]; !ok {
		return media.Wrap(media.ErrNotFound, "fake", "delete", "not on the list", nil)
	}
	delete(f.remote, item.ID)
	return nil
}

func (f *FakeSite) Search(_ context.Context, criteria string, _ site.SearchMethod) ([]media.Item, error) {
	if err := f.begin("search", "", media.PendingChange{}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []media.Item
	for _, id := range media.SortedIDs(f.catalogue) {
		it := f.catalogue[id]
		if strings.Contains(strings.ToLower(it.Title), strings.ToLower(criteria)) {
			out = append(out, it.Clone())
		}
	}
	return out, nil
}

func (f *FakeSite) RequestInfo(_ context.Context, items []media.Item) ([]media.Item, error) {
	if err := f.begin("request_info", "", media.PendingChange{}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]media.Item, 0, len(items))
	for _, it := range items {
		if info, ok := f.catalogue[it.ID]; ok {
			out = append(out, info.Clone())
		}
	}
	return out, nil
}

func (f *FakeSite) Logout(context.Context) error {
	return f.begin("logout", "", media.PendingChange{})
}
