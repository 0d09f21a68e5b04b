package site

import (
	"context"

	"tracklist/internal/media"
)

// SearchMethod selects how Search interprets its criteria.
type SearchMethod string

const (
	SearchKeyword SearchMethod = "keyword"
	// SearchSeason expects criteria of the form "2024 spring".
	SearchSeason SearchMethod = "season"
)

// APIInfo is the declared metadata of a binding.
type APIInfo struct {
	Name    string
	Short   string
	Version string
	// Merge reports that FetchList returns sparse items that must be
	// enriched from the info cache or RequestInfo.
	Merge bool
}

// EventKind names an unsolicited notification from a binding.
type EventKind string

const (
	EventShowInfoChanged   EventKind = "show_info_changed"
	EventUserConfigChanged EventKind = "user_config_changed"
)

// Event is an unsolicited notification from a binding.
type Event struct {
	Kind  EventKind
	Items []media.Item
	// Values carries the binding's user.json state on user_config_changed.
	Values map[string]string
}

// Client abstracts one remote catalogue for one account and mediatype.
//
// Mutations must be retry-safe: the data handler repeats a call after a
// transport failure. Scores cross this interface on the mediatype's own
// scale; bindings rescale for their wire format.
type Client interface {
	Info() APIInfo
	Mediatypes() map[string]media.Mediatype
	DefaultMediatype() string

	CheckCredentials(ctx context.Context) error
	FetchList(ctx context.Context) (map[media.ID]media.Item, error)
	// Add creates item with every user-owned field it carries.
	Add(ctx context.Context, item media.Item) error
	// Update applies the fields set in changes to the item with item.ID.
	Update(ctx context.Context, item media.Item, changes media.PendingChange) error
	Delete(ctx context.Context, item media.Item) error
	Search(ctx context.Context, criteria string, method SearchMethod) ([]media.Item, error)
	RequestInfo(ctx context.Context, items []media.Item) ([]media.Item, error)
	Logout(ctx context.Context) error

	// Events may return nil when the binding never notifies.
	Events() <-chan Event
}
