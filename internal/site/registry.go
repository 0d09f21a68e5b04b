package site

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"tracklist/internal/media"
)

// Params is what a binding receives at construction.
type Params struct {
	Account   media.Account
	Mediatype string
	// AccountDir is the per-account data directory ("<root>/user.site").
	AccountDir string
	// UserValues is the binding's state from user.json.
	UserValues map[string]string
	Logger     *slog.Logger
}

// Constructor builds a client for one account and mediatype.
type Constructor func(Params) (Client, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register makes a binding available under id. Registering the same id
// twice panics; bindings register from init.
func Register(id string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[id]; dup {
		panic(fmt.Sprintf("site: %q registered twice", id))
	}
	registry[id] = ctor
}

// New constructs the binding registered under id.
func New(id string, params Params) (Client, error) {
	registryMu.RLock()
	ctor, ok := registry[id]
	registryMu.RUnlock()
	if !ok {
		return nil, media.Wrap(media.ErrUnsupported, "site", "new", fmt.Sprintf("no site binding named %q", id), nil)
	}
	return ctor(params)
}

// Registered lists the registered site ids in order.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ResolveMediatype returns the named mediatype of c, or its default when
// name is empty.
func ResolveMediatype(c Client, name string) (media.Mediatype, error) {
	if name == "" {
		name = c.DefaultMediatype()
	}
	mt, ok := c.Mediatypes()[name]
	if !ok {
		return media.Mediatype{}, media.Wrap(media.ErrUnsupported, "site", "mediatype",
			fmt.Sprintf("%s does not offer mediatype %q", c.Info().Name, name), nil)
	}
	if mt.Name == "" {
		mt.Name = name
	}
	return mt, nil
}
