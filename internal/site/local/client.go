package local

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"tracklist/internal/logging"
	"tracklist/internal/media"
	"tracklist/internal/site"
	"tracklist/internal/textutil"
)

// SiteID is the registry id of this binding.
const SiteID = "local"

const (
	scoreScale = 10

	// ExtraCatalogue overrides the catalogue file location.
	ExtraCatalogue = "catalogue"

	valueUserID = "userid"
)

func init() {
	site.Register(SiteID, func(p site.Params) (site.Client, error) {
		return New(p)
	})
}

// Client is the offline site binding.
type Client struct {
	mu        sync.Mutex
	username  string
	mediatype string
	listPath  string
	catPath   string
	values    map[string]string
	logger    *slog.Logger
	events    chan site.Event
}

// New builds a client for p.Mediatype, defaulting to anime.
func New(p site.Params) (*Client, error) {
	mt := p.Mediatype
	if mt == "" {
		mt = mediatypeAnime
	}
	if _, ok := mediatypes()[mt]; !ok {
		return nil, media.Wrap(media.ErrUnsupported, "local", "new", fmt.Sprintf("unknown mediatype %q", mt), nil)
	}
	dir := filepath.Join(p.AccountDir, "local")
	catPath := filepath.Join(dir, textutil.FileToken(mt)+".catalogue.json")
	if custom := strings.TrimSpace(p.Account.Extras[ExtraCatalogue]); custom != "" {
		catPath = custom
	}
	values := make(map[string]string, len(p.UserValues))
	for k, v := range p.UserValues {
		values[k] = v
	}
	return &Client{
		username:  strings.TrimSpace(p.Account.Username),
		mediatype: mt,
		listPath:  filepath.Join(dir, textutil.FileToken(mt)+".json"),
		catPath:   catPath,
		values:    values,
		logger:    logging.NewComponentLogger(p.Logger, "site.local"),
		events:    make(chan site.Event, 8),
	}, nil
}

func (c *Client) Info() site.APIInfo {
	return site.APIInfo{Name: "Local", Short: SiteID, Version: "1", Merge: true}
}

func (c *Client) Mediatypes() map[string]media.Mediatype { return mediatypes() }

func (c *Client) DefaultMediatype() string { return mediatypeAnime }

func (c *Client) Events() <-chan site.Event { return c.events }

// CheckCredentials accepts any non-empty username and remembers it as the
// user id in user.json.
func (c *Client) CheckCredentials(context.Context) error {
	if c.username == "" {
		return media.Wrap(media.ErrAuthFailed, "local", "check credentials", "username is empty", nil)
	}
	c.mu.Lock()
	changed := c.values[valueUserID] != c.username
	if changed {
		c.values[valueUserID] = c.username
	}
	values := cloneValues(c.values)
	c.mu.Unlock()
	if changed {
		c.emit(site.Event{Kind: site.EventUserConfigChanged, Values: values})
	}
	return nil
}

func (c *Client) FetchList(ctx context.Context) (map[media.ID]media.Item, error) {
	if err := c.CheckCredentials(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, err := c.loadList()
	if err != nil {
		return nil, err
	}
	list := make(map[media.ID]media.Item, len(doc.Entries))
	for _, e := range doc.Entries {
		list[e.ID] = e.item()
	}
	c.logger.Debug("list fetched", logging.Int("items", len(list)))
	return list, nil
}

func (c *Client) Add(ctx context.Context, item media.Item) error {
	if err := c.CheckCredentials(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, err := c.loadList()
	if err != nil {
		return err
	}
	if slices.ContainsFunc(doc.Entries, func(e entry) bool { return e.ID == item.ID }) {
		return media.Wrap(media.ErrDuplicate, "local", "add", fmt.Sprintf("%s is already on the list", item.ID), nil)
	}
	doc.Entries = append(doc.Entries, toEntry(item))
	return writeDocument(c.listPath, doc)
}

func (c *Client) Update(ctx context.Context, item media.Item, changes media.PendingChange) error {
	if err := c.CheckCredentials(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, err := c.loadList()
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(doc.Entries, func(e entry) bool { return e.ID == item.ID })
	if idx < 0 {
		return media.Wrap(media.ErrNotFound, "local", "update", fmt.Sprintf("%s is not on the list", item.ID), nil)
	}
	current := doc.Entries[idx].item()
	changes.Apply(&current)
	doc.Entries[idx] = toEntry(current)
	return writeDocument(c.listPath, doc)
}

func (c *Client) Delete(ctx context.Context, item media.Item) error {
	if err := c.CheckCredentials(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, err := c.loadList()
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(doc.Entries, func(e entry) bool { return e.ID == item.ID })
	if idx < 0 {
		return media.Wrap(media.ErrNotFound, "local", "delete", fmt.Sprintf("%s is not on the list", item.ID), nil)
	}
	doc.Entries = slices.Delete(doc.Entries, idx, idx+1)
	return writeDocument(c.listPath, doc)
}

// Search matches every normalized keyword against the titles and aliases of
// catalogue entries.
func (c *Client) Search(_ context.Context, criteria string, method site.SearchMethod) ([]media.Item, error) {
	if method == site.SearchSeason {
		return nil, media.Wrap(media.ErrUnsupported, "local", "search", "season search is not available offline", nil)
	}
	words := textutil.Tokenize(criteria)
	c.mu.Lock()
	defer c.mu.Unlock()
	catalogue, err := c.loadCatalogue()
	if err != nil {
		return nil, err
	}
	var out []media.Item
	for _, it := range catalogue {
		haystack := textutil.Normalize(strings.Join(it.Titles(), " "))
		if matchesAll(haystack, words) {
			out = append(out, it.Clone())
		}
	}
	return out, nil
}

// RequestInfo returns the catalogue details of items and announces them on
// the event channel. Ids missing from the catalogue are skipped.
func (c *Client) RequestInfo(_ context.Context, items []media.Item) ([]media.Item, error) {
	c.mu.Lock()
	catalogue, err := c.loadCatalogue()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	byID := make(map[media.ID]media.Item, len(catalogue))
	for _, it := range catalogue {
		byID[it.ID] = it
	}
	out := make([]media.Item, 0, len(items))
	for _, it := range items {
		info, ok := byID[it.ID]
		if !ok {
			c.logger.Debug("no catalogue entry", logging.String(logging.FieldItemID, it.ID.String()))
			continue
		}
		out = append(out, info.Clone())
	}
	if len(out) > 0 {
		c.emit(site.Event{Kind: site.EventShowInfoChanged, Items: out})
	}
	return out, nil
}

func (c *Client) Logout(context.Context) error { return nil }

// SaveCatalogue replaces the catalogue file, for seeding titles.
func (c *Client) SaveCatalogue(items []media.Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeDocument(c.catPath, catalogueDocument{Titles: items})
}

func (c *Client) loadList() (listDocument, error) {
	var doc listDocument
	err := readDocument(c.listPath, &doc)
	return doc, err
}

func (c *Client) loadCatalogue() ([]media.Item, error) {
	var doc catalogueDocument
	if err := readDocument(c.catPath, &doc); err != nil {
		return nil, err
	}
	return doc.Titles, nil
}

// emit never blocks; events are dropped when nobody drains the channel.
func (c *Client) emit(ev site.Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Debug("site event dropped", logging.String(logging.FieldEventType, string(ev.Kind)))
	}
}

func matchesAll(haystack string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !strings.Contains(haystack, w) {
			return false
		}
	}
	return true
}

func cloneValues(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
