package engine

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"tracklist/internal/media"
)

// GetList returns every item ordered by id.
func (e *Engine) GetList() ([]media.Item, error) {
	h, _, err := e.session()
	if err != nil {
		return nil, err
	}
	return ordered(h.Get()), nil
}

// GetShowInfo returns the list item with id.
func (e *Engine) GetShowInfo(id media.ID) (media.Item, error) {
	h, _, err := e.session()
	if err != nil {
		return media.Item{}, err
	}
	item, ok := h.Item(id)
	if !ok {
		return media.Item{}, media.Wrap(media.ErrNotFound, "engine", "info", fmt.Sprintf("%s is not on the list", id), nil)
	}
	return item, nil
}

// GetShowDetails returns item enriched with the site's full metadata,
// served from the info cache when possible.
func (e *Engine) GetShowDetails(ctx context.Context, item media.Item) (media.Item, error) {
	h, _, err := e.session()
	if err != nil {
		return media.Item{}, e.report(err, "loading details")
	}
	info, err := h.InfoGet(ctx, item)
	if err != nil {
		return media.Item{}, e.report(err, fmt.Sprintf("loading details of %s", displayName(item)))
	}
	details := item.Clone()
	details.MergeInfo(info)
	return details, nil
}

// GetQueue returns the pending queue in send order.
func (e *Engine) GetQueue() ([]media.QueueEntry, error) {
	h, _, err := e.session()
	if err != nil {
		return nil, err
	}
	return h.Queue(), nil
}

// FilterList returns the items with status st; an empty status matches
// everything.
func (e *Engine) FilterList(st media.Status) ([]media.Item, error) {
	h, mt, err := e.session()
	if err != nil {
		return nil, err
	}
	if st != "" && !mt.HasStatus(st) {
		return nil, invalidStatus(st, mt)
	}
	var out []media.Item
	for _, item := range ordered(h.Get()) {
		if st == "" || item.MyStatus == st {
			out = append(out, item)
		}
	}
	return out, nil
}

// RegexList returns the items whose title, aliases or alternate title
// match pattern, ignoring case.
func (e *Engine) RegexList(pattern string) ([]media.Item, error) {
	h, _, err := e.session()
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, media.Wrap(media.ErrOutOfRange, "engine", "regex", "invalid pattern", err)
	}
	altnames := h.AltNames()
	var out []media.Item
	for _, item := range ordered(h.Get()) {
		if slices.ContainsFunc(titlesOf(item, altnames), re.MatchString) {
			out = append(out, item)
		}
	}
	return out, nil
}

// GetShowTitles returns every title item is known by, the alternate title
// last.
func (e *Engine) GetShowTitles(item media.Item) []string {
	var altnames map[media.ID]string
	if h, _, err := e.session(); err == nil {
		altnames = h.AltNames()
	}
	return titlesOf(item, altnames)
}

// FindLocal ranks list items by fuzzy similarity of any of their titles to
// query, best first.
func (e *Engine) FindLocal(query string) ([]media.Item, error) {
	h, _, err := e.session()
	if err != nil {
		return nil, err
	}
	list := h.Get()
	altnames := h.AltNames()

	var (
		targets []string
		owners  []media.ID
	)
	for _, id := range media.SortedIDs(list) {
		for _, title := range titlesOf(list[id], altnames) {
			targets = append(targets, title)
			owners = append(owners, id)
		}
	}
	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.Stable(ranks)

	seen := make(map[media.ID]bool, len(ranks))
	var out []media.Item
	for _, r := range ranks {
		id := owners[r.OriginalIndex]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, list[id])
	}
	return out, nil
}

func titlesOf(item media.Item, altnames map[media.ID]string) []string {
	titles := item.Titles()
	if alt := altnames[item.ID]; alt != "" && !slices.Contains(titles, alt) {
		titles = append(titles, alt)
	}
	return titles
}

func ordered(list map[media.ID]media.Item) []media.Item {
	out := make([]media.Item, 0, len(list))
	for _, id := range media.SortedIDs(list) {
		out = append(out, list[id])
	}
	return out
}
