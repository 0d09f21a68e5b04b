package media

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// ID identifies an item on its site. Integer ids are stored in decimal form.
type ID string

// IntID formats an integer site id.
func IntID(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

// Int returns the numeric value of the id when it is an integer.
func (id ID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Less orders numeric ids numerically and everything else lexically.
func (id ID) Less(other ID) bool {
	a, okA := id.Int()
	b, okB := other.Int()
	switch {
	case okA && okB:
		return a < b
	case okA:
		return true
	case okB:
		return false
	default:
		return id < other
	}
}

func (id ID) String() string { return string(id) }

// AiringStatus is the remote publication state of a title.
type AiringStatus string

const (
	AiringUnknown   AiringStatus = "unknown"
	AiringOngoing   AiringStatus = "airing"
	AiringFinished  AiringStatus = "finished"
	AiringNotYet    AiringStatus = "not-yet"
	AiringCancelled AiringStatus = "cancelled"
)

// Status is a user list status declared by a mediatype.
type Status string

// Item is one tracked title: remote-sourced metadata plus the user's own
// progress, status, score and dates.
type Item struct {
	ID ID `json:"id"`

	Title             string       `json:"title"`
	Aliases           []string     `json:"aliases,omitempty"`
	Total             int          `json:"total"`
	Status            AiringStatus `json:"status,omitempty"`
	Image             string       `json:"image,omitempty"`
	URL               string       `json:"url,omitempty"`
	StartDate         *time.Time   `json:"start_date,omitempty"`
	EndDate           *time.Time   `json:"end_date,omitempty"`
	NextEpisodeNumber int          `json:"next_episode_number,omitempty"`
	NextEpisodeTime   *time.Time   `json:"next_episode_time,omitempty"`

	MyProgress   int        `json:"my_progress"`
	MyStatus     Status     `json:"my_status"`
	MyScore      float64    `json:"my_score"`
	MyStartDate  *time.Time `json:"my_start_date,omitempty"`
	MyFinishDate *time.Time `json:"my_finish_date,omitempty"`

	// Transient flags, recomputed from the queue and the tracker.
	Queued      bool `json:"-"`
	NewEpisodes bool `json:"-"`
	Playing     bool `json:"-"`
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	out := it
	out.Aliases = slices.Clone(it.Aliases)
	out.StartDate = cloneTime(it.StartDate)
	out.EndDate = cloneTime(it.EndDate)
	out.NextEpisodeTime = cloneTime(it.NextEpisodeTime)
	out.MyStartDate = cloneTime(it.MyStartDate)
	out.MyFinishDate = cloneTime(it.MyFinishDate)
	return out
}

// Titles returns the main title followed by its aliases, skipping blanks
// and duplicates.
func (it Item) Titles() []string {
	seen := make(map[string]struct{}, len(it.Aliases)+1)
	out := make([]string, 0, len(it.Aliases)+1)
	for _, title := range append([]string{it.Title}, it.Aliases...) {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		out = append(out, title)
	}
	return out
}

// NeedsInfo reports whether the remote-sourced part of the item is too sparse
// to display and must be enriched.
func (it Item) NeedsInfo() bool {
	return strings.TrimSpace(it.Title) == "" || it.Image == ""
}

// MergeInfo copies the remote-sourced fields of info onto the item, keeping
// the user-owned fields untouched. Blank fields in info do not overwrite.
func (it *Item) MergeInfo(info Item) {
	if info.Title != "" {
		it.Title = info.Title
	}
	if len(info.Aliases) > 0 {
		it.Aliases = slices.Clone(info.Aliases)
	}
	if info.Total > 0 {
		it.Total = info.Total
	}
	if info.Status != "" {
		it.Status = info.Status
	}
	if info.Image != "" {
		it.Image = info.Image
	}
	if info.URL != "" {
		it.URL = info.URL
	}
	if info.StartDate != nil {
		it.StartDate = cloneTime(info.StartDate)
	}
	if info.EndDate != nil {
		it.EndDate = cloneTime(info.EndDate)
	}
	if info.NextEpisodeNumber > 0 {
		it.NextEpisodeNumber = info.NextEpisodeNumber
	}
	if info.NextEpisodeTime != nil {
		it.NextEpisodeTime = cloneTime(info.NextEpisodeTime)
	}
}

// Info returns only the remote-sourced fields of the item.
func (it Item) Info() Item {
	var info Item
	info.ID = it.ID
	info.MergeInfo(it)
	return info
}

// SortedIDs returns the keys of a list in id order.
func SortedIDs(list map[ID]Item) []ID {
	ids := make([]ID, 0, len(list))
	for id := range list {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b ID) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})
	return ids
}

// Today returns local midnight of the given instant.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
