package local

import "tracklist/internal/media"

const (
	mediatypeAnime = "anime"
	mediatypeManga = "manga"
)

func mediatypes() map[string]media.Mediatype {
	return map[string]media.Mediatype{
		mediatypeAnime: newMediatype(mediatypeAnime, "watching", "plan_to_watch", "Watching", "Plan to Watch"),
		mediatypeManga: newMediatype(mediatypeManga, "reading", "plan_to_read", "Reading", "Plan to Read"),
	}
}

func newMediatype(name string, current, planned media.Status, currentLabel, plannedLabel string) media.Mediatype {
	return media.Mediatype{
		Name:        name,
		HasProgress: true,
		CanAdd:      true,
		CanDelete:   true,
		CanScore:    true,
		CanStatus:   true,
		CanUpdate:   true,
		CanPlay:     name == mediatypeAnime,
		CanDate:     true,
		Statuses:    []media.Status{current, "completed", "on_hold", "dropped", planned},
		StatusLabels: map[media.Status]string{
			current:     currentLabel,
			"completed": "Completed",
			"on_hold":   "On Hold",
			"dropped":   "Dropped",
			planned:     plannedLabel,
		},
		StatusesStart:  []media.Status{current},
		StatusesFinish: []media.Status{"completed"},
		ScoreMax:       10,
		ScoreStep:      1,
	}
}
