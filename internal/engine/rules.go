package engine

import (
	"tracklist/internal/media"
)

// autoStatus returns the status a progress change to n implies. Reaching
// the total selects the first finish status; leaving zero selects the first
// start status unless the item already has one.
func (e *Engine) autoStatus(mt media.Mediatype, cur media.Item, n int) (media.Status, bool) {
	if !e.cfg.AutoStatusChange || !mt.CanStatus {
		return "", false
	}
	if !e.cfg.AutoStatusChangeIfScored && cur.MyScore == 0 {
		return "", false
	}
	if cur.Total > 0 && n == cur.Total && len(mt.StatusesFinish) > 0 {
		st := mt.StatusesFinish[0]
		return st, st != cur.MyStatus
	}
	if cur.MyProgress == 0 && n > 0 && len(mt.StatusesStart) > 0 && !mt.IsStartStatus(cur.MyStatus) {
		return mt.StatusesStart[0], true
	}
	return "", false
}

// autoDates stamps today's date when st is entered and the matching date is
// still unset.
func (e *Engine) autoDates(mt media.Mediatype, cur media.Item, st media.Status, change media.PendingChange) media.PendingChange {
	if !e.cfg.AutoDateChange || !mt.CanDate {
		return change
	}
	today := media.Today(e.now())
	if mt.IsStartStatus(st) && cur.MyStartDate == nil {
		change = change.SetStartDate(today)
	}
	if mt.IsFinishStatus(st) && cur.MyFinishDate == nil {
		change = change.SetFinishDate(today)
	}
	return change
}
