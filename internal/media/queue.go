package media

import "time"

// Action is the kind of mutation carried by a queue entry.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// QueueEntry is one mutation waiting to be acknowledged by the site.
type QueueEntry struct {
	// Key identifies the entry itself; several entries may share an item id
	// over time but never at once with mergeable actions.
	Key      string        `json:"key"`
	ID       ID            `json:"id"`
	Title    string        `json:"title"`
	Action   Action        `json:"action"`
	Changes  PendingChange `json:"changes"`
	QueuedAt time.Time     `json:"queued_at"`
	// Revision increases every time changes are merged into the entry.
	Revision int `json:"revision"`
}

// Mergeable reports whether later changes for the same id may be folded
// into this entry.
func (e QueueEntry) Mergeable() bool {
	return e.Action == ActionAdd || e.Action == ActionUpdate
}

// Clone returns a deep copy.
func (e QueueEntry) Clone() QueueEntry {
	out := e
	out.Changes = e.Changes.Clone()
	return out
}

// Payload builds the sparse item sent to the site for this entry: the id,
// the title, and the changed user-owned fields.
func (e QueueEntry) Payload() Item {
	it := Item{ID: e.ID, Title: e.Title}
	e.Changes.Apply(&it)
	return it
}
