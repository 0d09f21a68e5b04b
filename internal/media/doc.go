// Package media defines the records shared by every layer of the tracker:
// list items, mediatype descriptors, pending changes, queue entries, the
// persisted meta block, and the error kinds surfaced to front-ends.
//
// Items are closed records. Sparse updates are expressed through
// PendingChange, whose nil fields mean "unchanged", so no layer needs magic
// sentinel values to tell an explicit zero from an absent field.
package media
