// Package engine is the façade front-ends drive: one Engine per account and
// mediatype validates operations, applies the automatic status and date
// rules, forwards mutations to the data handler and runs the background
// tasks (signal dispatch, automatic sending, the playback tracker and site
// notifications).
//
// User-initiated operations return after their signals have been
// delivered. Tracker- and timer-initiated changes are delivered by the same
// dispatcher, so subscribers never see overlapping callbacks.
package engine
