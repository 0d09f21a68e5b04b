// Package notifications delivers tracker and error events via pluggable
// notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// the notifications section and degrades to a no-op when no topic is set.
// Each event type can be muted from configuration so callers publish
// unconditionally.
package notifications
