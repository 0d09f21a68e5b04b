// Package preflight provides readiness checks for the paths, binaries and
// media servers tracklist depends on.
//
// The CLI "tracklist doctor" command runs RunAll and prints one status line
// per result. Checks follow the configuration: the player is only checked
// when one is configured, and the tracker backend only when tracking is
// enabled.
package preflight
