// Package tracker watches what the local media player has open, resolves
// the file to an item on the list and, after the configured dwell, asks
// the engine to advance that item's progress by one episode.
//
// Backends implement Source and report playback snapshots on a channel; the
// Tracker consumes them without knowing where they come from. ProcSource
// polls /proc for player processes, InotifySource watches the search
// directories for opened video files, and JellyfinSource and PlexSource
// poll a media server's session list.
//
// Progress only ever moves from n to n+1 (or to the end of a multi-episode
// file starting at n+1). Any other episode number is refused once with a
// warning and the file is then ignored.
package tracker
