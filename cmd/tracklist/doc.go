// Command tracklist is the command-line front-end: it opens one engine
// session per invocation for the selected account and mediatype, runs the
// requested operation and closes the session again.
//
// Data goes to stdout. Engine messages go to stderr as status lines, so
// scripts can parse the tables or the --json output without filtering.
package main
