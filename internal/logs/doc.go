// Package logs reads the JSON session logs tracklist writes under the data
// root.
//
// Latest finds the newest session file, Tail returns its last lines or the
// lines after an offset, and Format turns one JSON record into the compact
// form the CLI prints. Follow mode polls the file so `tracklist logs -f`
// keeps printing while another process tracks playback.
package logs
