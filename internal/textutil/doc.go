// Package textutil provides the text helpers behind title matching: title
// normalization, a sequence similarity ratio, and the default parser that
// turns a video file name into a title guess and an episode number.
package textutil
