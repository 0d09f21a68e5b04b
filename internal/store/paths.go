package store

import (
	"path/filepath"

	"tracklist/internal/media"
	"tracklist/internal/textutil"
)

// Paths names every file belonging to one (account, mediatype) pair.
type Paths struct {
	AccountDir string
	List       string
	Queue      string
	Meta       string
	Info       string
	Lock       string
}

// NewPaths lays out the files of acct under root. The lock is shared by all
// mediatypes of the account.
func NewPaths(root string, acct media.Account, mediatype string) Paths {
	dir := filepath.Join(root, acct.DirName())
	base := textutil.FileToken(mediatype)
	return Paths{
		AccountDir: dir,
		List:       filepath.Join(dir, base+".list"),
		Queue:      filepath.Join(dir, base+".queue"),
		Meta:       filepath.Join(dir, base+".meta"),
		Info:       filepath.Join(dir, base+".info"),
		Lock:       filepath.Join(dir, "lock"),
	}
}
