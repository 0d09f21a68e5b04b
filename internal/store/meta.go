package store

import (
	"fmt"

	"tracklist/internal/media"
)

// MetaFile is the persisted meta record.
type MetaFile struct {
	path    string
	version string
}

// NewMetaFile binds a meta file path to the running client version.
func NewMetaFile(path, version string) *MetaFile {
	return &MetaFile{path: path, version: version}
}

// Load returns the stored meta and whether the file existed. State written
// by a newer major version is refused with ErrFatal.
func (f *MetaFile) Load() (media.Meta, bool, error) {
	var meta media.Meta
	ok, err := readJSON(f.path, &meta)
	if err != nil || !ok {
		return media.Meta{AltNames: map[media.ID]string{}}, ok, err
	}
	if stored, running := media.MajorVersion(meta.Version), media.MajorVersion(f.version); stored > running {
		return media.Meta{}, true, media.Wrap(media.ErrFatal, "store", "load meta",
			fmt.Sprintf("state written by version %s, this is %s", meta.Version, f.version), nil)
	}
	if meta.AltNames == nil {
		meta.AltNames = map[media.ID]string{}
	}
	return meta, true, nil
}

// Save stamps the running version and replaces the stored meta.
func (f *MetaFile) Save(meta media.Meta) error {
	meta.Version = f.version
	return writeJSON(f.path, meta)
}
