package store

import "tracklist/internal/media"

type queueDocument struct {
	Entries []media.QueueEntry `json:"entries"`
}

// QueueFile is the persisted queue; entry order is preserved.
type QueueFile struct {
	path string
}

// NewQueueFile binds a queue file path.
func NewQueueFile(path string) *QueueFile {
	return &QueueFile{path: path}
}

// Load returns the stored queue and whether the file existed.
func (f *QueueFile) Load() ([]media.QueueEntry, bool, error) {
	var doc queueDocument
	ok, err := readJSON(f.path, &doc)
	if err != nil {
		return nil, ok, err
	}
	if doc.Entries == nil {
		doc.Entries = []media.QueueEntry{}
	}
	return doc.Entries, ok, nil
}

// Save replaces the stored queue.
func (f *QueueFile) Save(entries []media.QueueEntry) error {
	if entries == nil {
		entries = []media.QueueEntry{}
	}
	return writeJSON(f.path, queueDocument{Entries: entries})
}
