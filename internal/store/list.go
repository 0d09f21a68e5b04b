package store

import (
	"fmt"

	"tracklist/internal/media"
)

type listDocument struct {
	Items []media.Item `json:"items"`
}

// ListFile is the persisted list store.
type ListFile struct {
	path string
}

// NewListFile binds a list file path.
func NewListFile(path string) *ListFile {
	return &ListFile{path: path}
}

// Load returns the stored list and whether the file existed.
func (f *ListFile) Load() (map[media.ID]media.Item, bool, error) {
	var doc listDocument
	ok, err := readJSON(f.path, &doc)
	if err != nil || !ok {
		return map[media.ID]media.Item{}, ok, err
	}
	list := make(map[media.ID]media.Item, len(doc.Items))
	for _, item := range doc.Items {
		if item.ID == "" {
			continue
		}
		if _, dup := list[item.ID]; dup {
			return nil, true, fmt.Errorf("list file holds id %s twice", item.ID)
		}
		list[item.ID] = item
	}
	return list, true, nil
}

// Save replaces the stored list. Items are written in id order so the file
// diffs cleanly.
func (f *ListFile) Save(list map[media.ID]media.Item) error {
	doc := listDocument{Items: make([]media.Item, 0, len(list))}
	for _, id := range media.SortedIDs(list) {
		doc.Items = append(doc.Items, list[id])
	}
	return writeJSON(f.path, doc)
}
