package local

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/natefinch/atomic"

	"tracklist/internal/media"
)

// entry is one row of the list file.
type entry struct {
	ID         media.ID     `json:"id"`
	Progress   int          `json:"progress"`
	Status     media.Status `json:"status"`
	Score      int          `json:"score"`
	StartedOn  *time.Time   `json:"started_on,omitempty"`
	FinishedOn *time.Time   `json:"finished_on,omitempty"`
}

type listDocument struct {
	Entries []entry `json:"entries"`
}

type catalogueDocument struct {
	Titles []media.Item `json:"titles"`
}

func toEntry(it media.Item) entry {
	return entry{
		ID:         it.ID,
		Progress:   it.MyProgress,
		Status:     it.MyStatus,
		Score:      int(math.Round(it.MyScore * scoreScale)),
		StartedOn:  it.MyStartDate,
		FinishedOn: it.MyFinishDate,
	}
}

func (e entry) item() media.Item {
	return media.Item{
		ID:           e.ID,
		MyProgress:   e.Progress,
		MyStatus:     e.Status,
		MyScore:      float64(e.Score) / scoreScale,
		MyStartDate:  e.StartedOn,
		MyFinishDate: e.FinishedOn,
	}
}

func readDocument(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return media.Wrap(media.ErrTransport, "local", "read", filepath.Base(path), err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return media.Wrap(media.ErrProtocol, "local", "parse", filepath.Base(path), err)
	}
	return nil
}

func writeDocument(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return media.Wrap(media.ErrTransport, "local", "write", "create site directory", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return media.Wrap(media.ErrTransport, "local", "write", filepath.Base(path), err)
	}
	return nil
}
