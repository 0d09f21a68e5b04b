package signals

import (
	"time"

	"tracklist/internal/media"
)

// Name identifies a signal.
type Name string

const (
	ShowAdded       Name = "show_added"
	ShowDeleted     Name = "show_deleted"
	EpisodeChanged  Name = "episode_changed"
	ScoreChanged    Name = "score_changed"
	StatusChanged   Name = "status_changed"
	ShowSynced      Name = "show_synced"
	QueueChanged    Name = "queue_changed"
	Playing         Name = "playing"
	ListChanged     Name = "list_changed"
	ShowInfoChanged Name = "show_info_changed"
	TrackerState    Name = "tracker_state"
	UserConfig      Name = "user_config_changed"
)

// Event is one delivered signal. Which fields are set depends on Name:
// item signals carry Item, queue_changed carries QueueLength, playing
// carries Item, Playing and Episode, show_info_changed carries Items and
// tracker_state carries Tracker.
type Event struct {
	Name        Name
	Item        media.Item
	Items       []media.Item
	Episode     int
	Playing     bool
	QueueLength int
	Tracker     TrackerStatus
}

// TrackerStatus is a snapshot of the tracker state machine.
type TrackerStatus struct {
	State    string
	Filename string
	ItemID   media.ID
	Title    string
	Episode  int
	// Dwell is the playing time accumulated toward the update.
	Dwell time.Duration
	Wait  time.Duration
}

// ItemEvent builds an event about one item.
func ItemEvent(name Name, item media.Item) Event {
	return Event{Name: name, Item: item}
}

// QueueEvent builds queue_changed.
func QueueEvent(length int) Event {
	return Event{Name: QueueChanged, QueueLength: length}
}
