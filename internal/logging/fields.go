package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemID is the standardized structured logging key for list item identifiers.
	FieldItemID = "item_id"
	// FieldMediatype names the mediatype an engine session is bound to.
	FieldMediatype = "mediatype"
	// FieldAccount names the account directory ("user.site").
	FieldAccount = "account"
	// FieldEpisode is the episode number a log line refers to.
	FieldEpisode = "episode"
	// FieldQueueLength is the number of unsent queue entries.
	FieldQueueLength = "queue_length"
	// FieldSessionID correlates every line written by one process.
	FieldSessionID = "session_id"
)
