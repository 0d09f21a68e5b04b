package engine

import (
	"context"
	"log/slog"

	"tracklist/internal/logging"
	"tracklist/internal/media"
)

// Level is the severity of a message shown to the user.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	// LevelFatal is only used for failures that prevent a start.
	LevelFatal Level = "fatal"
)

// Messenger receives short user-facing messages. Errors arrive as
// "Kind: context" and never carry transport detail.
type Messenger interface {
	Message(level Level, text string)
}

// MessengerFunc adapts a function to Messenger.
type MessengerFunc func(level Level, text string)

func (f MessengerFunc) Message(level Level, text string) { f(level, text) }

type logMessenger struct {
	logger *slog.Logger
}

func (m logMessenger) Message(level Level, text string) {
	m.logger.Log(context.Background(), slogLevel(level), text, logging.String(logging.FieldEventType, "engine_message"))
}

func slogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError, LevelFatal:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// levelFor picks the message level for an error kind. Rejected input is a
// warning; failures the user cannot fix by retyping are errors.
func levelFor(kind media.Kind) Level {
	switch kind {
	case media.KindOutOfRange, media.KindNoChange, media.KindDuplicate, media.KindNotFound,
		media.KindUnsupported, media.KindInvalidStatus, media.KindUnloaded:
		return LevelWarn
	case media.KindLocked, media.KindFatal:
		return LevelFatal
	default:
		return LevelError
	}
}
