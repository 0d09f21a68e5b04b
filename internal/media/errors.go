package media

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransport     = errors.New("transport error")
	ErrAuthFailed    = errors.New("authentication failed")
	ErrOutOfRange    = errors.New("out of range")
	ErrDuplicate     = errors.New("duplicate item")
	ErrNotFound      = errors.New("not found")
	ErrUnsupported   = errors.New("unsupported")
	ErrInvalidStatus = errors.New("invalid status")
	ErrLocked        = errors.New("account locked")
	ErrFatal         = errors.New("fatal")
	ErrUnloaded      = errors.New("engine unloaded")
	ErrNoChange      = errors.New("no change")
	ErrProtocol      = errors.New("protocol violation")
)

// Kind is the stable name of an error kind, suitable for messages shown to
// users and for log fields.
type Kind string

const (
	KindTransport     Kind = "Transport"
	KindAuthFailed    Kind = "AuthFailed"
	KindOutOfRange    Kind = "OutOfRange"
	KindDuplicate     Kind = "Duplicate"
	KindNotFound      Kind = "NotFound"
	KindUnsupported   Kind = "Unsupported"
	KindInvalidStatus Kind = "InvalidStatus"
	KindLocked        Kind = "Locked"
	KindFatal         Kind = "Fatal"
	KindUnloaded      Kind = "Unloaded"
	KindNoChange      Kind = "NoChange"
	KindProtocol      Kind = "ProtocolViolation"
	KindUnknown       Kind = "Unknown"
)

var kindMarkers = []struct {
	marker error
	kind   Kind
}{
	{ErrAuthFailed, KindAuthFailed},
	{ErrLocked, KindLocked},
	{ErrFatal, KindFatal},
	{ErrUnloaded, KindUnloaded},
	{ErrOutOfRange, KindOutOfRange},
	{ErrDuplicate, KindDuplicate},
	{ErrNotFound, KindNotFound},
	{ErrUnsupported, KindUnsupported},
	{ErrInvalidStatus, KindInvalidStatus},
	{ErrNoChange, KindNoChange},
	{ErrProtocol, KindProtocol},
	{ErrTransport, KindTransport},
}

// KindOf classifies err by the first known marker it wraps.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, km := range kindMarkers {
		if errors.Is(err, km.marker) {
			return km.kind
		}
	}
	return KindUnknown
}

// IsKnown reports whether err carries one of the error kinds above.
func IsKnown(err error) bool {
	kind := KindOf(err)
	return kind != "" && kind != KindUnknown
}

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserMessage renders err as "Kind: context" without the wrapped cause, the
// form shown to users instead of raw transport text.
func UserMessage(err error, context string) string {
	if err == nil {
		return ""
	}
	kind := KindOf(err)
	context = strings.TrimSpace(context)
	if context == "" {
		return string(kind)
	}
	return string(kind) + ": " + context
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
