package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// field is one flattened attribute; group names are joined into key with dots.
type field struct {
	key   string
	value slog.Value
}

// header holds the attributes shown before the message instead of as pairs.
type header struct {
	component string
	account   string
	mediatype string
	itemID    string
}

func (h *header) take(f field) bool {
	switch f.key {
	case FieldComponent:
		h.component = plainValue(f.value)
	case FieldAccount:
		h.account = plainValue(f.value)
	case FieldMediatype:
		h.mediatype = plainValue(f.value)
	case FieldItemID:
		h.itemID = plainValue(f.value)
	case FieldSessionID:
	default:
		return false
	}
	return true
}

func (h header) scope() string {
	parts := make([]string, 0, 2)
	for _, part := range []string{h.account, h.mediatype} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "/")
}

// consoleHandler writes one human-readable line per record:
// "time LEVEL [component] account/mediatype #item - message key=value".
// At debug level the header fields are also repeated as pairs.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Leveler
	fields    []field
	prefix    string
	addSource bool
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	if !h.Enabled(context.Background(), r.Level) {
		return nil
	}
	fields := slices.Clone(h.fields)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendField(fields, h.prefix, a)
		return true
	})
	fields = lastWins(fields)

	var head header
	pairs := fields[:0:0]
	for _, f := range fields {
		if head.take(f) && r.Level >= slog.LevelInfo {
			continue
		}
		pairs = append(pairs, f)
	}

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.WriteString(consoleTime(ts))
	b.WriteByte(' ')
	b.WriteString(levelLabel(r.Level))
	if head.component != "" {
		b.WriteString(" [" + head.component + "]")
	}
	if scope := head.scope(); scope != "" {
		b.WriteString(" " + scope)
	}
	if head.itemID != "" {
		b.WriteString(" #" + head.itemID)
	}
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "(no message)"
	}
	b.WriteString(" - " + msg)
	if h.addSource {
		if src := r.Source(); src != nil {
			b.WriteString(" [" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + "]")
		}
	}
	for _, f := range pairs {
		b.WriteString(" " + f.key + "=" + fieldValue(f.value))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = slices.Clone(h.fields)
	for _, a := range attrs {
		next.fields = appendField(next.fields, h.prefix, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func appendField(dst []field, prefix string, a slog.Attr) []field {
	if a.Equal(slog.Attr{}) {
		return dst
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, inner := range v.Group() {
			dst = appendField(dst, prefix, inner)
		}
		return dst
	}
	if a.Key == "" {
		return dst
	}
	return append(dst, field{key: prefix + a.Key, value: v})
}

// lastWins drops repeated keys, keeping the first position and the last value.
func lastWins(fields []field) []field {
	if len(fields) < 2 {
		return fields
	}
	index := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if i, seen := index[f.key]; seen {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
