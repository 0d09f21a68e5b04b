package logs

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const timeLayout = "2006-01-02 15:04:05"

// hidden keys are shown elsewhere on the line or are noise in a terminal.
var hidden = map[string]bool{
	"ts":         true,
	"level":      true,
	"msg":        true,
	"component":  true,
	"source":     true,
	"session_id": true,
}

// Format renders one JSON session record as
// "time LEVEL [component] msg key=value ...". Lines that are not JSON
// objects come back unchanged.
func Format(line string) string {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return line
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(trimmed), &record); err != nil {
		return line
	}

	var b strings.Builder
	if ts, ok := record["ts"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			b.WriteString(parsed.In(time.Local).Format(timeLayout))
		} else {
			b.WriteString(ts)
		}
		b.WriteByte(' ')
	}
	level, _ := record["level"].(string)
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(level))
	if component, ok := record["component"].(string); ok && component != "" {
		b.WriteString(" [")
		b.WriteString(component)
		b.WriteByte(']')
	}
	if msg, ok := record["msg"].(string); ok {
		b.WriteByte(' ')
		b.WriteString(msg)
	}

	keys := make([]string, 0, len(record))
	for key := range record {
		if !hidden[key] {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	for _, key := range keys {
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(formatValue(record[key]))
	}
	return b.String()
}

func formatValue(v any) string {
	switch value := v.(type) {
	case string:
		if value == "" || strings.ContainsAny(value, " \t\"=") {
			return fmt.Sprintf("%q", value)
		}
		return value
	case nil:
		return "null"
	case map[string]any, []any:
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(raw)
	default:
		return fmt.Sprint(value)
	}
}
