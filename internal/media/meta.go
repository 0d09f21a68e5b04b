package media

import (
	"strconv"
	"strings"
	"time"
)

// Meta is the scalar state persisted next to a list.
type Meta struct {
	LastGet  time.Time     `json:"lastget"`
	LastSend time.Time     `json:"lastsend"`
	Version  string        `json:"version"`
	AltNames map[ID]string `json:"altnames,omitempty"`
}

// Clone returns a deep copy.
func (m Meta) Clone() Meta {
	out := m
	if m.AltNames != nil {
		out.AltNames = make(map[ID]string, len(m.AltNames))
		for id, name := range m.AltNames {
			out.AltNames[id] = name
		}
	}
	return out
}

// MajorVersion extracts the leading numeric component of a version string
// such as "1.4.2" or "v2". Unparseable versions report 0.
func MajorVersion(version string) int {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	head, _, _ := strings.Cut(version, ".")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}
	return n
}
