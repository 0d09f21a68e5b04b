package media

import (
	"math"
	"slices"
)

// Mediatype describes one (site, content kind) pair: which operations are
// allowed and which values are valid.
type Mediatype struct {
	Name string

	HasProgress bool
	CanAdd      bool
	CanDelete   bool
	CanScore    bool
	CanStatus   bool
	CanUpdate   bool
	CanPlay     bool
	CanDate     bool

	// Statuses is ordered the way front-ends present them.
	Statuses     []Status
	StatusLabels map[Status]string

	StatusesStart  []Status
	StatusesFinish []Status

	ScoreMax  float64
	ScoreStep float64
}

// HasStatus reports whether st is declared by the mediatype.
func (m Mediatype) HasStatus(st Status) bool {
	return slices.Contains(m.Statuses, st)
}

// IsStartStatus reports whether st is one of the statuses assigned when
// progress first advances.
func (m Mediatype) IsStartStatus(st Status) bool {
	return slices.Contains(m.StatusesStart, st)
}

// IsFinishStatus reports whether st is one of the completion statuses.
func (m Mediatype) IsFinishStatus(st Status) bool {
	return slices.Contains(m.StatusesFinish, st)
}

// StatusLabel returns the human label for st, falling back to the raw value.
func (m Mediatype) StatusLabel(st Status) string {
	if label, ok := m.StatusLabels[st]; ok && label != "" {
		return label
	}
	return string(st)
}

// DefaultStatus is the status given to newly added items.
func (m Mediatype) DefaultStatus() Status {
	if len(m.Statuses) == 0 {
		return ""
	}
	return m.Statuses[0]
}

// SnapScore validates s against the score range and rounds it to the
// nearest ScoreStep.
func (m Mediatype) SnapScore(s float64) (float64, error) {
	if math.IsNaN(s) || s < 0 || s > m.ScoreMax {
		return 0, Wrap(ErrOutOfRange, "mediatype", "score", "score must be between 0 and the maximum", nil)
	}
	if m.ScoreStep <= 0 {
		return s, nil
	}
	snapped := math.Round(s/m.ScoreStep) * m.ScoreStep
	if snapped > m.ScoreMax {
		snapped = m.ScoreMax
	}
	// Trim float noise introduced by fractional steps such as 0.1.
	return math.Round(snapped*1e6) / 1e6, nil
}
