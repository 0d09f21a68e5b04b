package media

import "time"

// Field names used in logs, queue listings and change summaries.
const (
	FieldProgress   = "my_progress"
	FieldStatus     = "my_status"
	FieldScore      = "my_score"
	FieldStartDate  = "my_start_date"
	FieldFinishDate = "my_finish_date"
)

// PendingChange is a sparse set of user-owned field values. A nil field is
// not part of the change.
type PendingChange struct {
	Progress   *int       `json:"my_progress,omitempty"`
	Status     *Status    `json:"my_status,omitempty"`
	Score      *float64   `json:"my_score,omitempty"`
	StartDate  *time.Time `json:"my_start_date,omitempty"`
	FinishDate *time.Time `json:"my_finish_date,omitempty"`
}

// SetProgress returns a copy of c with the progress field set.
func (c PendingChange) SetProgress(n int) PendingChange {
	c.Progress = &n
	return c
}

// SetStatus returns a copy of c with the status field set.
func (c PendingChange) SetStatus(st Status) PendingChange {
	c.Status = &st
	return c
}

// SetScore returns a copy of c with the score field set.
func (c PendingChange) SetScore(s float64) PendingChange {
	c.Score = &s
	return c
}

// SetStartDate returns a copy of c with the start date set.
func (c PendingChange) SetStartDate(t time.Time) PendingChange {
	c.StartDate = &t
	return c
}

// SetFinishDate returns a copy of c with the finish date set.
func (c PendingChange) SetFinishDate(t time.Time) PendingChange {
	c.FinishDate = &t
	return c
}

// IsEmpty reports whether no field is set.
func (c PendingChange) IsEmpty() bool {
	return c.Progress == nil && c.Status == nil && c.Score == nil && c.StartDate == nil && c.FinishDate == nil
}

// Fields lists the names of the set fields in a stable order.
func (c PendingChange) Fields() []string {
	fields := make([]string, 0, 5)
	if c.Progress != nil {
		fields = append(fields, FieldProgress)
	}
	if c.Status != nil {
		fields = append(fields, FieldStatus)
	}
	if c.Score != nil {
		fields = append(fields, FieldScore)
	}
	if c.StartDate != nil {
		fields = append(fields, FieldStartDate)
	}
	if c.FinishDate != nil {
		fields = append(fields, FieldFinishDate)
	}
	return fields
}

// Merge returns c overlaid with every field set in later.
func (c PendingChange) Merge(later PendingChange) PendingChange {
	out := c.Clone()
	if later.Progress != nil {
		v := *later.Progress
		out.Progress = &v
	}
	if later.Status != nil {
		v := *later.Status
		out.Status = &v
	}
	if later.Score != nil {
		v := *later.Score
		out.Score = &v
	}
	if later.StartDate != nil {
		out.StartDate = cloneTime(later.StartDate)
	}
	if later.FinishDate != nil {
		out.FinishDate = cloneTime(later.FinishDate)
	}
	return out
}

// Clone returns a deep copy.
func (c PendingChange) Clone() PendingChange {
	var out PendingChange
	if c.Progress != nil {
		v := *c.Progress
		out.Progress = &v
	}
	if c.Status != nil {
		v := *c.Status
		out.Status = &v
	}
	if c.Score != nil {
		v := *c.Score
		out.Score = &v
	}
	out.StartDate = cloneTime(c.StartDate)
	out.FinishDate = cloneTime(c.FinishDate)
	return out
}

// Apply writes every set field onto the item.
func (c PendingChange) Apply(it *Item) {
	if c.Progress != nil {
		it.MyProgress = *c.Progress
	}
	if c.Status != nil {
		it.MyStatus = *c.Status
	}
	if c.Score != nil {
		it.MyScore = *c.Score
	}
	if c.StartDate != nil {
		it.MyStartDate = cloneTime(c.StartDate)
	}
	if c.FinishDate != nil {
		it.MyFinishDate = cloneTime(c.FinishDate)
	}
}

// Equal reports whether both changes set the same fields to the same values.
func (c PendingChange) Equal(other PendingChange) bool {
	return eqPtr(c.Progress, other.Progress) &&
		eqPtr(c.Status, other.Status) &&
		eqPtr(c.Score, other.Score) &&
		eqTime(c.StartDate, other.StartDate) &&
		eqTime(c.FinishDate, other.FinishDate)
}

// UserFields captures every user-owned field of an item as a change, the
// payload of an add.
func UserFields(it Item) PendingChange {
	c := PendingChange{}.SetProgress(it.MyProgress).SetStatus(it.MyStatus).SetScore(it.MyScore)
	if it.MyStartDate != nil {
		c.StartDate = cloneTime(it.MyStartDate)
	}
	if it.MyFinishDate != nil {
		c.FinishDate = cloneTime(it.MyFinishDate)
	}
	return c
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func eqTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
