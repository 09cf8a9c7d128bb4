// Package activity keeps the bounded farm activity log used for analytics.
package activity

// DefaultCapacity is used when no capacity is configured.
const DefaultCapacity = 100

// Entry is one notable event on a farm.
type Entry struct {
	Label string `json:"label"`
	At    int64  `json:"at"`
}

// Tracker appends entries to an activity log, evicting the oldest entries
// once Capacity is exceeded. A Capacity of zero or less keeps every entry.
type Tracker struct {
	Capacity int
}

// NewTracker returns a tracker with the given capacity.
func NewTracker(capacity int) *Tracker {
	return &Tracker{Capacity: capacity}
}

// Record returns log with (label, at) appended. The input slice is never
// modified in place so a caller holding the previous log keeps its view.
func (t *Tracker) Record(log []Entry, label string, at int64) []Entry {
	capacity := 0
	if t != nil {
		capacity = t.Capacity
	}

	start := 0
	if capacity > 0 && len(log)+1 > capacity {
		start = len(log) + 1 - capacity
	}

	out := make([]Entry, 0, len(log)-start+1)
	out = append(out, log[start:]...)
	return append(out, Entry{Label: label, At: at})
}
