package state

import "time"

// TimeWindow is an inclusive [Start, End] interval in unix milliseconds.
type TimeWindow struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Contains reports whether Start <= t <= End.
func (w TimeWindow) Contains(t int64) bool {
	return t >= w.Start && t <= w.End
}

// Valid reports whether the window is not inverted.
func (w TimeWindow) Valid() bool {
	return w.Start <= w.End
}

// DayWindow returns the UTC calendar day containing at.
func DayWindow(at int64) TimeWindow {
	t := time.UnixMilli(at).UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return TimeWindow{Start: start.UnixMilli(), End: start.AddDate(0, 0, 1).UnixMilli() - 1}
}

// MonthWindow returns the UTC calendar month containing at.
func MonthWindow(at int64) TimeWindow {
	t := time.UnixMilli(at).UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return TimeWindow{Start: start.UnixMilli(), End: start.AddDate(0, 1, 0).UnixMilli() - 1}
}
