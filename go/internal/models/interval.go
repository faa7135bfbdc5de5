package models

import "time"

// TimeInterval is a closed range of instants: both endpoints are inside.
type TimeInterval struct {
	From time.Time
	To   time.Time
}

// NewTimeInterval builds an interval from two instants.
func NewTimeInterval(from, to time.Time) TimeInterval {
	return TimeInterval{From: from, To: to}
}

// WholeDay spans the calendar day of date in loc, from midnight to 24h minus one second later.
func WholeDay(date time.Time, loc *time.Location) TimeInterval {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return TimeInterval{From: start, To: start.Add(24*time.Hour - time.Second)}
}

// Contains reports whether From <= t <= To.
func (ti TimeInterval) Contains(t time.Time) bool {
	return !t.Before(ti.From) && !t.After(ti.To)
}
